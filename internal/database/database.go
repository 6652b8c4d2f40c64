package database

import (
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qs3c/imgproc_go_server/config"
	"github.com/qs3c/imgproc_go_server/internal/model"
)

// New 打开计费流水库：配置了 DSN 用 MySQL，否则本地 SQLite 文件
func New(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.DSN != "" {
		dialector = mysql.Open(cfg.DSN)
	} else {
		dialector = sqlite.Open(cfg.Path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.BillingCall{}); err != nil {
		return nil, err
	}

	return db, nil
}
