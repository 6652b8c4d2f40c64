package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	UserCenter UserCenterConfig
	Storage    StorageConfig
	OSS        OSSConfig
	Upload     UploadConfig
	Database   DatabaseConfig
}

type ServerConfig struct {
	Host string
	Port int
	Mode string
}

type UserCenterConfig struct {
	BaseURL       string
	InternalToken string
	Timeout       time.Duration
	// DevelopmentMode 开启后跳过所有用户中心调用，使用合成 call_id
	DevelopmentMode  bool
	JWTCookieName    string
	DefaultTokenCost int
}

type StorageConfig struct {
	BaseURL           string
	DefaultCategoryID string
	DefaultTags       string
	Timeout           time.Duration
}

type OSSConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	BucketName      string
	ExamplesPrefix  string
}

type UploadConfig struct {
	MaxSize         int64
	DownloadTimeout time.Duration
	ExamplesRoot    string
}

type DatabaseConfig struct {
	// DSN 非空时使用 MySQL，否则落到本地 SQLite 文件
	DSN  string
	Path string
}

// Load 从环境变量加载配置，启动后不再变更
func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("USER_CENTER_BASE_URL", "http://localhost:8001")
	viper.SetDefault("USER_CENTER_INTERNAL_TOKEN", "")
	viper.SetDefault("API_TIMEOUT", 30)
	viper.SetDefault("DEFAULT_TOKEN_COST", 1)
	viper.SetDefault("DEVELOPMENT_MODE", false)
	viper.SetDefault("JWT_COOKIE_NAME", "jwt_token")
	viper.SetDefault("AIGC_STORAGE_BASE_URL", "http://localhost:8002")
	viper.SetDefault("AIGC_STORAGE_DEFAULT_CATEGORY_ID", "1")
	viper.SetDefault("AIGC_STORAGE_DEFAULT_TAGS", "图片处理")
	viper.SetDefault("OSS_ENDPOINT", "oss-cn-hangzhou.aliyuncs.com")
	viper.SetDefault("OSS_BUCKET_NAME", "")
	viper.SetDefault("OSS_EXAMPLES_PREFIX", "examples")
	viper.SetDefault("UPLOAD_MAX_SIZE", 20*1024*1024)
	viper.SetDefault("EXAMPLES_ROOT", "./static/examples")
	viper.SetDefault("DATABASE_DSN", "")
	viper.SetDefault("DATABASE_PATH", "billing_calls.db")

	timeout := time.Duration(viper.GetInt("API_TIMEOUT")) * time.Second

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("SERVER_HOST"),
			Port: viper.GetInt("SERVER_PORT"),
			Mode: viper.GetString("SERVER_MODE"),
		},
		UserCenter: UserCenterConfig{
			BaseURL:          viper.GetString("USER_CENTER_BASE_URL"),
			InternalToken:    viper.GetString("USER_CENTER_INTERNAL_TOKEN"),
			Timeout:          timeout,
			DevelopmentMode:  viper.GetBool("DEVELOPMENT_MODE"),
			JWTCookieName:    viper.GetString("JWT_COOKIE_NAME"),
			DefaultTokenCost: viper.GetInt("DEFAULT_TOKEN_COST"),
		},
		Storage: StorageConfig{
			BaseURL:           viper.GetString("AIGC_STORAGE_BASE_URL"),
			DefaultCategoryID: viper.GetString("AIGC_STORAGE_DEFAULT_CATEGORY_ID"),
			DefaultTags:       viper.GetString("AIGC_STORAGE_DEFAULT_TAGS"),
			Timeout:           timeout,
		},
		OSS: OSSConfig{
			Endpoint:        viper.GetString("OSS_ENDPOINT"),
			AccessKeyID:     viper.GetString("ALIBABA_CLOUD_ACCESS_KEY_ID"),
			AccessKeySecret: viper.GetString("ALIBABA_CLOUD_ACCESS_KEY_SECRET"),
			BucketName:      viper.GetString("OSS_BUCKET_NAME"),
			ExamplesPrefix:  viper.GetString("OSS_EXAMPLES_PREFIX"),
		},
		Upload: UploadConfig{
			MaxSize:         viper.GetInt64("UPLOAD_MAX_SIZE"),
			DownloadTimeout: timeout,
			ExamplesRoot:    viper.GetString("EXAMPLES_ROOT"),
		},
		Database: DatabaseConfig{
			DSN:  viper.GetString("DATABASE_DSN"),
			Path: viper.GetString("DATABASE_PATH"),
		},
	}

	return cfg, nil
}
