package main

import (
	"fmt"
	"log"

	"github.com/qs3c/imgproc_go_server/config"
	"github.com/qs3c/imgproc_go_server/internal/api"
	"github.com/qs3c/imgproc_go_server/internal/api/handler"
	"github.com/qs3c/imgproc_go_server/internal/database"
	"github.com/qs3c/imgproc_go_server/internal/imageop"
	"github.com/qs3c/imgproc_go_server/internal/pkg/oss"
	"github.com/qs3c/imgproc_go_server/internal/pkg/storage"
	"github.com/qs3c/imgproc_go_server/internal/pkg/usercenter"
	"github.com/qs3c/imgproc_go_server/internal/repository"
	"github.com/qs3c/imgproc_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化计费流水库
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open billing database: %v", err)
	}
	log.Println("Billing database ready")

	// 外部客户端
	ucClient := usercenter.NewClient(&cfg.UserCenter)
	storageClient := storage.NewClient(&cfg.Storage)

	// 备份对象存储可选，未配置密钥则只有主存储
	var fallback service.FallbackStore
	if cfg.OSS.AccessKeyID != "" && cfg.OSS.BucketName != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Fatalf("Failed to create OSS client: %v", err)
		}
		fallback = ossClient
		log.Println("OSS fallback storage enabled")
	}

	// 操作注册表与输入拉取
	registry := imageop.NewRegistry()
	fetcher := imageop.NewFetcher(&cfg.Upload)

	// 初始化 Repository
	callRepo := repository.NewCallRepository(db)

	// 初始化 Service
	pricingService := service.NewPricingService()
	billingService := service.NewBillingService(ucClient, callRepo, &cfg.UserCenter)
	uploadService := service.NewUploadService(storageClient, fallback, &cfg.Storage)
	processService := service.NewProcessService(registry, pricingService, billingService, uploadService)

	// 初始化 Handler 与 Router
	processHandler := handler.NewProcessHandler(processService, fetcher, cfg.Upload.MaxSize)
	router := api.NewRouter(processHandler, registry, ucClient, cfg)
	engine := router.Setup()

	if cfg.UserCenter.DevelopmentMode {
		log.Println("DEVELOPMENT_MODE enabled: user center calls are bypassed")
	}

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
