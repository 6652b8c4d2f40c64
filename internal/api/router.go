package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/imgproc_go_server/config"
	"github.com/qs3c/imgproc_go_server/internal/api/handler"
	"github.com/qs3c/imgproc_go_server/internal/api/middleware"
	"github.com/qs3c/imgproc_go_server/internal/imageop"
	"github.com/qs3c/imgproc_go_server/internal/pkg/usercenter"
)

type Router struct {
	processHandler *handler.ProcessHandler
	registry       *imageop.Registry
	uc             *usercenter.Client
	cfg            *config.Config
}

func NewRouter(
	processHandler *handler.ProcessHandler,
	registry *imageop.Registry,
	uc *usercenter.Client,
	cfg *config.Config,
) *Router {
	return &Router{
		processHandler: processHandler,
		registry:       registry,
		uc:             uc,
		cfg:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())

	// 免认证路径
	engine.GET("/", handler.Root)
	engine.GET("/api/health", handler.Health)
	engine.Static("/static", r.cfg.Upload.ExamplesRoot)

	// 处理端点按注册表挂载，每个操作一对路由
	api := engine.Group("/api/v1")
	api.Use(middleware.Auth(r.uc, r.cfg.UserCenter.JWTCookieName))
	{
		for _, name := range r.registry.Names() {
			spec, err := r.registry.Get(name)
			if err != nil {
				continue
			}
			api.POST("/"+name, r.processHandler.HandleUpload(spec))
			api.POST("/"+name+"-by-url", r.processHandler.HandleByURL(spec))
		}
	}

	return engine
}
