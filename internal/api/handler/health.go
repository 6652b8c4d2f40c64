package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/imgproc_go_server/internal/pkg/response"
)

// Health 健康检查
// GET /api/health
func Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// Root 服务首页
// GET /
func Root(c *gin.Context) {
	response.Success(c, gin.H{"service": "imgproc", "docs": "/docs"})
}
