package server

import (
	"github.com/gin-gonic/gin"
)

// NewAdminRouter は管理用HTTPのルーティングを設定したエンジンを返す
func NewAdminRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &AdminHandler{server: s}

	// ヘルスチェックエンドポイント
	router.GET("/health", h.HealthCheck)

	// APIエンドポイント
	api := router.Group("/api")
	api.GET("/status", h.GetStatus)

	return router
}
