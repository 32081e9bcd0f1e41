package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse は /health の応答
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ServerInfo は待ち受け先とワーカー数
type ServerInfo struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	MaxThreads    int    `json:"max_threads"`
	RootDirectory string `json:"root_directory"`
}

// StatusResponse は /api/status の応答
type StatusResponse struct {
	Status    string     `json:"status"`
	Server    ServerInfo `json:"server"`
	Stats     Snapshot   `json:"stats"`
	Timestamp time.Time  `json:"timestamp"`
}

// AdminHandler は管理用エンドポイントの実装
type AdminHandler struct {
	server *Server
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *AdminHandler) GetStatus(c *gin.Context) {
	cfg := h.server.config
	response := StatusResponse{
		Status: "running",
		Server: ServerInfo{
			Host:          cfg.Host,
			Port:          cfg.Port,
			MaxThreads:    cfg.MaxThreads,
			RootDirectory: cfg.RootDirectory,
		},
		Stats:     h.server.stats.Snapshot(),
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}
