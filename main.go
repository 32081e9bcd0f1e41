package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"hakobune/internal/config"
	"hakobune/internal/logging"
	"hakobune/internal/server"
)

func main() {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.ini"
	}

	// 設定を読み込む
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	logger := logging.New(logging.Config{
		Format: logging.ParseFormat(cfg.LogFormat),
		Level:  logging.LevelFromString(cfg.LogLevel),
	})
	gin.SetMode(gin.ReleaseMode)

	// サーバーを作成
	app, err := server.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("サーバーの作成に失敗しました: %v", err)
	}
	defer app.Close()

	// サーバーを起動
	if err := app.Start(context.Background()); err != nil {
		logger.Error("サーバーの起動に失敗しました", "error", err)
		app.Close()
		os.Exit(1)
	}
}
