package server

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"hakobune/internal/config"
	"hakobune/internal/form"
	"hakobune/internal/router"
	"hakobune/internal/static"
)

// App は設定から組み立てたサーバーと、終了時に閉じるリソース
type App struct {
	*Server
	sink form.Sink
}

// NewApp は設定に従ってファイル解決・フォーム保存先・Dispatcherを組み立てる
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	resolver := static.NewResolver(afero.NewOsFs(), static.Options{
		Root:              cfg.RootDirectory,
		DefaultPage:       cfg.DefaultPage,
		Policy:            static.PathPolicy(cfg.PathPolicy),
		SniffUnknownTypes: cfg.SniffUnknownTypes,
	}, logger)

	var sink form.Sink
	switch cfg.FormSink {
	case "sqlite":
		s, err := form.OpenSQLiteSink(cfg.FormDB, logger)
		if err != nil {
			return nil, fmt.Errorf("フォーム保存先の初期化に失敗: %w", err)
		}
		sink = s
	default:
		sink = form.NewLogSink(logger)
	}

	dispatcher := router.NewDispatcher(resolver, sink, logger)
	return &App{
		Server: New(cfg, dispatcher, logger),
		sink:   sink,
	}, nil
}

// Close はフォーム保存先を閉じる
func (a *App) Close() error {
	if c, ok := a.sink.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
