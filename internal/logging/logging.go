// Package logging はslogベースのロガーを提供する
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format はログの出力形式
type Format string

const (
	TextFormat Format = "text" // TIMESTAMP [level] message | k=v
	JSONFormat Format = "json" // slog標準のJSON
)

// Config はロガーの設定
type Config struct {
	Format Format
	Level  slog.Level
	Output io.Writer // 省略時は標準エラー出力
}

// New は設定からロガーを作成する
func New(cfg Config) *slog.Logger {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == JSONFormat {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewLineHandler(w, opts))
}

// NewDiscardLogger は何も出力しないロガーを返す
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewLineHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(100)}))
}

// LevelFromString は文字列をslog.Levelに変換する
// 不明な文字列は info とみなす
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat は文字列をFormatに変換する
func ParseFormat(s string) Format {
	if strings.EqualFold(s, string(JSONFormat)) {
		return JSONFormat
	}
	return TextFormat
}
