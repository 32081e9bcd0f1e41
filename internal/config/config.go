package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	apperrors "hakobune/internal/errors"
)

// Config はサーバー全体の設定を保持する構造体
// Load の後は変更しない
type Config struct {
	// 必須項目
	Port          int    `yaml:"port" toml:"port" mapstructure:"port" validate:"required,min=1,max=65535"`                  // リッスンするポート番号
	MaxThreads    int    `yaml:"max_threads" toml:"max_threads" mapstructure:"max_threads" validate:"required,min=1"`        // 同時に処理する接続数の上限
	RootDirectory string `yaml:"root_directory" toml:"root_directory" mapstructure:"root_directory" validate:"required"` // ドキュメントルート
	DefaultPage   string `yaml:"default_page" toml:"default_page" mapstructure:"default_page" validate:"required"`       // ディレクトリ要求時のページ

	Host string `yaml:"host" toml:"host" mapstructure:"host"` // リッスンするホスト

	// タイムアウト設定（0は無効）
	ReadTimeoutMs     int `yaml:"read_timeout_ms" toml:"read_timeout_ms" mapstructure:"read_timeout_ms" validate:"min=0"`
	WriteTimeoutMs    int `yaml:"write_timeout_ms" toml:"write_timeout_ms" mapstructure:"write_timeout_ms" validate:"min=0"`
	ShutdownTimeoutMs int `yaml:"shutdown_timeout_ms" toml:"shutdown_timeout_ms" mapstructure:"shutdown_timeout_ms" validate:"min=0"`

	// POST本文の上限バイト数（0は上限なし）
	MaxBodyBytes int64 `yaml:"max_body_bytes" toml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"min=0"`

	// 静的ファイル
	PathPolicy        string `yaml:"path_policy" toml:"path_policy" mapstructure:"path_policy" validate:"oneof=preserve sanitize"`
	SniffUnknownTypes bool   `yaml:"sniff_unknown_types" toml:"sniff_unknown_types" mapstructure:"sniff_unknown_types"`

	// フォームの保存先
	FormSink string `yaml:"form_sink" toml:"form_sink" mapstructure:"form_sink" validate:"oneof=log sqlite"`
	FormDB   string `yaml:"form_db" toml:"form_db" mapstructure:"form_db" validate:"required_if=FormSink sqlite"`

	// 管理用HTTP（0は無効）
	AdminPort int `yaml:"admin_port" toml:"admin_port" mapstructure:"admin_port" validate:"min=0,max=65535"`

	// ログ
	LogLevel  string `yaml:"log_level" toml:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" toml:"log_format" mapstructure:"log_format" validate:"oneof=text json"`
}

// DefaultConfig は任意項目の既定値だけを埋めた設定を返す
// 必須の4項目は設定ファイル・環境変数・フラグのいずれかで与える
func DefaultConfig() *Config {
	return &Config{
		Host:              "0.0.0.0",
		ShutdownTimeoutMs: 5000,
		MaxBodyBytes:      10 << 20,
		PathPolicy:        "preserve",
		FormSink:          "log",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load は設定を読み込む
// path が空なら設定ファイルを読まず、既定値と環境変数だけを使う。
// 形式は拡張子で決める: .ini/.properties, .yaml/.yml, .toml
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read は設定ファイルと環境変数を読むだけで検証はしない
// コマンドラインオプションで上書きしてから Validate を呼ぶ場合に使う
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, apperrors.New(apperrors.ConfigurationError, "設定ファイルの読み込みに失敗", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return toml.Unmarshal(data, cfg)
	case ".ini", ".properties":
		return decodeProperties(path, cfg)
	default:
		return fmt.Errorf("未対応の設定ファイル形式: %q", ext)
	}
}

// decodeProperties は KEY=VALUE 形式の config.ini を読む
// キーは大文字小文字を区別しない（PORT, MAX_THREADS, ROOT_DIRECTORY, DEFAULT_PAGE）
func decodeProperties(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")

	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(cfg)
}

// applyEnv は環境変数で設定を上書きする
// 数値として解釈できない値は設定エラー
func applyEnv(cfg *Config) error {
	cfg.Host = getEnvOrDefault("SERVER_HOST", cfg.Host)
	cfg.RootDirectory = getEnvOrDefault("ROOT_DIRECTORY", cfg.RootDirectory)
	cfg.DefaultPage = getEnvOrDefault("DEFAULT_PAGE", cfg.DefaultPage)

	var err error
	if cfg.Port, err = getEnvAsIntOrDefault("PORT", cfg.Port); err != nil {
		return err
	}
	if cfg.MaxThreads, err = getEnvAsIntOrDefault("MAX_THREADS", cfg.MaxThreads); err != nil {
		return err
	}
	return nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.New(apperrors.ConfigurationError,
				fmt.Sprintf("無効な設定 %s=%v (%s)", fe.Field(), fe.Value(), fe.Tag()), err)
		}
		return apperrors.New(apperrors.ConfigurationError, "設定の検証に失敗", err)
	}
	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AdminAddress は管理用HTTPのリッスンアドレスを返す
func (c *Config) AdminAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.AdminPort)
}

// ReadTimeout は接続の読み込みタイムアウト（0は無効）
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// WriteTimeout は接続の書き込みタイムアウト（0は無効）
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}

// ShutdownTimeout は処理中の接続を待つ上限
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}

var validate = validator.New()

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intVal, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, apperrors.New(apperrors.ConfigurationError,
			fmt.Sprintf("環境変数 %s が数値ではありません: %q", key, value), err)
	}
	return intVal, nil
}
