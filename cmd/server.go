// Package main はhakobuneサーバーコマンドの実装です
package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"hakobune/internal/config"
	"hakobune/internal/logging"
	"hakobune/internal/server"
)

// コマンドラインオプション
var (
	configPath  string
	host        string
	port        int
	workers     int
	root        string
	defaultPage string
	adminPort   int
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "hakobune",
	Short: "静的ファイルとフォームを扱う最小限のHTTP/1.1サーバー",
	Long: `hakobune は1接続につき1リクエストを処理するHTTP/1.1サーバーです。
ドキュメントルート配下のファイルを配信し、POST /submit のフォームを受け付けます。

設定は設定ファイル、環境変数、コマンドラインオプションの順に上書きされます。`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "config.ini", "設定ファイル (.ini/.properties/.yaml/.toml)")
	flags.StringVar(&host, "host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
	flags.IntVarP(&port, "port", "p", 0, "サーバーのポート")
	flags.IntVarP(&workers, "workers", "w", 0, "同時に処理する接続数")
	flags.StringVar(&root, "root", "", "ドキュメントルート")
	flags.StringVar(&defaultPage, "default-page", "", "ディレクトリ要求時のページ")
	flags.IntVar(&adminPort, "admin-port", 0, "管理用HTTPのポート (0は無効)")
	flags.StringVar(&logLevel, "log-level", "", "ログレベル (debug/info/warn/error)")
}

func runServer(cmd *cobra.Command, _ []string) error {
	// 設定ファイルがなければ環境変数とオプションだけで起動する
	path := configPath
	if _, err := os.Stat(path); os.IsNotExist(err) && !cmd.Flags().Changed("config") {
		path = ""
	}

	cfg, err := config.Read(path)
	if err != nil {
		return err
	}

	// コマンドラインオプションで設定を上書き
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if workers != 0 {
		cfg.MaxThreads = workers
	}
	if root != "" {
		cfg.RootDirectory = root
	}
	if defaultPage != "" {
		cfg.DefaultPage = defaultPage
	}
	if adminPort != 0 {
		cfg.AdminPort = adminPort
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Format: logging.ParseFormat(cfg.LogFormat),
		Level:  logging.LevelFromString(cfg.LogLevel),
	})
	gin.SetMode(gin.ReleaseMode)

	app, err := server.NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.Info("hakobune サーバーを起動します", "address", cfg.ServerAddress())
	return app.Start(cmd.Context())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
