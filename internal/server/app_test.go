package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hakobune/internal/form"
	"hakobune/internal/logging"
)

// TestNewAppServesFromDisk は実ファイルシステムのドキュメントルートから配信できることをテストする
func TestNewAppServesFromDisk(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>disk</p>"), 0644); err != nil {
		t.Fatalf("ファイルの作成に失敗しました: %v", err)
	}

	cfg := testConfig(2)
	cfg.RootDirectory = dir

	app, err := NewApp(cfg, logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Close()

	addr := startServer(t, app.Server)
	got := roundTrip(t, addr, "GET / HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: 11\r\n") ||
		!strings.HasSuffix(got, "<p>disk</p>") {
		t.Errorf("応答が一致しません: %q", got)
	}
}

// TestNewAppSQLiteSink はフォームがSQLiteに保存されることをテストする
func TestNewAppSQLiteSink(t *testing.T) {
	cfg := testConfig(2)
	cfg.RootDirectory = t.TempDir()
	cfg.FormSink = "sqlite"
	cfg.FormDB = filepath.Join(t.TempDir(), "db", "forms.db")

	app, err := NewApp(cfg, logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Close()

	addr := startServer(t, app.Server)
	got := roundTrip(t, addr, "POST /submit HTTP/1.1\r\nContent-Length: 7\r\n\r\nq=hello")
	if !strings.HasSuffix(got, "Form submitted successfully!") {
		t.Fatalf("応答が一致しません: %q", got)
	}

	sink, ok := app.sink.(*form.SQLiteSink)
	if !ok {
		t.Fatalf("SQLiteSink ではありません: %T", app.sink)
	}
	fields, err := sink.Fields(context.Background())
	if err != nil {
		t.Fatalf("Fields failed: %v", err)
	}
	if len(fields) != 1 || fields[0].Name != "q" || fields[0].Value != "hello" {
		t.Errorf("保存内容が一致しません: %+v", fields)
	}
}
