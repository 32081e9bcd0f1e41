package form

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"hakobune/internal/logging"
)

func TestNewSubmission(t *testing.T) {
	s := NewSubmission(map[string]string{"b": "2", "a": "1"}, "http://ref", "ua")
	if s.ID == "" {
		t.Error("IDが設定されていません")
	}
	if s.ReceivedAt.IsZero() {
		t.Error("受信時刻が設定されていません")
	}
	if keys := s.SortedKeys(); strings.Join(keys, ",") != "a,b" {
		t.Errorf("SortedKeys() = %v", keys)
	}

	other := NewSubmission(nil, "", "")
	if other.ID == s.ID {
		t.Error("IDが重複しています")
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Format: logging.TextFormat, Level: slog.LevelInfo, Output: &buf})
	sink := NewLogSink(logger)

	s := NewSubmission(map[string]string{"name": "taro", "email": "t@example.com"}, "", "")
	if err := sink.Submit(context.Background(), s); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("1項目1行のはずが %d 行: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "field=email value=t@example.com") {
		t.Errorf("1行目 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "field=name value=taro") {
		t.Errorf("2行目 = %q", lines[1])
	}
}

func TestSinkFunc(t *testing.T) {
	var got Submission
	sink := SinkFunc(func(_ context.Context, s Submission) error {
		got = s
		return nil
	})

	want := NewSubmission(map[string]string{"k": "v"}, "", "")
	if err := sink.Submit(context.Background(), want); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if got.ID != want.ID || got.Fields["k"] != "v" {
		t.Errorf("got %+v", got)
	}
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "forms.db")

	sink, err := OpenSQLiteSink(path, logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("OpenSQLiteSink failed: %v", err)
	}
	defer sink.Close()

	first := NewSubmission(map[string]string{"name": "taro", "age": "20"}, "http://ref", "ua/1")
	second := NewSubmission(map[string]string{"name": "hanako"}, "", "")
	for _, s := range []Submission{first, second} {
		if err := sink.Submit(ctx, s); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	fields, err := sink.Fields(ctx)
	if err != nil {
		t.Fatalf("Fields failed: %v", err)
	}
	want := []Field{
		{first.ID, "age", "20"},
		{first.ID, "name", "taro"},
		{second.ID, "name", "hanako"},
	}
	if len(fields) != len(want) {
		t.Fatalf("len(fields) = %d, want %d: %v", len(fields), len(want), fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %+v, want %+v", i, fields[i], want[i])
		}
	}
}

func TestSQLiteSink_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "forms.db")

	sink, err := OpenSQLiteSink(path, logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("OpenSQLiteSink failed: %v", err)
	}
	if err := sink.Submit(ctx, NewSubmission(map[string]string{"a": "1"}, "", "")); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	sink.Close()

	reopened, err := OpenSQLiteSink(path, logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("再オープンに失敗: %v", err)
	}
	defer reopened.Close()

	fields, err := reopened.Fields(ctx)
	if err != nil {
		t.Fatalf("Fields failed: %v", err)
	}
	if len(fields) != 1 {
		t.Errorf("len(fields) = %d, want 1", len(fields))
	}
}

func TestSQLiteSink_Concurrent(t *testing.T) {
	ctx := context.Background()
	sink, err := OpenSQLiteSink(filepath.Join(t.TempDir(), "forms.db"), logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("OpenSQLiteSink failed: %v", err)
	}
	defer sink.Close()

	const n = 8
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- sink.Submit(ctx, NewSubmission(map[string]string{"x": "y"}, "", ""))
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Errorf("同時書き込みに失敗: %v", err)
		}
	}

	fields, _ := sink.Fields(ctx)
	if len(fields) != n {
		t.Errorf("len(fields) = %d, want %d", len(fields), n)
	}
}
