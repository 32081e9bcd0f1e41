// Package form は /submit に送られたフォーム項目の受け渡し先を提供する
package form

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Submission は1回のフォーム送信
type Submission struct {
	ID         string
	Fields     map[string]string
	Referer    string
	UserAgent  string
	ReceivedAt time.Time
}

// NewSubmission はIDと受信時刻を付けたSubmissionを作成する
func NewSubmission(fields map[string]string, referer, userAgent string) Submission {
	return Submission{
		ID:         uuid.New().String(),
		Fields:     fields,
		Referer:    referer,
		UserAgent:  userAgent,
		ReceivedAt: time.Now(),
	}
}

// SortedKeys は項目名を辞書順で返す
func (s Submission) SortedKeys() []string {
	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sink はフォーム項目の受け取り手
// 複数ワーカーから同時に呼ばれる
type Sink interface {
	Submit(ctx context.Context, s Submission) error
}

// SinkFunc は関数をSinkとして使うためのアダプター
type SinkFunc func(ctx context.Context, s Submission) error

// Submit はSinkの実装
func (f SinkFunc) Submit(ctx context.Context, s Submission) error {
	return f(ctx, s)
}

// LogSink は項目を1つずつログに出力する
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink は新しいLogSinkを作成する
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Submit はSinkの実装
func (l *LogSink) Submit(ctx context.Context, s Submission) error {
	for _, k := range s.SortedKeys() {
		l.logger.InfoContext(ctx, "フォーム項目", "submission", s.ID, "field", k, "value", s.Fields[k])
	}
	return nil
}
