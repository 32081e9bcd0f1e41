package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ConnKey は接続IDの属性名
// この属性は本文の前に {xxxxxxxx} として出力される
const ConnKey = "conn"

// 出力する接続IDの長さ（UUIDの先頭8文字）
const connIDWidth = 8

// LineHandler は1レコードを1行で出力するslog.Handler
//
//	TIMESTAMP [level] {conn} Message | key=value key="value with spaces"
type LineHandler struct {
	w     io.Writer
	level slog.Leveler
	mu    *sync.Mutex

	conn   string // With で付与された接続ID
	pre    []byte // With で付与された属性（整形済み）
	prefix string // グループ名を . で連結したもの
}

// NewLineHandler は新しいLineHandlerを作成する
func NewLineHandler(w io.Writer, opts *slog.HandlerOptions) *LineHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &LineHandler{
		w:     w,
		level: level,
		mu:    &sync.Mutex{},
	}
}

// Enabled は指定レベルを出力するか判定する
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle はレコードを整形して書き込む
func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	conn := h.conn
	var attrs bytes.Buffer
	attrs.Write(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix == "" && a.Key == ConnKey {
			conn = a.Value.String()
			return true
		}
		h.appendAttr(&attrs, a)
		return true
	})

	var buf bytes.Buffer
	buf.WriteString(r.Time.UTC().Format(time.RFC3339))
	buf.WriteString(" [")
	buf.WriteString(levelString(r.Level))
	buf.WriteString("] ")
	if conn != "" {
		buf.WriteByte('{')
		buf.WriteString(shortConnID(conn))
		buf.WriteString("} ")
	}
	buf.WriteString(r.Message)
	if attrs.Len() > 0 {
		buf.WriteString(" |")
		buf.Write(attrs.Bytes())
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs は属性を追加したハンドラーを返す
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	var buf bytes.Buffer
	buf.Write(h.pre)
	for _, a := range attrs {
		if h.prefix == "" && a.Key == ConnKey {
			h2.conn = a.Value.String()
			continue
		}
		h.appendAttr(&buf, a)
	}
	h2.pre = buf.Bytes()
	return &h2
}

// WithGroup はグループを追加したハンドラーを返す
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// appendAttr は " key=value" を書き足す
func (h *LineHandler) appendAttr(buf *bytes.Buffer, a slog.Attr) {
	if a.Key == "" {
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(h.prefix)
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(formatValue(a.Value.Resolve()))
}

func shortConnID(id string) string {
	if len(id) > connIDWidth {
		return id[:connIDWidth]
	}
	return id
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

// formatValue は値を文字列にする
// フォーム値やパスに空白や = が含まれても1行を分割できるよう引用符で囲む
func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		s = fmt.Sprint(v.Any())
	}
	if s == "" || strings.ContainsAny(s, " =\"|\t\r\n") {
		return strconv.Quote(s)
	}
	return s
}
