package protocol

import (
	"bytes"
	"fmt"
	"io"
)

// WriteResponse はレスポンスを1回のWriteで書き出す
// 本文は文字列を経由せず生のバイト列のまま書く
func WriteResponse(w io.Writer, res *Response) error {
	var buf bytes.Buffer
	buf.Grow(64 + len(res.Body))

	fmt.Fprintf(&buf, "%s %d %s\r\n", Version, res.Status, res.Phrase)
	for _, h := range res.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}
	buf.WriteString("\r\n")
	buf.Write(res.Body)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("レスポンスの書き込みに失敗: %w", err)
	}
	return nil
}
