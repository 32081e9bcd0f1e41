// Package protocol はHTTP/1.1の最小限のワイヤー形式を扱う
//
// 1接続につき1リクエストを読み、1レスポンスを書く。
// keep-alive、chunked、HTTP/2 は扱わない。
package protocol

import (
	"fmt"
	"maps"
	"net/http"
	"strconv"
)

const (
	MethodGet  = "GET"
	MethodPost = "POST"

	Version = "HTTP/1.1"
)

// Request はパース済みのリクエスト
// 生成後は変更されない
type Request struct {
	method        string
	path          string
	isLikelyImage bool
	contentLength int
	referer       string
	userAgent     string
	parameters    map[string]string
}

// Method はリクエストメソッドを返す（固定集合に対する検証はしない）
func (r *Request) Method() string { return r.method }

// Path は生のリクエストターゲットを返す（GETではクエリ文字列を含みうる）
func (r *Request) Path() string { return r.path }

// IsLikelyImage はパスが .jpg/.bmp/.gif で終わるかどうか（POSTのみ計算）
func (r *Request) IsLikelyImage() bool { return r.isLikelyImage }

// ContentLength はPOSTのContent-Length（それ以外は0）
func (r *Request) ContentLength() int { return r.contentLength }

// Referer はPOSTのRefererヘッダー
func (r *Request) Referer() string { return r.referer }

// UserAgent はPOSTのUser-Agentヘッダー
func (r *Request) UserAgent() string { return r.userAgent }

// Parameters はパラメーターのコピーを返す
func (r *Request) Parameters() map[string]string {
	return maps.Clone(r.parameters)
}

// Param は指定キーのパラメーターを返す
func (r *Request) Param(key string) (string, bool) {
	v, ok := r.parameters[key]
	return v, ok
}

// String はログ出力用の表現
func (r *Request) String() string {
	return fmt.Sprintf("Request{method=%q path=%q image=%t contentLength=%d referer=%q userAgent=%q params=%v}",
		r.method, r.path, r.isLikelyImage, r.contentLength, r.referer, r.userAgent, r.parameters)
}

// Header はレスポンスヘッダーの1項目
type Header struct {
	Name  string
	Value string
}

// Response は書き出すレスポンス
// ヘッダーは追加した順に書き出される
type Response struct {
	Status  int
	Phrase  string
	Headers []Header
	Body    []byte
}

// NewResponse はContent-TypeとContent-Lengthを設定したレスポンスを作成する
func NewResponse(status int, contentType string, body []byte) *Response {
	return &Response{
		Status: status,
		Phrase: http.StatusText(status),
		Headers: []Header{
			{Name: "Content-Type", Value: contentType},
			{Name: "Content-Length", Value: strconv.Itoa(len(body))},
		},
		Body: body,
	}
}

// HeaderValue は最初に一致したヘッダーの値を返す
func (r *Response) HeaderValue(name string) string {
	for _, h := range r.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// 定型レスポンス
// 本文にファイルシステムの情報は含めない

// BadRequest は400
func BadRequest() *Response {
	return NewResponse(http.StatusBadRequest, "text/html", []byte("Bad Request"))
}

// NotFound は404
func NotFound() *Response {
	return NewResponse(http.StatusNotFound, "text/html", []byte("404 Not Found"))
}

// InternalError は500
func InternalError() *Response {
	return NewResponse(http.StatusInternalServerError, "text/html", []byte("Internal Server Error"))
}

// NotImplemented は501
func NotImplemented() *Response {
	return NewResponse(http.StatusNotImplemented, "text/html", []byte("501 Not Implemented"))
}

// FormSubmitted はフォーム受付完了の200
func FormSubmitted() *Response {
	return NewResponse(http.StatusOK, "text/html", []byte("Form submitted successfully!"))
}

// ForStatus はステータスコードに対応する定型レスポンスを返す
func ForStatus(status int) *Response {
	switch status {
	case http.StatusBadRequest:
		return BadRequest()
	case http.StatusNotFound:
		return NotFound()
	case http.StatusNotImplemented:
		return NotImplemented()
	default:
		return InternalError()
	}
}
