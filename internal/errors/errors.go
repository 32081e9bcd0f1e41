// Package errors はサーバー全体で使うエラー分類を定義する
//
// 接続単位で回復できる失敗はすべてここのコードで表現し、
// ディスパッチャーがコードからHTTPステータスを決める。
// 起動時に致命的なのは ConfigurationError のみ。
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode は失敗の種類を表す安定したコード
type ErrorCode string

const (
	// ConfigurationError は設定の欠落・不正（起動を中断する）
	ConfigurationError ErrorCode = "CONFIGURATION_ERROR"
	// MalformedRequest はリクエスト行やヘッダーが解釈できない
	MalformedRequest ErrorCode = "MALFORMED_REQUEST"
	// UnsupportedMethod は GET/POST 以外のメソッド
	UnsupportedMethod ErrorCode = "UNSUPPORTED_METHOD"
	// ResourceNotFound はファイルが存在しない、またはディレクトリ
	ResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	// IOFailure は存在するファイルの読み込み失敗など
	IOFailure ErrorCode = "IO_FAILURE"
	// ConnectionIOFailure はクライアントとの通信自体が壊れている
	ConnectionIOFailure ErrorCode = "CONNECTION_IO_FAILURE"
)

// Error はコード付きのエラー
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

// New は新しいErrorを作成する
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error はerrorインターフェースの実装
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因となったエラーを返す
func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf はエラーチェーンからコードを取り出す
// コードを持たないエラーは IOFailure として扱う
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return IOFailure
}

// Is はエラーチェーンに指定コードのErrorが含まれるか判定する
func Is(err error, code ErrorCode) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Code == code
}

// StatusFor はエラーコードに対応するHTTPステータスを返す
// ConnectionIOFailure は応答を書かないため 0 を返す
func StatusFor(code ErrorCode) int {
	switch code {
	case MalformedRequest:
		return http.StatusBadRequest // 400
	case UnsupportedMethod:
		return http.StatusNotImplemented // 501
	case ResourceNotFound:
		return http.StatusNotFound // 404
	case IOFailure:
		return http.StatusInternalServerError // 500
	case ConnectionIOFailure:
		return 0
	default:
		return http.StatusInternalServerError // 500
	}
}
