package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := New(MalformedRequest, "リクエスト行が空です", nil)
	if got, want := err.Error(), "[MALFORMED_REQUEST] リクエスト行が空です"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New(IOFailure, "ファイルの読み込みに失敗", io.ErrUnexpectedEOF)
	if got, want := wrapped.Error(), "[IO_FAILURE] ファイルの読み込みに失敗: unexpected EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !stderrors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("Unwrap で原因のエラーに到達できません")
	}
}

func TestCodeOf(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"直接", New(ResourceNotFound, "なし", nil), ResourceNotFound},
		{"ラップ", fmt.Errorf("外側: %w", New(MalformedRequest, "不正", nil)), MalformedRequest},
		{"コードなし", io.EOF, IOFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Errorf("CodeOf() = %s, want %s", got, tc.want)
			}
		})
	}

	if !Is(fmt.Errorf("x: %w", New(ConnectionIOFailure, "切断", nil)), ConnectionIOFailure) {
		t.Error("Is がラップされたコードを検出できません")
	}
	if Is(io.EOF, ConnectionIOFailure) {
		t.Error("コードを持たないエラーに対して Is が true を返しました")
	}
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		code ErrorCode
		want int
	}{
		{MalformedRequest, http.StatusBadRequest},
		{UnsupportedMethod, http.StatusNotImplemented},
		{ResourceNotFound, http.StatusNotFound},
		{IOFailure, http.StatusInternalServerError},
		{ConnectionIOFailure, 0},
		{ErrorCode("UNKNOWN"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(string(tc.code), func(t *testing.T) {
			if got := StatusFor(tc.code); got != tc.want {
				t.Errorf("StatusFor(%s) = %d, want %d", tc.code, got, tc.want)
			}
		})
	}
}
