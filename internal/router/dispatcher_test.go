package router

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	apperrors "hakobune/internal/errors"
	"hakobune/internal/form"
	"hakobune/internal/logging"
	"hakobune/internal/protocol"
	"hakobune/internal/static"
)

// recordingSink は受け取った送信を記録する
type recordingSink struct {
	mu          sync.Mutex
	submissions []form.Submission
	err         error
}

func (s *recordingSink) Submit(_ context.Context, sub form.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
	return s.err
}

func newTestDispatcher(t *testing.T, sink form.Sink) *Dispatcher {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range map[string]string{
		"/www/index.html": "<h1>home</h1>",
		"/www/submit":     "static submit",
		"/www/a.txt":      "a",
	} {
		if err := afero.WriteFile(fs, name, []byte(data), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	resolver := static.NewResolver(fs, static.Options{Root: "/www", DefaultPage: "index.html"}, logging.NewDiscardLogger())
	return NewDispatcher(resolver, sink, logging.NewDiscardLogger())
}

func parse(t *testing.T, raw string) *protocol.Request {
	t.Helper()
	req, err := protocol.ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	return req
}

func TestDispatch_NilRequest(t *testing.T) {
	d := newTestDispatcher(t, &recordingSink{})
	res := d.Dispatch(context.Background(), nil)
	if res.Status != http.StatusBadRequest || string(res.Body) != "Bad Request" {
		t.Errorf("got %d %q, want 400 Bad Request", res.Status, res.Body)
	}
}

func TestDispatch_UnsupportedMethod(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatcher(t, sink)

	for _, raw := range []string{
		"DELETE /x HTTP/1.1\r\n\r\n",
		"PUT /index.html HTTP/1.1\r\n\r\n",
		"HEAD / HTTP/1.1\r\n\r\n",
		"DELETE /submit HTTP/1.1\r\n\r\n",
		"get /index.html HTTP/1.1\r\n\r\n",
	} {
		res := d.Dispatch(context.Background(), parse(t, raw))
		if res.Status != apperrors.StatusFor(apperrors.UnsupportedMethod) {
			t.Errorf("%q: status = %d, want 501", raw, res.Status)
		}
		if string(res.Body) != "501 Not Implemented" || res.HeaderValue("Content-Type") != "text/html" {
			t.Errorf("%q: body = %q", raw, res.Body)
		}
	}
	if len(sink.submissions) != 0 {
		t.Error("未対応メソッドでフォームが処理されました")
	}
}

func TestDispatch_Submit(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatcher(t, sink)

	raw := "POST /submit HTTP/1.1\r\nContent-Length: 17\r\nReferer: http://r\r\nUser-Agent: ua\r\n\r\nname=taro&age=20x"
	res := d.Dispatch(context.Background(), parse(t, raw))

	if res.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Status)
	}
	// 同名のファイルがあってもフォームが優先される
	if string(res.Body) != "Form submitted successfully!" {
		t.Errorf("body = %q", res.Body)
	}
	if len(sink.submissions) != 1 {
		t.Fatalf("submissions = %d, want 1", len(sink.submissions))
	}
	got := sink.submissions[0]
	if got.Fields["name"] != "taro" || got.Fields["age"] != "20x" {
		t.Errorf("fields = %v", got.Fields)
	}
	if got.Referer != "http://r" || got.UserAgent != "ua" {
		t.Errorf("referer/userAgent = %q/%q", got.Referer, got.UserAgent)
	}
}

func TestDispatch_SubmitSinkFailure(t *testing.T) {
	d := newTestDispatcher(t, &recordingSink{err: errors.New("disk full")})
	res := d.Dispatch(context.Background(), parse(t, "POST /submit HTTP/1.1\r\n\r\n"))
	if res.Status != http.StatusInternalServerError || string(res.Body) != "Internal Server Error" {
		t.Errorf("got %d %q, want 500", res.Status, res.Body)
	}
}

func TestDispatch_GetSubmitIsStatic(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatcher(t, sink)

	res := d.Dispatch(context.Background(), parse(t, "GET /submit HTTP/1.1\r\n\r\n"))
	if res.Status != http.StatusOK || string(res.Body) != "static submit" {
		t.Errorf("GET /submit が静的ファイルとして解決されていません: %d %q", res.Status, res.Body)
	}

	// POSTでも別パスなら静的ファイル
	res = d.Dispatch(context.Background(), parse(t, "POST /a.txt HTTP/1.1\r\n\r\n"))
	if res.Status != http.StatusOK || string(res.Body) != "a" {
		t.Errorf("POST /a.txt: %d %q", res.Status, res.Body)
	}
	// クエリ付きは別パス扱い
	res = d.Dispatch(context.Background(), parse(t, "POST /submit?x=1 HTTP/1.1\r\n\r\n"))
	if res.Status != http.StatusNotFound {
		t.Errorf("POST /submit?x=1: status = %d, want 404", res.Status)
	}

	if len(sink.submissions) != 0 {
		t.Error("フォーム以外でSinkが呼ばれました")
	}
}

func TestDispatch_Static(t *testing.T) {
	d := newTestDispatcher(t, &recordingSink{})

	testCases := []struct {
		raw    string
		status int
		body   string
	}{
		{"GET / HTTP/1.1\r\n\r\n", http.StatusOK, "<h1>home</h1>"},
		{"GET /index.html HTTP/1.1\r\n\r\n", http.StatusOK, "<h1>home</h1>"},
		{"GET /missing HTTP/1.1\r\n\r\n", http.StatusNotFound, "404 Not Found"},
	}
	for _, tc := range testCases {
		res := d.Dispatch(context.Background(), parse(t, tc.raw))
		if res.Status != tc.status || string(res.Body) != tc.body {
			t.Errorf("%q: got %d %q, want %d %q", tc.raw, res.Status, res.Body, tc.status, tc.body)
		}
	}
}
