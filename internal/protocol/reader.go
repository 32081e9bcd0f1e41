package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	apperrors "hakobune/internal/errors"
)

// POSTで認識するヘッダー（大文字小文字を区別しない前方一致）
const (
	headerContentLength = "content-length:"
	headerReferer       = "referer:"
	headerUserAgent     = "user-agent:"
)

// 画像らしいとみなす拡張子
var imageSuffixes = []string{".jpg", ".bmp", ".gif"}

// ErrEmptyRequest はデータを受け取る前に接続が閉じられた
var ErrEmptyRequest = apperrors.New(apperrors.MalformedRequest, "リクエスト行がありません", nil)

// Limits は1リクエストで読み込む量の上限
type Limits struct {
	MaxLineBytes int   // リクエスト行・ヘッダー行1行の上限
	MaxBodyBytes int64 // POST本文の上限（0は上限なし）
}

// DefaultLimits は ReadRequest が使う上限
var DefaultLimits = Limits{
	MaxLineBytes: 8 << 10,
	MaxBodyBytes: 10 << 20,
}

// errLineTooLong は1行が MaxLineBytes を超えた
var errLineTooLong = apperrors.New(apperrors.MalformedRequest, "行が長すぎます", nil)

// net/textproto の readLineSlice と同じ要領で1行読む
// データなしでストリームが終わった場合のみ io.EOF を返す
func readLine(r *bufio.Reader, limit int) (string, error) {
	var line []byte
	for {
		l, more, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && line != nil {
				return string(line), nil
			}
			return "", err
		}
		if limit > 0 && len(line)+len(l) > limit {
			return "", errLineTooLong
		}
		if line == nil && !more {
			return string(l), nil
		}
		line = append(line, l...)
		if !more {
			break
		}
	}
	return string(line), nil
}

// ReadRequest は DefaultLimits で1リクエストを読む
func ReadRequest(r *bufio.Reader) (*Request, error) {
	return ReadRequestWithLimits(r, DefaultLimits)
}

// ReadRequestWithLimits は接続の先頭から1リクエストを読む
//
// 戻り値のエラーは apperrors.MalformedRequest（400を返すべき）か
// apperrors.ConnectionIOFailure（応答できない）のいずれか。
// 上限を超えた行や本文は MalformedRequest になる。
func ReadRequestWithLimits(r *bufio.Reader, limits Limits) (*Request, error) {
	requestLine, err := readLine(r, limits.MaxLineBytes)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyRequest
		}
		if errors.Is(err, errLineTooLong) {
			return nil, err
		}
		return nil, apperrors.New(apperrors.ConnectionIOFailure, "リクエスト行の読み込みに失敗", err)
	}

	fields := splitDropTrailingEmpty(requestLine, " ")
	if len(fields) < 2 {
		return nil, apperrors.New(apperrors.MalformedRequest,
			fmt.Sprintf("不正なリクエスト行: %q", requestLine), nil)
	}

	req := &Request{
		method:     fields[0],
		path:       fields[1],
		parameters: make(map[string]string),
	}

	switch req.method {
	case MethodGet:
		// GETではヘッダーを読まない
		if i := strings.IndexByte(req.path, '?'); i != -1 {
			parseQuery(req.path[i+1:], req.parameters)
		}
	case MethodPost:
		if err := readPostHeaders(r, req, limits.MaxLineBytes); err != nil {
			return nil, err
		}
		req.isLikelyImage = hasImageSuffix(req.path)
		if req.contentLength > 0 {
			body, err := readBody(r, int64(req.contentLength), limits.MaxBodyBytes)
			if err != nil {
				return nil, err
			}
			parseQuery(string(body), req.parameters)
		}
	}

	return req, nil
}

// readBody は Content-Length バイトの本文を読む
// 宣言された長さを先に確保せず、届いた分だけバッファを伸ばす
func readBody(r io.Reader, n, limit int64) ([]byte, error) {
	if limit > 0 && n > limit {
		return nil, apperrors.New(apperrors.MalformedRequest,
			fmt.Sprintf("Content-Length %d が上限 %d を超えています", n, limit), nil)
	}

	body, err := io.ReadAll(io.LimitReader(r, n))
	if err != nil {
		return nil, apperrors.New(apperrors.ConnectionIOFailure, "本文の読み込みに失敗", err)
	}
	if int64(len(body)) < n {
		return nil, apperrors.New(apperrors.MalformedRequest,
			fmt.Sprintf("本文がContent-Lengthより短い: %d < %d", len(body), n), io.ErrUnexpectedEOF)
	}
	return body, nil
}

func readPostHeaders(r *bufio.Reader, req *Request, maxLine int) error {
	for {
		line, err := readLine(r, maxLine)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, errLineTooLong) {
				return err
			}
			return apperrors.New(apperrors.ConnectionIOFailure, "ヘッダーの読み込みに失敗", err)
		}
		if line == "" {
			return nil
		}

		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, headerContentLength):
			v := strings.TrimSpace(line[len(headerContentLength):])
			cl, err := strconv.Atoi(v)
			if err != nil {
				return apperrors.New(apperrors.MalformedRequest,
					fmt.Sprintf("不正なContent-Length: %q", v), err)
			}
			if cl < 0 {
				cl = 0
			}
			req.contentLength = cl
		case strings.HasPrefix(lower, headerReferer):
			req.referer = strings.TrimSpace(line[len(headerReferer):])
		case strings.HasPrefix(lower, headerUserAgent):
			req.userAgent = strings.TrimSpace(line[len(headerUserAgent):])
		}
	}
}

// parseQuery は k1=v1&k2=v2 を params に追加する
// '=' で分割して2要素にならない組は黙って捨てる。値はデコードしない。
func parseQuery(query string, params map[string]string) {
	for _, pair := range strings.Split(query, "&") {
		kv := splitDropTrailingEmpty(pair, "=")
		if len(kv) != 2 {
			continue
		}
		params[kv[0]] = kv[1]
	}
}

// splitDropTrailingEmpty は末尾の空要素を取り除いた strings.Split
func splitDropTrailingEmpty(s, sep string) []string {
	parts := strings.Split(s, sep)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func hasImageSuffix(path string) bool {
	for _, s := range imageSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}
