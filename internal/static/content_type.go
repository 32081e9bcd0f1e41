package static

import "strings"

// DefaultContentType は表にない拡張子の Content-Type
const DefaultContentType = "application/octet-stream"

// 拡張子ごとの Content-Type（大文字小文字は区別する）
var contentTypes = []struct {
	suffix      string
	contentType string
}{
	{".html", "text/html"},
	{".htm", "text/html"},
	{".jpg", "image/jpeg"},
	{".jpeg", "image/jpeg"},
	{".png", "image/png"},
	{".gif", "image/gif"},
	{".txt", "text/plain"},
}

// ContentType はファイル名の拡張子から Content-Type を推定する
func ContentType(name string) string {
	for _, ct := range contentTypes {
		if strings.HasSuffix(name, ct.suffix) {
			return ct.contentType
		}
	}
	return DefaultContentType
}
