// Package static はURLパスをドキュメントルート配下のファイルに対応付けて配信する
package static

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	apperrors "hakobune/internal/errors"
	"hakobune/internal/protocol"
)

// PathPolicy はリクエストパス中の ".." の扱い
type PathPolicy string

const (
	// PolicyPreserve はルートとパスを単純に連結する
	PolicyPreserve PathPolicy = "preserve"
	// PolicySanitize は ".." セグメントを含むパスを404にする
	PolicySanitize PathPolicy = "sanitize"
)

// Options はResolverの設定
type Options struct {
	Root              string
	DefaultPage       string
	Policy            PathPolicy
	SniffUnknownTypes bool
}

// Resolver は静的ファイルを解決する
// 状態を持たないため複数ワーカーから同時に使える
type Resolver struct {
	fs     afero.Fs
	opts   Options
	logger *slog.Logger
}

// NewResolver は新しいResolverを作成する
func NewResolver(fs afero.Fs, opts Options, logger *slog.Logger) *Resolver {
	if opts.Policy == "" {
		opts.Policy = PolicyPreserve
	}
	return &Resolver{
		fs:     fs,
		opts:   opts,
		logger: logger,
	}
}

// Resolve はリクエストパスに対応するレスポンスを返す
func (r *Resolver) Resolve(requestedPath string) *protocol.Response {
	data, name, err := r.Load(requestedPath)
	if err != nil {
		status := apperrors.StatusFor(apperrors.CodeOf(err))
		if status == http.StatusInternalServerError {
			r.logger.Error("ファイルの読み込みに失敗しました", "path", name, "error", err)
		}
		return protocol.ForStatus(status)
	}

	return protocol.NewResponse(http.StatusOK, r.contentType(name, data), data)
}

// Load はファイル内容と解決後のパスを返す
// 見つからなければ ResourceNotFound、読み込み失敗は IOFailure
func (r *Resolver) Load(requestedPath string) ([]byte, string, error) {
	if r.opts.Policy == PolicySanitize && hasDotDotSegment(requestedPath) {
		return nil, "", apperrors.New(apperrors.ResourceNotFound, "親ディレクトリへの参照を拒否", nil)
	}

	name := r.FilePath(requestedPath)

	info, err := r.fs.Stat(name)
	if err != nil || info.IsDir() {
		return nil, name, apperrors.New(apperrors.ResourceNotFound, "ファイルが見つかりません", err)
	}

	data, err := afero.ReadFile(r.fs, name)
	if err != nil {
		return nil, name, apperrors.New(apperrors.IOFailure, "ファイルの読み込みに失敗", err)
	}
	return data, name, nil
}

// FilePath はルートとリクエストパスを連結したファイルパスを返す
// 区切り文字で終わる場合はデフォルトページを付け足す
func (r *Resolver) FilePath(requestedPath string) string {
	name := r.opts.Root + requestedPath
	if strings.HasSuffix(name, "/") || strings.HasSuffix(name, `\`) {
		name += r.opts.DefaultPage
	}
	return name
}

func (r *Resolver) contentType(name string, data []byte) string {
	ct := ContentType(name)
	if ct == DefaultContentType && r.opts.SniffUnknownTypes {
		return mimetype.Detect(data).String()
	}
	return ct
}

func hasDotDotSegment(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(c rune) bool { return c == '/' || c == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}
