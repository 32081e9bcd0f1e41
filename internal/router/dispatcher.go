// Package router はパース済みリクエストを処理先に振り分ける
package router

import (
	"context"
	"log/slog"

	apperrors "hakobune/internal/errors"
	"hakobune/internal/form"
	"hakobune/internal/protocol"
)

// SubmitPath はフォーム受付用に予約されたパス
const SubmitPath = "/submit"

// Resolver は静的ファイルの解決を担う
type Resolver interface {
	Resolve(requestedPath string) *protocol.Response
}

// Dispatcher はリクエストからレスポンスを決める
// 判定順序は 400 → 501 → フォーム → 静的ファイル で固定
type Dispatcher struct {
	resolver Resolver
	sink     form.Sink
	logger   *slog.Logger
}

// NewDispatcher は新しいDispatcherを作成する
func NewDispatcher(resolver Resolver, sink form.Sink, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
		sink:     sink,
		logger:   logger,
	}
}

// Dispatch はレスポンスを返す
// req が nil のときはパースに失敗したものとして扱う
func (d *Dispatcher) Dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {
	if req == nil {
		return failure(apperrors.MalformedRequest)
	}

	if req.Method() != protocol.MethodGet && req.Method() != protocol.MethodPost {
		d.logger.DebugContext(ctx, "未対応のメソッドです", "method", req.Method())
		return failure(apperrors.UnsupportedMethod)
	}

	// メソッドとパスの両方が一致したときだけフォームとして扱う
	if req.Method() == protocol.MethodPost && req.Path() == SubmitPath {
		return d.handleSubmit(ctx, req)
	}

	d.logger.DebugContext(ctx, "リクエストを受信しました", "request", req.String())
	return d.resolver.Resolve(req.Path())
}

func (d *Dispatcher) handleSubmit(ctx context.Context, req *protocol.Request) *protocol.Response {
	s := form.NewSubmission(req.Parameters(), req.Referer(), req.UserAgent())
	if err := d.sink.Submit(ctx, s); err != nil {
		d.logger.ErrorContext(ctx, "フォームの受け渡しに失敗しました", "submission", s.ID, "error", err)
		return failure(apperrors.IOFailure)
	}
	return protocol.FormSubmitted()
}

// failure はエラーコードに対応する定型レスポンスを返す
func failure(code apperrors.ErrorCode) *protocol.Response {
	return protocol.ForStatus(apperrors.StatusFor(code))
}
