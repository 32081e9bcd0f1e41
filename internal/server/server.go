package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"hakobune/internal/config"
	apperrors "hakobune/internal/errors"
	"hakobune/internal/logging"
	"hakobune/internal/protocol"
)

// Handler はパース済みのリクエストからレスポンスを決める
// req が nil のときは不正なリクエストとして扱うこと
type Handler interface {
	Dispatch(ctx context.Context, req *protocol.Request) *protocol.Response
}

// Server はTCP接続を受け付け、上限付きのワーカーで処理する
type Server struct {
	config  *config.Config
	handler Handler
	logger  *slog.Logger

	sem   *semaphore.Weighted
	wg    sync.WaitGroup
	stats *Stats
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, handler Handler, logger *slog.Logger) *Server {
	return &Server{
		config:  cfg,
		handler: handler,
		logger:  logger,
		sem:     semaphore.NewWeighted(int64(cfg.MaxThreads)),
		stats:   newStats(),
	}
}

// Stats は稼働状況のカウンタを返す
func (s *Server) Stats() *Stats {
	return s.stats
}

// Start はサーバーを起動する
// コンテキストのキャンセルかSIGINT/SIGTERMで停止し、処理中の接続を待ってから戻る
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ServerAddress())
	if err != nil {
		return fmt.Errorf("ポート %d のリッスンに失敗: %w", s.config.Port, err)
	}
	s.logger.Info("サーバーを起動しています",
		"address", ln.Addr().String(),
		"workers", s.config.MaxThreads,
		"root", s.config.RootDirectory)

	// シグナルハンドリング
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Serve(gctx, ln)
	})

	if s.config.AdminPort > 0 {
		admin := &http.Server{
			Addr:    s.config.AdminAddress(),
			Handler: NewAdminRouter(s),
		}
		g.Go(func() error {
			s.logger.Info("管理用HTTPサーバーを起動しています", "address", admin.Addr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("管理用HTTPサーバーの起動に失敗: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout())
			defer cancel()
			return admin.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if ctx.Err() != nil {
		s.logger.Info("停止要求を受信しました", "cause", context.Cause(ctx))
	}

	// グレースフルシャットダウン
	s.Shutdown(s.config.ShutdownTimeout())
	return err
}

// Serve は ln が閉じられるかコンテキストがキャンセルされるまで接続を受け付ける
// 空きワーカーを確保してから Accept するので、全ワーカーが処理中の間は
// 新しい接続はOSの待ち行列に残る
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stopAccept := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stopAccept()

	var backoff time.Duration
	for {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil
		}

		conn, err := ln.Accept()
		if err != nil {
			s.sem.Release(1)
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// 一時的なエラーは待ってから再試行する
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(backoff*2, time.Second)
			}
			s.logger.Warn("接続の受け付けに失敗しました", "error", err, "retry_in", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0
		s.stats.accepted.Add(1)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			// 停止要求が来ても処理中のリクエストは最後まで応答する
			s.handleConn(context.WithoutCancel(ctx), conn)
		}()
	}
}

// Shutdown は処理中のワーカーを最大 timeout まで待つ
// 待ちきれなかった場合は false を返す
func (s *Server) Shutdown(timeout time.Duration) bool {
	s.logger.Info("サーバーをシャットダウンしています...", "busy", s.stats.busy.Load())

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("サーバーが正常にシャットダウンされました")
		return true
	case <-time.After(timeout):
		s.logger.Warn("処理中の接続を残してシャットダウンします", "busy", s.stats.busy.Load())
		return false
	}
}

// handleConn は1接続につき1リクエストを処理して接続を閉じる
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	logger := s.logger.With(logging.ConnKey, uuid.NewString(), "remote", conn.RemoteAddr().String())

	s.stats.busy.Add(1)
	defer s.stats.busy.Add(-1)
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("接続のクローズに失敗しました", "error", err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			s.stats.failed.Add(1)
			logger.Error("ワーカーでパニックが発生しました", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if d := s.config.ReadTimeout(); d > 0 {
		conn.SetReadDeadline(time.Now().Add(d))
	}

	req, err := protocol.ReadRequestWithLimits(bufio.NewReader(conn), protocol.Limits{
		MaxLineBytes: protocol.DefaultLimits.MaxLineBytes,
		MaxBodyBytes: s.config.MaxBodyBytes,
	})
	if err != nil {
		if !apperrors.Is(err, apperrors.MalformedRequest) {
			s.stats.failed.Add(1)
			logger.Warn("リクエストの読み込みに失敗しました", "error", err)
			return
		}
		logger.Info("不正なリクエストを受信しました", "error", err)
		req = nil
	}

	res := s.handler.Dispatch(ctx, req)

	if d := s.config.WriteTimeout(); d > 0 {
		conn.SetWriteDeadline(time.Now().Add(d))
	}
	if err := protocol.WriteResponse(conn, res); err != nil {
		s.stats.failed.Add(1)
		logger.Warn("レスポンスの書き込みに失敗しました", "status", res.Status, "error", err)
		return
	}

	s.stats.record(res.Status)
	if req != nil {
		logger.Info("リクエストを処理しました", "method", req.Method(), "path", req.Path(), "status", res.Status)
	} else {
		logger.Info("リクエストを処理しました", "status", res.Status)
	}
}
