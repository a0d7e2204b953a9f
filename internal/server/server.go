package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"

	"entangled/internal/config"
	"entangled/internal/generated"
	"entangled/internal/relay"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	relay      *relay.Relay
	engine     *gin.Engine
	httpServer *http.Server
	log        logr.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, r *relay.Relay, log logr.Logger) (*Server, error) {
	log = log.WithName("server")

	handler, err := NewEntangledHandler(cfg, r, log)
	if err != nil {
		return nil, fmt.Errorf("ハンドラーの作成に失敗: %w", err)
	}

	assets, err := embeddedAssets()
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	s := &Server{
		config: cfg,
		relay:  r,
		engine: engine,
		log:    log,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	s.setupRoutes(handler, assets)

	return s, nil
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes(h *EntangledHandler, assets http.FileSystem) {
	// API（ヘルスチェックを含む）
	generated.RegisterHandlersWithOptions(s.engine, h, generated.GinServerOptions{
		ErrorHandler: func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, newErrorResponse("bad_request", "リクエストが不正です", err.Error()))
		},
	})

	// リアルタイム通信
	s.engine.GET("/ws", h.ServeWebSocket)

	// 静的ファイル
	s.engine.GET("/", h.ServeIndex)
	s.engine.StaticFS("/assets", assets)
	s.engine.Static("/static", s.config.Assets.Dir)

	s.engine.NoRoute(h.NotFound)
}

// Handler はルーティング済みのhttp.Handlerを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr は実際にリッスンしているアドレスを返す。起動前は設定上のアドレス
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ServerAddress()
}

// Start はサーバーを起動し、コンテキストのキャンセルかシグナルまでブロックする
func (s *Server) Start(ctx context.Context) error {
	// ポート使用中などの起動エラーはここで返す
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.log.Info("HTTPサーバーを起動しています", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの実行に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.log.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.log.Info("シグナルを受信しました", "signal", sig.String())
	case err := <-shutdownCh:
		s.relay.Close()
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.log.Info("サーバーをシャットダウンしています...")

	// 先に中継を止め、WebSocket/SSEの送信ループを終了させる
	s.relay.Close()

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	s.log.Info("サーバーが正常にシャットダウンされました")
	return nil
}
