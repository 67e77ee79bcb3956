// Package http 提供HTTP服务器功能
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wineclass/config"
)

// Server HTTP服务器
type Server struct {
	server          *http.Server
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

// NewServer 创建HTTP服务器。调用前需先通过Set*注入依赖。
func NewServer(cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	RegisterHandlers(mux)
	RegisterMonitorHandlers(mux)

	// 创建中间件链
	chain := Chain(
		RecoveryMiddleware(logger),
		RequestLogMiddleware(logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(cfg.AllowedOrigins),
		RequestSizeMiddleware(cfg.MaxBodyBytes),
	)

	return &Server{
		server: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      chain(mux),
			ReadTimeout:  cfg.ReadTimeout(),
			WriteTimeout: cfg.WriteTimeout(),
			IdleTimeout:  cfg.IdleTimeout(),
		},
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout(),
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}

// Handler 返回含完整中间件链的处理器
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
