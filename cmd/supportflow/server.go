package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/api/handlers"
	"github.com/BaSui01/supportflow/internal/server"
)

// =============================================================================
// 🖥️ Server
// =============================================================================

// skipAuthPaths 探针与版本端点免认证
var skipAuthPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version"}

// Server 管理 API 与 Metrics 两个监听
type Server struct {
	app    *App
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	rateLimiterCancel context.CancelFunc
}

// NewServer 创建服务器
func NewServer(app *App) *Server {
	return &Server{app: app, logger: app.logger.With(zap.String("component", "server"))}
}

// Handler 构建 API 路由与中间件链
func (s *Server) Handler(ctx context.Context) http.Handler {
	cfg := s.app.cfg

	health := handlers.NewHealthHandler(handlers.VersionInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}, s.logger)
	for _, check := range s.app.checks {
		health.RegisterCheck(check)
	}
	ask := handlers.NewAskHandler(s.app.service, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.HandleFunc("GET /healthz", health.HandleHealth)
	mux.HandleFunc("GET /ready", health.HandleReady)
	mux.HandleFunc("GET /readyz", health.HandleReady)
	mux.HandleFunc("GET /version", health.HandleVersion)
	mux.HandleFunc("POST /api/v1/ask", ask.HandleAsk)

	if s.app.runs != nil {
		runs := handlers.NewRunsHandler(s.app.runs, s.logger)
		mux.HandleFunc("GET /api/v1/runs", runs.HandleList)
		mux.HandleFunc("GET /api/v1/runs/{id}", runs.HandleGet)
	}

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(s.app.telemetry.Tracer()),
		MetricsMiddleware(s.app.collector),
		RequestLogger(s.logger),
		CORS(cfg.Server.CORSAllowedOrigins),
	}
	if cfg.Server.RateLimitRPS > 0 {
		middlewares = append(middlewares, RateLimiter(ctx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, s.logger))
	}
	if len(cfg.Server.APIKeys) > 0 {
		middlewares = append(middlewares, APIKeyAuth(cfg.Server.APIKeys, skipAuthPaths, s.logger))
	}
	if cfg.Server.JWT.Secret != "" {
		middlewares = append(middlewares, JWTAuth(cfg.Server.JWT, skipAuthPaths, s.logger))
	}

	return Chain(mux, middlewares...)
}

// Start 启动 API 与 Metrics 服务（非阻塞）
func (s *Server) Start() error {
	cfg := s.app.cfg

	limiterCtx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel

	s.httpManager = server.NewManager("api", s.Handler(limiterCtx), server.ConfigFrom(cfg.Server, cfg.Server.HTTPPort), s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("start api server: %w", err)
	}

	if cfg.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metricsManager = server.NewManager("metrics", mux, server.ConfigFrom(cfg.Server, cfg.Server.MetricsPort), s.logger)
		if err := s.metricsManager.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	s.logger.Info("all servers started",
		zap.String("api_addr", s.httpManager.Addr()),
		zap.Int("metrics_port", cfg.Server.MetricsPort),
	)
	return nil
}

// Run 启动服务并阻塞到 ctx 结束或收到退出信号，随后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return errors.Join(err, s.Shutdown(context.Background()))
	}
	waitErr := s.httpManager.Wait(ctx)
	return errors.Join(waitErr, s.Shutdown(context.Background()))
}

// Shutdown 依次停止限流清理、API、Metrics 并释放应用组件
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("starting graceful shutdown")

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	var errs []error
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.app.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("graceful shutdown finished with errors", zap.Error(err))
		return err
	}
	s.logger.Info("graceful shutdown completed")
	return nil
}
