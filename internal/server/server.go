package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"canteen/internal/config"
	"canteen/internal/middleware"
	"canteen/internal/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Server struct {
	e   *echo.Echo
	cfg config.Config
	log *slog.Logger
}

// New はechoを組み立ててルートを登録する
func New(cfg config.Config, log *slog.Logger, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("panic recovered", "error", err.Error(), "stack", string(stack))
			return err
		},
	}))
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(log))
	// 1リクエストの上限。超えたctxはDB側でDeadlineExceeded -> 503
	e.Use(echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Timeout: cfg.RequestTimeout,
	}))

	RegisterRoutes(e, cfg, h)

	return &Server{e: e, cfg: cfg, log: log}
}

// テストから httptest で叩く用
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start はShutdownされるまでブロックする
func (s *Server) Start() error {
	s.log.Info("server starting", "addr", s.cfg.Addr())
	if err := s.e.Start(s.cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.e.Shutdown(ctx)
}
