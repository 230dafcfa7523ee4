package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dcm-project/instance-dashboard/api/v1alpha1"
	"github.com/dcm-project/instance-dashboard/internal/api/server"
	"github.com/dcm-project/instance-dashboard/internal/config"
	"github.com/dcm-project/instance-dashboard/internal/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const gracefulShutdownTimeout = 5 * time.Second

type Server struct {
	cfg      *config.Config
	listener net.Listener
	handler  server.ServerInterface
	logger   log.Logger
}

func New(cfg *config.Config, listener net.Listener, handler server.ServerInterface, logger log.Logger) *Server {
	return &Server{
		cfg:      cfg,
		listener: listener,
		handler:  handler,
		logger:   logger,
	}
}

// NewRouter builds the dashboard API router. Requests under the API base URL
// are validated against the OpenAPI document before reaching handler.
// A non-empty staticDir is served at the root.
func NewRouter(handler server.ServerInterface, staticDir string) (chi.Router, error) {
	swagger, err := v1alpha1.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI spec: %w", err)
	}
	if len(swagger.Servers) == 0 {
		return nil, fmt.Errorf("OpenAPI spec missing servers configuration")
	}
	baseURL := swagger.Servers[0].URL

	validator, err := newRequestValidator(swagger, baseURL)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Group(func(r chi.Router) {
		r.Use(validator.Middleware)
		server.HandlerFromMuxWithBaseURL(handler, r, baseURL, handlers.ParamErrorHandler)
	})

	if staticDir != "" {
		router.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}
	return router, nil
}

func (s *Server) Run(ctx context.Context) error {
	router, err := NewRouter(s.handler, s.cfg.Service.StaticDir)
	if err != nil {
		return err
	}

	srv := http.Server{Handler: router}

	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
	}()

	level.Info(s.logger).Log("msg", "serving dashboard API", "address", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
