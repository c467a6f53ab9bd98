// Package api exposes the reporting workflow, notifications, push
// registration and attendance over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, readHeaderTimeout time.Duration, logger *zap.Logger) *Server {
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 5 * time.Second
	}
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return &Server{httpServer: s, logger: logger}
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	s.logger.Info("starting prodreport HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests. Streaming handlers return once the
// live hub is closed, which the caller does first.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping prodreport HTTP server")
	return s.httpServer.Shutdown(ctx)
}
