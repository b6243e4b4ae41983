package server

import (
	"context"
	"net/http"
	"time"

	"github.com/parley-chat/parley/internal/logger"
)

// New creates an HTTP server with production timeout defaults.
func New(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Start begins listening and blocks until the server exits.
func Start(srv *http.Server) error {
	logger.Infof("server listening on %s", srv.Addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server, waiting up to timeout for
// active connections to drain.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	logger.Infof("shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
		return err
	}

	logger.Infof("HTTP server shutdown completed")
	return nil
}
