package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotstat/internal/shared"
)

const shutdownTimeout = 10 * time.Second

// TokenService is what the HTTP surface needs from the token manager.
type TokenService interface {
	Authorizer
	StatusReporter
}

// Options wires the HTTP surface.
type Options struct {
	Config  shared.ServerConfig
	Tokens  TokenService
	Library Library
	Logger  *log.Logger
}

// New builds the router with middleware and every route registered.
func New(opts Options) *BasicRouter {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	router := NewBasicRouter(opts.Config.BasePath)
	router.Use(
		Recover(logger),
		RequestID(),
		AccessLog(logger),
		RateLimit(NewLimiter(opts.Config.RateLimit, opts.Config.Burst)),
	)

	router.Handler(NewAuthHandler(opts.Tokens, logger))
	router.Handler(NewLibraryHandler(opts.Library, logger))
	router.Handler(NewHealthHandler(opts.Tokens))

	return router
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
