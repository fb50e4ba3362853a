package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spotstat/internal/server"
	"github.com/desertthunder/spotstat/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP service until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.tokenManager()
	if err != nil {
		return err
	}
	spotify, err := r.spotifyService()
	if err != nil {
		return err
	}

	if r.config.Server.EagerRefresh {
		if err := tokens.Bootstrap(ctx); err != nil {
			r.logger.Warn("startup refresh failed, the first request will retry", "error", err)
		}
	}

	handler := server.New(server.Options{
		Config:  r.config.Server,
		Tokens:  tokens,
		Library: spotify,
		Logger:  shared.WithLogger(r.logger, "component", "http"),
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.ListenAndServe(ctx, r.config.Server.Addr(), handler, r.logger)
}
