package main

import (
	"context"
	"time"

	"github.com/desertthunder/spotstat/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthURL prints the authorization URL and optionally opens it.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.tokenManager()
	if err != nil {
		return err
	}

	url := tokens.AuthorizationURL()
	if err := r.writePlain("%s\n", url); err != nil {
		return err
	}

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}
	return nil
}

// AuthExchange trades an authorization code for tokens and prints them as JSON.
func (r *Runner) AuthExchange(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.tokenManager()
	if err != nil {
		return err
	}

	pair, err := tokens.ExchangeCode(ctx, cmd.String("code"))
	if err != nil {
		return err
	}

	r.logger.Info("store refresh_token in config.toml or REFRESH_TOKEN to skip this step next time")
	return r.writeJSON(pair, true)
}

// AuthRefresh refreshes the access token once.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.tokenManager()
	if err != nil {
		return err
	}

	if err := tokens.RefreshAccessToken(ctx); err != nil {
		return err
	}

	status := tokens.Status()
	r.writePlain("%s access token refreshed\n", r.palette.Check(status.HasAccessToken))
	if status.ExpiresAt != nil {
		r.writePlain("%s %s\n", r.palette.Help("expires:"), status.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}
