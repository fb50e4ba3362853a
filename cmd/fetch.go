package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/spotstat/internal/server"
	"github.com/desertthunder/spotstat/internal/services"
	"github.com/desertthunder/spotstat/internal/shared"
	"github.com/urfave/cli/v3"
)

type fetcher struct {
	fallback string
	run      func(ctx context.Context, s *services.SpotifyService) (any, bool, error)
}

func document(fn func(*services.SpotifyService, context.Context) (json.RawMessage, error)) func(context.Context, *services.SpotifyService) (any, bool, error) {
	return func(ctx context.Context, s *services.SpotifyService) (any, bool, error) {
		doc, err := fn(s, ctx)
		return doc, len(doc) > 0, err
	}
}

func list(fn func(*services.SpotifyService, context.Context) ([]json.RawMessage, error)) func(context.Context, *services.SpotifyService) (any, bool, error) {
	return func(ctx context.Context, s *services.SpotifyService) (any, bool, error) {
		items, err := fn(s, ctx)
		return items, len(items) > 0, err
	}
}

var fetchers = map[string]fetcher{
	"profile":         {server.NoProfile, document((*services.SpotifyService).Profile)},
	"last-played":     {server.NoTrack, document((*services.SpotifyService).LastPlayedTrack)},
	"top-artists":     {server.NoArtists, document((*services.SpotifyService).TopArtists)},
	"top-tracks":      {server.NoTracks, list((*services.SpotifyService).TopTracks)},
	"playlists":       {server.NoPlaylists, list((*services.SpotifyService).Playlists)},
	"recently-played": {server.NoRecentlyPlayed, list((*services.SpotifyService).RecentlyPlayed)},
}

func resourceNames() string {
	names := make([]string, 0, len(fetchers))
	for name := range fetchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Fetch runs a single query and prints its JSON, or the fallback text for an empty result.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	resource := cmd.StringArg("resource")
	if resource == "" {
		return fmt.Errorf("%w: resource (one of %s)", shared.ErrMissingArgument, resourceNames())
	}

	f, ok := fetchers[resource]
	if !ok {
		return fmt.Errorf("%w: unknown resource %q (one of %s)", shared.ErrInvalidArgument, resource, resourceNames())
	}

	spotify, err := r.spotifyService()
	if err != nil {
		return err
	}

	result, found, err := f.run(ctx, spotify)
	if err != nil {
		return err
	}
	if !found {
		return r.writePlain("%s\n", f.fallback)
	}
	return r.writeJSON(result, cmd.Bool("pretty"))
}
