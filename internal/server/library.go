package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
)

// Library is the set of read-only queries exposed over HTTP. [*services.SpotifyService] implements it.
type Library interface {
	Profile(ctx context.Context) (json.RawMessage, error)
	LastPlayedTrack(ctx context.Context) (json.RawMessage, error)
	TopArtists(ctx context.Context) (json.RawMessage, error)
	TopTracks(ctx context.Context) ([]json.RawMessage, error)
	Playlists(ctx context.Context) ([]json.RawMessage, error)
	RecentlyPlayed(ctx context.Context) ([]json.RawMessage, error)
}

// Fallback bodies for empty results.
const (
	NoProfile        = "No profile found"
	NoTrack          = "No track found"
	NoArtists        = "No artists found"
	NoTracks         = "No tracks found"
	NoPlaylists      = "No playlists found"
	NoRecentlyPlayed = "No recently played tracks found"
)

// LibraryHandler relays [Library] results.
type LibraryHandler struct {
	lib    Library
	logger *log.Logger
}

func NewLibraryHandler(lib Library, logger *log.Logger) *LibraryHandler {
	return &LibraryHandler{lib: lib, logger: logger}
}

func (h *LibraryHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/me", Handler: document(h.lib.Profile, NoProfile, h.logger)},
		{Method: http.MethodGet, Path: "/last-played", Handler: document(h.lastPlayed, NoTrack, h.logger)},
		{Method: http.MethodGet, Path: "/top-artists", Handler: document(h.lib.TopArtists, NoArtists, h.logger)},
		{Method: http.MethodGet, Path: "/top-tracks", Handler: list(h.lib.TopTracks, NoTracks, h.logger)},
		{Method: http.MethodGet, Path: "/playlists", Handler: list(h.lib.Playlists, NoPlaylists, h.logger)},
		{Method: http.MethodGet, Path: "/recently-played", Handler: list(h.lib.RecentlyPlayed, NoRecentlyPlayed, h.logger)},
	}
}

// lastPlayed narrows the play history item to its track.
func (h *LibraryHandler) lastPlayed(ctx context.Context) (json.RawMessage, error) {
	item, err := h.lib.LastPlayedTrack(ctx)
	if err != nil || item == nil {
		return nil, err
	}
	track := gjson.GetBytes(item, "track")
	if !track.Exists() || track.Type == gjson.Null {
		return nil, nil
	}
	return json.RawMessage(track.Raw), nil
}

func document(fetch func(context.Context) (json.RawMessage, error), fallback string, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := fetch(r.Context())
		if err != nil {
			logger.Error("query failed", "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()), "error", err)
			writeError(w, http.StatusInternalServerError, errorMessage(err))
			return
		}
		if len(doc) == 0 {
			writeText(w, http.StatusOK, fallback)
			return
		}
		writeRawJSON(w, http.StatusOK, doc)
	}
}

func list(fetch func(context.Context) ([]json.RawMessage, error), fallback string, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := fetch(r.Context())
		if err != nil {
			logger.Error("query failed", "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()), "error", err)
			writeError(w, http.StatusInternalServerError, errorMessage(err))
			return
		}
		if len(items) == 0 {
			writeText(w, http.StatusOK, fallback)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}
