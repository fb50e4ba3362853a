// Spotify Web API read-only queries.
//
// Response shapes: https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
)

// SpotifyAPIURL is the production Web API base.
const SpotifyAPIURL = "https://api.spotify.com/v1"

const (
	topArtistsLimit = 8
	playlistsLimit  = 5
)

// SpotifyService runs the read-only queries against the Web API through a [Client].
//
// Results are the provider's JSON, unwrapped from the pagination envelope where the
// endpoint has one. Empty results are nil, never errors.
type SpotifyService struct {
	client  *Client
	baseURL string
	logger  *log.Logger
}

// NewSpotifyService creates a [SpotifyService]. An empty baseURL uses [SpotifyAPIURL].
func NewSpotifyService(client *Client, baseURL string, logger *log.Logger) *SpotifyService {
	if baseURL == "" {
		baseURL = SpotifyAPIURL
	}
	if logger == nil {
		logger = client.logger
	}
	return &SpotifyService{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Profile returns the current user's profile.
func (s *SpotifyService) Profile(ctx context.Context) (json.RawMessage, error) {
	body, err := s.get(ctx, "/me", nil)
	if err != nil {
		return nil, err
	}
	return document(body), nil
}

// LastPlayedTrack returns the most recent play history item, or nil when there is none.
func (s *SpotifyService) LastPlayedTrack(ctx context.Context) (json.RawMessage, error) {
	body, err := s.get(ctx, "/me/player/recently-played", url.Values{"limit": {"1"}})
	if err != nil {
		return nil, err
	}

	first := gjson.GetBytes(body, "items.0")
	if !first.Exists() || first.Type == gjson.Null {
		return nil, nil
	}
	return json.RawMessage(first.Raw), nil
}

// TopArtists returns the top artists page, envelope included.
func (s *SpotifyService) TopArtists(ctx context.Context) (json.RawMessage, error) {
	body, err := s.get(ctx, "/me/top/artists", limit(topArtistsLimit))
	if err != nil {
		return nil, err
	}
	return document(body), nil
}

// TopTracks returns the tracks on the first top tracks page.
func (s *SpotifyService) TopTracks(ctx context.Context) ([]json.RawMessage, error) {
	return s.items(ctx, "/me/top/tracks", nil)
}

// Playlists returns the user's first playlists.
func (s *SpotifyService) Playlists(ctx context.Context) ([]json.RawMessage, error) {
	return s.items(ctx, "/me/playlists", limit(playlistsLimit))
}

// RecentlyPlayed returns one page of play history.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context) ([]json.RawMessage, error) {
	return s.items(ctx, "/me/player/recently-played", nil)
}

func (s *SpotifyService) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := s.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	resp, err := s.client.Execute(ctx, Request{Method: http.MethodGet, URL: target})
	if err != nil {
		s.logger.Error("spotify request failed", "path", path, "error", err)
		return nil, err
	}
	return resp.Body, nil
}

// items unwraps the "items" array of a paging object.
func (s *SpotifyService) items(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	body, err := s.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	arr := gjson.GetBytes(body, "items")
	if !arr.IsArray() {
		return nil, nil
	}

	var out []json.RawMessage
	arr.ForEach(func(_, item gjson.Result) bool {
		out = append(out, json.RawMessage(item.Raw))
		return true
	})
	return out, nil
}

func limit(n int) url.Values {
	return url.Values{"limit": {strconv.Itoa(n)}}
}

// document returns body unless it is blank or a JSON null.
func document(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.RawMessage(trimmed)
}
