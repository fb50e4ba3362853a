package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/spotstat/internal/shared"
	tu "github.com/desertthunder/spotstat/internal/testing"
)

// newStubRunner points a runner at stub with refresh token R1 and the event log disabled.
func newStubRunner(t *testing.T, stub *tu.SpotifyStub) (*Runner, *bytes.Buffer) {
	t.Helper()

	config := shared.DefaultConfig()
	config.Spotify.AuthURL = stub.AuthURL()
	config.Spotify.TokenURL = stub.TokenURL()
	config.Spotify.APIURL = stub.APIURL()
	config.Credentials.Spotify.RefreshToken = "R1"
	config.Database.Path = ""

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		HTTPClient: stub.Server.Client(),
		Logger:     shared.NewLogger(io.Discard),
		Output:     output,
	})
	t.Cleanup(func() { runner.Close(context.Background(), nil) })
	return runner, output
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("prints items after a transparent refresh", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		stub.OnAPI("/me/top/tracks", tu.Reply(http.StatusOK, `{"items":[{"name":"Song"}]}`))
		runner, output := newStubRunner(t, stub)

		if err := fetchCommand(runner).Run(ctx, []string{"fetch", "top-tracks", "--pretty=false"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var items []map[string]string
		if err := json.Unmarshal(output.Bytes(), &items); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if len(items) != 1 || items[0]["name"] != "Song" {
			t.Errorf("unexpected items: %v", items)
		}
		if stub.Refreshes() != 1 {
			t.Errorf("expected one refresh, got %d", stub.Refreshes())
		}
	})

	t.Run("prints the fallback for an empty result", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		stub.OnAPI("/me/playlists", tu.Reply(http.StatusOK, `{"items":[]}`))
		runner, output := newStubRunner(t, stub)

		if err := fetchCommand(runner).Run(ctx, []string{"fetch", "playlists"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.TrimSpace(output.String()) != "No playlists found" {
			t.Errorf("expected fallback text, got %q", output.String())
		}
	})

	t.Run("surfaces upstream errors", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		stub.OnAPI("/me", tu.Reply(http.StatusForbidden, tu.APIError(http.StatusForbidden, "Insufficient client scope")))
		runner, _ := newStubRunner(t, stub)

		err := fetchCommand(runner).Run(ctx, []string{"fetch", "profile"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("rejects unknown resources", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		runner, _ := newStubRunner(t, stub)

		err := fetchCommand(runner).Run(ctx, []string{"fetch", "albums"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if stub.TokenRequests() != 0 {
			t.Errorf("expected no token requests, got %d", stub.TokenRequests())
		}
	})

	t.Run("requires a resource", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		runner, _ := newStubRunner(t, stub)

		err := fetchCommand(runner).Run(ctx, []string{"fetch"})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("url prints the authorization URL", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		runner, output := newStubRunner(t, stub)

		if err := authCommand(runner).Run(ctx, []string{"auth", "url"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		url := strings.TrimSpace(output.String())
		if !strings.HasPrefix(url, stub.AuthURL()+"?") {
			t.Errorf("expected URL under %s, got %s", stub.AuthURL(), url)
		}
		for _, want := range []string{"response_type=code", "client_id=your_spotify_client_id", "scope="} {
			if !strings.Contains(url, want) {
				t.Errorf("expected %s in %s", want, url)
			}
		}
	})

	t.Run("exchange prints the token pair", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		runner, output := newStubRunner(t, stub)

		if err := authCommand(runner).Run(ctx, []string{"auth", "exchange", "--code", "abc"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var pair map[string]any
		if err := json.Unmarshal(output.Bytes(), &pair); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if pair["access_token"] == "" || pair["refresh_token"] == "" {
			t.Errorf("expected tokens in output, got %v", pair)
		}
		if stub.Exchanges() != 1 {
			t.Errorf("expected one exchange, got %d", stub.Exchanges())
		}
	})

	t.Run("exchange requires a code", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		runner, _ := newStubRunner(t, stub)

		if err := authCommand(runner).Run(ctx, []string{"auth", "exchange"}); err == nil {
			t.Error("expected missing flag error")
		}
		if stub.Exchanges() != 0 {
			t.Errorf("expected no exchange, got %d", stub.Exchanges())
		}
	})

	t.Run("refresh reports the new token", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		runner, output := newStubRunner(t, stub)

		if err := authCommand(runner).Run(ctx, []string{"auth", "refresh"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "access token refreshed") {
			t.Errorf("expected confirmation, got %q", output.String())
		}
		if seen := stub.RefreshTokensSeen(); len(seen) != 1 || seen[0] != "R1" {
			t.Errorf("expected refresh with R1, got %v", seen)
		}
	})

	t.Run("refresh surfaces a rejection", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		stub.OnRefresh(tu.Reply(http.StatusBadRequest, `{"error":"invalid_grant"}`))
		runner, _ := newStubRunner(t, stub)

		err := authCommand(runner).Run(ctx, []string{"auth", "refresh"})
		if !errors.Is(err, shared.ErrUpstreamAuth) {
			t.Errorf("expected ErrUpstreamAuth, got %v", err)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		runner, _ := newStubRunner(t, stub)
		runner.config.Credentials.Spotify.ClientID = ""

		err := authCommand(runner).Run(ctx, []string{"auth", "refresh"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("lists recorded refreshes", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		runner, output := newStubRunner(t, stub)
		runner.config.Database.Path = filepath.Join(t.TempDir(), "events.db")

		if err := authCommand(runner).Run(ctx, []string{"auth", "refresh"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		output.Reset()

		if err := eventsCommand(runner).Run(ctx, []string{"events", "--json"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var events []eventView
		if err := json.Unmarshal(output.Bytes(), &events); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if len(events) != 1 {
			t.Fatalf("expected one event, got %d", len(events))
		}
		if events[0].Kind != "refresh" || events[0].Outcome != "success" {
			t.Errorf("unexpected event: %+v", events[0])
		}
	})

	t.Run("plain listing", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		runner, output := newStubRunner(t, stub)
		runner.config.Database.Path = filepath.Join(t.TempDir(), "events.db")

		if err := eventsCommand(runner).Run(ctx, []string{"events", "--prune", "1h"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "no events recorded") {
			t.Errorf("expected empty listing, got %q", output.String())
		}
	})

	t.Run("disabled event log", func(t *testing.T) {
		stub := tu.NewSpotifyStub(t)
		runner, _ := newStubRunner(t, stub)

		err := eventsCommand(runner).Run(ctx, []string{"events"})
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates config and database", func(t *testing.T) {
		originalDir := tu.MustGetwd(t)
		tempDir := t.TempDir()
		tu.MustChdir(t, tempDir)
		defer tu.MustChdir(t, originalDir)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: output})

		if err := setupCommand(runner).Run(ctx, []string{"setup"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(tempDir, "config.toml"))
		tu.AssertFileExists(t, filepath.Join(tempDir, "spotstat.db"))

		if !strings.Contains(tu.MustReadFile(t, filepath.Join(tempDir, "config.toml")), "[credentials.spotify]") {
			t.Error("expected config template to be written")
		}
		if !strings.Contains(output.String(), "database ready") {
			t.Errorf("expected database confirmation, got %q", output.String())
		}
	})

	t.Run("leaves an existing config alone", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := shared.CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config: %v", err)
		}

		config := shared.DefaultConfig()
		config.Database.Path = ""
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:     config,
			ConfigPath: configPath,
			Logger:     shared.NewLogger(io.Discard),
			Output:     output,
		})

		if err := setupCommand(runner).Run(ctx, []string{"setup"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "token event log disabled") {
			t.Errorf("expected disabled notice, got %q", output.String())
		}
	})

	t.Run("creates nested database directories", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")
		if err := shared.CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config: %v", err)
		}

		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(dir, "data", "events.db")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:     config,
			ConfigPath: configPath,
			Logger:     shared.NewLogger(io.Discard),
			Output:     output,
		})

		if err := setupCommand(runner).Run(ctx, []string{"setup"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertDirExists(t, filepath.Join(dir, "data"))
		tu.AssertFileExists(t, config.Database.Path)
		if !strings.Contains(output.String(), "database ready") {
			t.Errorf("expected database confirmation, got %q", output.String())
		}
	})
}
