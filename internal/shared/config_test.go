package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./spotstat.db" {
			t.Errorf("expected database path ./spotstat.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Spotify.TokenURL != "https://accounts.spotify.com/api/token" {
			t.Errorf("expected spotify token URL, got %s", config.Spotify.TokenURL)
		}

		if config.Spotify.Timeout.Duration != 15*time.Second {
			t.Errorf("expected 15s timeout, got %v", config.Spotify.Timeout.Duration)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if !config.Server.EagerRefresh {
			t.Error("expected eager refresh to default to true")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[server]
host = "0.0.0.0"
port = 8080
base_path = "/api/spotify"

[spotify]
timeout = "2s"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/callback"
refresh_token = "R1"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Server.BasePath != "/api/spotify" {
			t.Errorf("expected base path /api/spotify, got %s", config.Server.BasePath)
		}

		if config.Spotify.Timeout.Duration != 2*time.Second {
			t.Errorf("expected 2s timeout, got %v", config.Spotify.Timeout.Duration)
		}

		if config.Spotify.APIURL != "https://api.spotify.com/v1" {
			t.Errorf("expected api url to keep default, got %s", config.Spotify.APIURL)
		}

		if config.Credentials.Spotify.RefreshToken != "R1" {
			t.Errorf("expected refresh token R1, got %s", config.Credentials.Spotify.RefreshToken)
		}
	})

	t.Run("LoadConfig With Invalid Duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[spotify]\ntimeout = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Run("overrides credentials", func(t *testing.T) {
			t.Setenv("CLIENT_ID", "env_id")
			t.Setenv("CLIENT_SECRET", "env_secret")
			t.Setenv("REFRESH_TOKEN", "env_refresh")
			t.Setenv("REDIRECT_URI", "http://example.com/callback")

			config := DefaultConfig()
			config.ApplyEnv()

			creds := config.Credentials.Spotify
			if creds.ClientID != "env_id" || creds.ClientSecret != "env_secret" {
				t.Errorf("expected env client credentials, got %s/%s", creds.ClientID, creds.ClientSecret)
			}
			if creds.RefreshToken != "env_refresh" {
				t.Errorf("expected env refresh token, got %s", creds.RefreshToken)
			}
			if creds.RedirectURI != "http://example.com/callback" {
				t.Errorf("expected env redirect uri, got %s", creds.RedirectURI)
			}
		})

		t.Run("accepts prefixed names", func(t *testing.T) {
			t.Setenv("SPOTIFY_CLIENT_ID", "prefixed_id")

			config := DefaultConfig()
			config.ApplyEnv()

			if config.Credentials.Spotify.ClientID != "prefixed_id" {
				t.Errorf("expected prefixed_id, got %s", config.Credentials.Spotify.ClientID)
			}
		})

		t.Run("ignores blank values", func(t *testing.T) {
			t.Setenv("CLIENT_ID", "   ")

			config := DefaultConfig()
			config.ApplyEnv()

			if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
				t.Errorf("expected file value to be kept, got %s", config.Credentials.Spotify.ClientID)
			}
		})
	})

	t.Run("LoadEnvFile", func(t *testing.T) {
		t.Run("missing file is ignored", func(t *testing.T) {
			if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("loads variables", func(t *testing.T) {
			envPath := filepath.Join(t.TempDir(), ".env")
			if err := os.WriteFile(envPath, []byte("SPOTSTAT_TEST_VALUE=from_file\n"), 0600); err != nil {
				t.Fatalf("failed to write env file: %v", err)
			}
			t.Setenv("SPOTSTAT_TEST_VALUE", "")
			os.Unsetenv("SPOTSTAT_TEST_VALUE")

			if err := LoadEnvFile(envPath); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := os.Getenv("SPOTSTAT_TEST_VALUE"); got != "from_file" {
				t.Errorf("expected from_file, got %q", got)
			}
		})
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.Validate(); err != nil {
			t.Errorf("expected default config to validate, got %v", err)
		}

		config.Credentials.Spotify.ClientSecret = ""
		err := config.Validate()
		if !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Addr", func(t *testing.T) {
		s := ServerConfig{Host: "127.0.0.1", Port: 3000}
		if s.Addr() != "127.0.0.1:3000" {
			t.Errorf("expected 127.0.0.1:3000, got %s", s.Addr())
		}
	})
}
