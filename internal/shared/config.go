package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Spotify     EndpointsConfig   `toml:"spotify"`
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
//
// RefreshToken seeds the token manager at startup and is never written back.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	RefreshToken string `toml:"refresh_token"`
}

// EndpointsConfig points the OAuth and REST clients at the provider.
type EndpointsConfig struct {
	AuthURL  string   `toml:"auth_url"`
	TokenURL string   `toml:"token_url"`
	APIURL   string   `toml:"api_url"`
	Timeout  Duration `toml:"timeout"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host         string  `toml:"host"`
	Port         int     `toml:"port"`
	BasePath     string  `toml:"base_path"`
	RateLimit    float64 `toml:"rate_limit"` // requests per second, 0 disables
	Burst        int     `toml:"burst"`
	EagerRefresh bool    `toml:"eager_refresh"`
}

// DatabaseConfig contains settings for the token event log. An empty path disables it.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] that decodes from strings like "15s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// envKeys maps each credential field to the variables that may override it, in priority order.
var envKeys = map[string][]string{
	"client_id":     {"CLIENT_ID", "SPOTIFY_CLIENT_ID"},
	"client_secret": {"CLIENT_SECRET", "SPOTIFY_CLIENT_SECRET"},
	"refresh_token": {"REFRESH_TOKEN", "SPOTIFY_REFRESH_TOKEN"},
	"redirect_uri":  {"REDIRECT_URI", "SPOTIFY_REDIRECT"},
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Fields missing from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
//
// A missing file is not an error. Variables already set in the environment win.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides Spotify credentials with values from the environment.
func (c *Config) ApplyEnv() {
	fields := map[string]*string{
		"client_id":     &c.Credentials.Spotify.ClientID,
		"client_secret": &c.Credentials.Spotify.ClientSecret,
		"refresh_token": &c.Credentials.Spotify.RefreshToken,
		"redirect_uri":  &c.Credentials.Spotify.RedirectURI,
	}

	for field, target := range fields {
		for _, key := range envKeys[field] {
			if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
				*target = strings.TrimSpace(v)
				break
			}
		}
	}
}

// Validate reports missing credentials required to talk to the provider.
func (c *Config) Validate() error {
	var missing []string
	if c.Credentials.Spotify.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.Credentials.Spotify.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.Credentials.Spotify.RedirectURI == "" {
		missing = append(missing, "redirect_uri")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
