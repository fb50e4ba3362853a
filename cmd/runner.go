package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotstat/internal/repositories"
	"github.com/desertthunder/spotstat/internal/services"
	"github.com/desertthunder/spotstat/internal/shared"
	"github.com/desertthunder/spotstat/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built on first use from the loaded configuration unless provided up front.
type Runner struct {
	config     *shared.Config
	configPath string
	tokens     *services.TokenManager
	spotify    *services.SpotifyService
	events     *repositories.TokenEventRepository
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	palette    *ui.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Tokens     *services.TokenManager
	Spotify    *services.SpotifyService
	Events     *repositories.TokenEventRepository
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		tokens:     opts.Tokens,
		spotify:    opts.Spotify,
		events:     opts.Events,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    ui.Styles(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, authCommand, fetchCommand, eventsCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Load reads the env file and the config file, then applies environment overrides.
//
// A missing config file leaves the defaults in place.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnvFile(cmd.String("env-file")); err != nil {
		return ctx, err
	}

	r.configPath = cmd.String("config")
	config, err := shared.LoadConfig(r.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		config = shared.DefaultConfig()
	case err != nil:
		return ctx, err
	}

	config.ApplyEnv()
	if level := cmd.String("log-level"); level != "" {
		config.Log.Level = level
	}
	shared.SetLogLevel(r.logger, config.Log.Level)

	r.config = config
	return ctx, nil
}

// Close releases the events database, if one was opened.
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) client() *http.Client {
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: r.config.Spotify.Timeout.Duration}
	}
	return r.httpClient
}

// eventRepository opens the events database on first use. It returns nil when the log is disabled.
func (r *Runner) eventRepository() (*repositories.TokenEventRepository, error) {
	if r.events != nil {
		return r.events, nil
	}

	db, err := shared.OpenEventStore(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open events database: %w", err)
	}
	if db == nil {
		return nil, nil
	}

	r.db = db
	r.events = repositories.NewTokenEventRepository(db)
	return r.events, nil
}

func (r *Runner) tokenManager() (*services.TokenManager, error) {
	if r.tokens != nil {
		return r.tokens, nil
	}

	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	opts := services.TokenManagerOpts{
		Credentials: services.Credentials{
			ClientID:     r.config.Credentials.Spotify.ClientID,
			ClientSecret: r.config.Credentials.Spotify.ClientSecret,
			RedirectURI:  r.config.Credentials.Spotify.RedirectURI,
		},
		Endpoints: services.Endpoints{
			AuthURL:  r.config.Spotify.AuthURL,
			TokenURL: r.config.Spotify.TokenURL,
		},
		RefreshToken: r.config.Credentials.Spotify.RefreshToken,
		HTTPClient:   r.client(),
		Logger:       shared.WithLogger(r.logger, "component", "tokens"),
	}

	events, err := r.eventRepository()
	if err != nil {
		r.logger.Warn("token events will not be recorded", "error", err)
	} else if events != nil {
		opts.Events = events
	}

	r.tokens = services.NewTokenManager(opts)
	return r.tokens, nil
}

func (r *Runner) spotifyService() (*services.SpotifyService, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	tokens, err := r.tokenManager()
	if err != nil {
		return nil, err
	}

	logger := shared.WithLogger(r.logger, "component", "spotify")
	client := services.NewClient(tokens, r.client(), logger)
	r.spotify = services.NewSpotifyService(client, r.config.Spotify.APIURL, logger)
	return r.spotify, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
