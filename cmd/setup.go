package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spotstat/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the template when missing and runs the events migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file exists, leaving it alone", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		config.ApplyEnv()
		r.config = config
		r.writePlain("%s created %s\n", r.palette.Check(true), configPath)
	}

	if r.config.Database.Path == "" {
		r.writePlain("%s token event log disabled (database.path is empty)\n", r.palette.Warn("!"))
		return nil
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := shared.OpenEventStore(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.writePlain("%s database ready at %s\n", r.palette.Check(true), r.config.Database.Path)
	r.writePlain("%s\n", r.palette.Help("next: fill in [credentials.spotify], then run `spotstat auth url --open`"))
	return nil
}
