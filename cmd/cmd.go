// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the HTTP service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP service",
		Action: r.Serve,
	}
}

// authCommand groups the OAuth steps
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify authorization-code and refresh-token flow",
		Commands: []*cli.Command{
			{
				Name:  "url",
				Usage: "Print the authorization URL",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the URL in the default browser",
					},
				},
				Action: r.AuthURL,
			},
			{
				Name:  "exchange",
				Usage: "Exchange an authorization code for tokens",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "code",
						Usage:    "Authorization code from the callback URL",
						Required: true,
					},
				},
				Action: r.AuthExchange,
			},
			{
				Name:   "refresh",
				Usage:  "Refresh the access token once and print the token status",
				Action: r.AuthRefresh,
			},
		},
	}
}

// fetchCommand runs one read-only query
func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Run one Spotify query and print the JSON result",
		UsageText: "spotstat fetch <profile|last-played|top-artists|top-tracks|playlists|recently-played>",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "resource",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Fetch,
	}
}

// eventsCommand lists the token lifecycle log
func eventsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "List recent token lifecycle events",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of events to show",
				Value: 20,
			},
			&cli.DurationFlag{
				Name:  "prune",
				Usage: "Delete events older than this age before listing (e.g. 720h)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Events,
	}
}

// setupCommand writes the config template and prepares the events database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml from the template and initialize the events database",
		Action: r.Setup,
	}
}
