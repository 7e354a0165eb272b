// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/partyq/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, then initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.SpotifyAuth,
			},
			{
				Name:  "playlists",
				Usage: "List Spotify playlists",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SpotifyPlaylists,
			},
			{
				Name:      "export",
				Usage:     "Archive playlists to files, one per playlist",
				ArgsUsage: "<playlist-id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (text, csv, md, json)",
						Value:   formatter.FormatJSON,
					},
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Output directory (defaults to playlists_<epoch>)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent exports",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export every playlist in the account",
					},
				},
				Action: r.SpotifyExport,
			},
		},
	}
}

// authCommand handles admin credentials
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage admin credentials",
		Commands: []*cli.Command{
			{
				Name:  "hash",
				Usage: "Print a bcrypt hash for auth.admin_password_hash",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "password"},
				},
				Action: r.AuthHash,
			},
			{
				Name:  "token",
				Usage: "Issue an admin token using the configured credentials",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "password"},
				},
				Action: r.AuthToken,
			},
		},
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the party API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

// sessionCommand handles the party session lifecycle
func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Start, inspect and end party sessions",
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start a session from a playlist, replacing the current track list",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Spotify playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Session name (defaults to the playlist name)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SessionStart,
			},
			{
				Name:  "end",
				Usage: "End a session by ID",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.SessionEnd,
			},
			{
				Name:  "show",
				Usage: "Show the active session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SessionShow,
			},
		},
	}
}

// tracksCommand handles the mirrored track list
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "Browse and queue mirrored tracks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List mirrored tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (text, csv, md, json)",
						Value:   formatter.FormatText,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Action: r.TracksList,
			},
			{
				Name:  "queue",
				Usage: "Queue a mirrored track on the active device",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.TracksQueue,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive session setup.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Pick a playlist and start a session interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file used while the TUI owns the terminal",
				Value: "partyq-tui.log",
			},
		},
		Action: r.TUI,
	}
}
