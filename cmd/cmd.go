// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize the config file and session database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// loginCommand handles authentication operations
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in to NetEase Cloud Music",
		Commands: []*cli.Command{
			{
				Name:   "qr",
				Usage:  "Log in by scanning a QR code with the mobile app",
				Action: r.LoginQR,
			},
			{
				Name:  "cookie",
				Usage: "Log in with a MUSIC_U session cookie",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "token"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL); the cookie is extracted from it",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
				},
				Action: r.LoginCookie,
			},
		},
		// Bare `cloudmatch login` runs the QR flow.
		Action: r.LoginQR,
	}
}

// logoutCommand clears the persisted session.
func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Clear the persisted session",
		Action: r.Logout,
	}
}

// whoamiCommand prints the authenticated identity.
func whoamiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the logged-in account",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Whoami,
	}
}

// songsCommand handles cloud locker operations
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "songs",
		Aliases: []string{"cloud"},
		Usage:   "Cloud locker operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List songs in the cloud locker",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "page",
						Usage: "1-based page to fetch",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Songs per page",
						Value: 200,
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
				Action: r.SongsList,
			},
			{
				Name:  "export",
				Usage: "Export the cloud locker to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown or text",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (format-dependent default)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Songs per page",
						Value: 200,
					},
				},
				Action: r.SongsExport,
			},
		},
	}
}

// matchCommand submits a song correction.
func matchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Match a cloud song to the correct track",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "song-id"},
			&cli.StringArg{Name: "target-id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the matched track in the browser on success",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Catalog page to search for the song",
				Value: 1,
			},
		},
		Action: r.Match,
	}
}

// logsCommand prints the activity log of the current run.
func logsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "Show match activity for this session",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Logs,
	}
}

// tuiCommand returns the top-level TUI command for interactive matching.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for cloud song matching",
		Action:  r.TUI,
	}
}
