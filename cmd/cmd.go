// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Spotify user id",
		Sources:  cli.EnvVars("SPOTIFY_USER_ID"),
		Required: true,
	}
}

// setupCommand writes the config file, generates a vault key and prepares the store.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml, generate a vault key and run migrations",
		Action: r.Setup,
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to bind (defaults to server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (defaults to server.port)",
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify through a local callback server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "sync",
						Usage: "Import the library right after logging in",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "refresh",
				Usage:  "Refresh the stored access token of a user",
				Flags:  []cli.Flag{userFlag()},
				Action: r.AuthRefresh,
			},
		},
	}
}

// syncCommand imports playlists and tracks from the catalog.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Import playlists, tracks and liked songs into the store",
		Flags: []cli.Flag{
			userFlag(),
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Only sync the tracks of this playlist",
			},
			&cli.BoolFlag{
				Name:  "liked",
				Usage: "Only sync liked songs",
			},
			&cli.BoolFlag{
				Name:  "playlists-only",
				Usage: "Only sync the playlist list, without tracks",
			},
		},
		Action: r.Sync,
	}
}

// enrichCommand runs a credit-metered enrichment batch.
func enrichCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "enrich",
		Usage: "Classify tracks by genre and language, spending credits",
		Flags: []cli.Flag{
			userFlag(),
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Enrich every unenriched track of this playlist",
			},
			&cli.StringSliceFlag{
				Name:    "track",
				Aliases: []string{"t"},
				Usage:   "Track id to enrich (repeatable)",
			},
		},
		Action: r.Enrich,
	}
}

// creditsCommand inspects and tops up credit balances.
func creditsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "credits",
		Usage: "Inspect or grant enrichment credits",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show a user's balance",
				Flags:  []cli.Flag{userFlag()},
				Action: r.CreditsShow,
			},
			{
				Name:  "grant",
				Usage: "Add credits to a user's balance",
				Flags: []cli.Flag{
					userFlag(),
					&cli.IntFlag{
						Name:     "amount",
						Aliases:  []string{"n"},
						Usage:    "Credits to add",
						Required: true,
					},
				},
				Action: r.CreditsGrant,
			},
		},
	}
}

// playlistsCommand reads the stored library.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Browse and export stored playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List stored playlists",
				Flags:  []cli.Flag{userFlag()},
				Action: r.PlaylistsList,
			},
			{
				Name:  "tracks",
				Usage: "List the stored tracks of a playlist",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist id (liked_songs for liked songs)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Tracks to skip",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks (0 for all)",
						Value: 50,
					},
				},
				Action: r.PlaylistTracks,
			},
			{
				Name:  "export",
				Usage: "Export stored playlists to files",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringSliceFlag{
						Name:  "id",
						Usage: "Playlist id to export (repeatable, default all)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent exports",
						Value: 5,
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

// classifyCommand asks the oracle about one track without touching the store.
func classifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Classify a single track without storing or charging anything",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Usage:    "Track name",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:     "artist",
				Usage:    "Artist name (repeatable)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "album",
				Usage:    "Album name",
				Required: true,
			},
		},
		Action: r.Classify,
	}
}

// tuiCommand returns the top-level TUI command for browsing and enriching the library.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive library browser",
		Flags:   []cli.Flag{userFlag()},
		Action:  r.TUI,
	}
}
