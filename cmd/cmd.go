// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Create a config.toml from the embedded template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with Spotify using the PKCE flow",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in user",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Clear the persisted session",
				Action: r.AuthLogout,
			},
		},
	}
}

// serveCommand runs the trusted token-exchange backend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the token-exchange backend",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}

// notesCommand handles track note operations
func notesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "Manage notes on playlist tracks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notes for a track",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track-id"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.NotesList,
			},
			{
				Name:  "add",
				Usage: "Add a text or voice note to a track",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track-id"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "text",
						Usage: "Text note content",
					},
					&cli.StringFlag{
						Name:  "voice",
						Usage: "Path to a recorded voice note file",
					},
					&cli.IntFlag{
						Name:  "duration",
						Usage: "Voice note duration in seconds",
					},
				},
				Action: r.NotesAdd,
			},
			{
				Name:  "delete",
				Usage: "Delete one of your own notes",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "note-id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.NotesDelete,
			},
		},
	}
}

// playCommand starts a single track on the playback device.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a track on the playback device",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "uri"},
		},
		Flags:  []cli.Flag{configFlag()},
		Action: r.Play,
	}
}

// roomCommand launches the interactive record room.
func roomCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "room",
		Aliases: []string{"tui"},
		Usage:   "Open the record room for the shared playlist",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Playlist ID (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "loop",
				Usage: "Loop back to the first track after the last",
			},
		},
		Action: r.Room,
	}
}
