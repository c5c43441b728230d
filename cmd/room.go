package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/recordroom/internal/player"
	"github.com/desertthunder/recordroom/internal/shared"
	"github.com/desertthunder/recordroom/internal/tasks"
	"github.com/desertthunder/recordroom/internal/ui"
	"github.com/urfave/cli/v3"
)

// Room launches the interactive record room for the shared playlist.
func (r *Runner) Room(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	playlistID := cmd.String("playlist")
	if playlistID == "" {
		playlistID = r.config.Playlist.ID
	}
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id (set playlist.id or pass --playlist)", shared.ErrMissingArgument)
	}

	session, err := r.restoreSession()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/recordroom-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	svc := r.spotifyService(ctx, session)
	playlist, err := svc.Playlist(ctx, playlistID)
	if err != nil {
		return err
	}

	queue := tasks.NewQueue(playlist.AllTracks(), cmd.Bool("loop"))

	token := func() string { return session.AccessToken }
	pollInterval := time.Duration(r.config.Player.PollIntervalMS) * time.Millisecond

	client := player.NewConnectClient(player.ConnectClientOpts{
		Name:     r.config.Player.Name,
		Token:    token,
		Interval: pollInterval,
		Logger:   fileLogger,
	})
	transport := player.NewTransport(token, r.httpClient)

	var playback *player.Session
	playback = player.NewSession(client, transport, player.Options{
		PollInterval: pollInterval,
		Logger:       fileLogger,
		OnTrackEnd: func() {
			next := queue.Next()
			if next == nil {
				return
			}
			playCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := playback.PlayTrack(playCtx, next.URI); err != nil {
				fileLogger.Error("auto-advance failed", "track", next.URI, "err", err)
			}
		},
		OnError: func(err error) {
			fileLogger.Error("playback error", "err", err)
		},
	})

	if err := playback.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect playback: %w", err)
	}
	defer playback.Disconnect()

	model := ui.NewModel(ctx, playlist, playback, queue)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
