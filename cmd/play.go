package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/recordroom/internal/player"
	"github.com/desertthunder/recordroom/internal/shared"
	"github.com/urfave/cli/v3"
)

// deviceWait bounds how long Play waits for the Connect device to report.
const deviceWait = 15 * time.Second

// Play starts a single track on the configured playback device and exits.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	uri := cmd.StringArg("uri")
	if uri == "" {
		return fmt.Errorf("%w: track uri", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(uri, "spotify:track:") {
		uri = "spotify:track:" + uri
	}

	session, err := r.restoreSession()
	if err != nil {
		return err
	}

	token := func() string { return session.AccessToken }
	pollInterval := time.Duration(r.config.Player.PollIntervalMS) * time.Millisecond

	client := player.NewConnectClient(player.ConnectClientOpts{
		Name:     r.config.Player.Name,
		Token:    token,
		Interval: pollInterval,
		Logger:   r.logger,
	})
	transport := player.NewTransport(token, r.httpClient)

	playback := player.NewSession(client, transport, player.Options{
		PollInterval: pollInterval,
		Logger:       r.logger,
	})
	if err := playback.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect playback: %w", err)
	}
	defer playback.Disconnect()

	r.logger.Info("waiting for playback device", "name", r.config.Player.Name)

	deadline := time.Now().Add(deviceWait)
	for playback.Snapshot().DeviceID == "" {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: no device reported within %s", shared.ErrPlayerNotReady, deviceWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}

	if err := playback.PlayTrack(ctx, uri); err != nil {
		return err
	}

	return r.writePlain("✓ Playing %s\n", uri)
}
