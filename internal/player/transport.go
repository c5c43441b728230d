package player

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/recordroom/internal/shared"
)

const spotifyPlayerBaseURL = "https://api.spotify.com/v1"

// Transport issues Web API transport-control calls (transfer playback, start
// a track). These are distinct from the event-driven client calls and require
// the device id assigned by the ready event.
//
// The token supplier is invoked per request so a session always authenticates
// with the latest in-scope token.
type Transport struct {
	baseURL    string
	httpClient *http.Client
	token      func() string
}

// NewTransport creates a Transport. httpClient defaults to
// [http.DefaultClient].
func NewTransport(token func() string, httpClient *http.Client) *Transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Transport{
		baseURL:    spotifyPlayerBaseURL,
		httpClient: httpClient,
		token:      token,
	}
}

// SetBaseURL overrides the API base URL, for tests.
func (t *Transport) SetBaseURL(u string) {
	t.baseURL = u
}

// TransferPlayback makes the given device the active playback target.
func (t *Transport) TransferPlayback(ctx context.Context, deviceID string) error {
	body := map[string]any{"device_ids": []string{deviceID}, "play": true}
	return t.put(ctx, "/me/player", body)
}

// Play starts the given track URI from position 0 on the device.
func (t *Transport) Play(ctx context.Context, deviceID, trackURI string) error {
	body := map[string]any{"uris": []string{trackURI}, "position_ms": 0}
	return t.put(ctx, fmt.Sprintf("/me/player/play?device_id=%s", deviceID), body)
}

// put issues an authenticated PUT and maps the response status to the
// playback error taxonomy. 429 is reported as [shared.ErrRateLimited] so
// callers can engage the failure guard.
func (t *Transport) put(ctx context.Context, endpoint string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.token())
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPlaybackFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		errText, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s", shared.ErrRateLimited, string(errText))
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status 401", shared.ErrNotAuthenticated)
	default:
		errText, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", shared.ErrPlaybackFailed, resp.StatusCode, string(errText))
	}
}
