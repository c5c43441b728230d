package player

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/recordroom/internal/shared"
)

// ConnectClient implements [Client] over the Spotify Connect Web API. The
// browser playback SDK has no Go counterpart, so this bridge polls the
// player endpoints and diffs the responses into the same event stream the SDK
// would deliver: device appearance becomes ready/not_ready, state responses
// become player_state_changed.
//
// ActivateElement is a no-op; autoplay policies are a browser concern.
type ConnectClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	token      func() string
	interval   time.Duration
	logger     *log.Logger

	mu        sync.Mutex
	listeners Listeners
	deviceID  string
	sawState  bool
	stop      chan struct{}
}

// ConnectClientOpts configures a [ConnectClient].
type ConnectClientOpts struct {
	// Name matches the Connect device to drive; empty selects the active
	// device.
	Name string
	// Token supplies the current bearer credential per request.
	Token func() string
	// Interval is the event poll cadence, default 1s.
	Interval   time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewConnectClient creates a ConnectClient.
func NewConnectClient(opts ConnectClientOpts) *ConnectClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &ConnectClient{
		name:       opts.Name,
		baseURL:    spotifyPlayerBaseURL,
		httpClient: opts.HTTPClient,
		token:      opts.Token,
		interval:   opts.Interval,
		logger:     opts.Logger,
	}
}

// SetBaseURL overrides the API base URL, for tests.
func (c *ConnectClient) SetBaseURL(u string) {
	c.baseURL = u
}

// AddListeners registers the event callbacks. Must be called before Connect.
func (c *ConnectClient) AddListeners(l Listeners) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = l
}

// Connect starts the poll loop that emits events.
func (c *ConnectClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}
	c.stop = make(chan struct{})
	go c.run(c.stop)
	return nil
}

// Disconnect stops event delivery.
func (c *ConnectClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.deviceID = ""
	c.sawState = false
}

// ActivateElement is a no-op for the Connect bridge.
func (c *ConnectClient) ActivateElement() error {
	return nil
}

// TogglePlay pauses or resumes depending on the current reported state.
func (c *ConnectClient) TogglePlay(ctx context.Context) error {
	cs, err := c.GetCurrentState(ctx)
	if err != nil {
		return err
	}
	if cs == nil {
		return shared.ErrNoActiveDevice
	}
	if cs.Paused {
		return c.put(ctx, "/me/player/play")
	}
	return c.put(ctx, "/me/player/pause")
}

// Resume resumes playback on the active device.
func (c *ConnectClient) Resume(ctx context.Context) error {
	return c.put(ctx, "/me/player/play")
}

// put issues a bodyless bearer-authenticated PUT against the player API. The
// play/pause endpoints answer 204 on success and 404 when no device is active.
func (c *ConnectClient) put(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status 401", shared.ErrNotAuthenticated)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: status 404", shared.ErrNoActiveDevice)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}

// playerResponse mirrors the GET /me/player payload.
type playerResponse struct {
	Device struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"device"`
	IsPlaying  bool `json:"is_playing"`
	ProgressMS int  `json:"progress_ms"`
	Item       *struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		URI     string `json:"uri"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Name   string `json:"name"`
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"album"`
		DurationMS int `json:"duration_ms"`
	} `json:"item"`
}

// GetCurrentState queries GET /me/player. Returns (nil, nil) when nothing is
// playing (204). Unlike the poll loop, direct queries carry no warm-up
// handling; the caller sees exactly what the endpoint reports.
func (c *ConnectClient) GetCurrentState(ctx context.Context) (*ClientState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me/player", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: status 401", shared.ErrNotAuthenticated)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var pr playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("failed to decode player state: %w", err)
	}

	return pr.toClientState(), nil
}

func (pr *playerResponse) toClientState() *ClientState {
	cs := &ClientState{
		Paused:     !pr.IsPlaying,
		PositionMS: pr.ProgressMS,
	}
	if pr.Item != nil {
		track := &Track{
			ID:        pr.Item.ID,
			URI:       pr.Item.URI,
			Name:      pr.Item.Name,
			AlbumName: pr.Item.Album.Name,
		}
		for _, a := range pr.Item.Artists {
			track.Artists = append(track.Artists, a.Name)
		}
		if len(pr.Item.Album.Images) > 0 {
			track.AlbumArtURL = pr.Item.Album.Images[0].URL
		}
		cs.Track = track
		cs.DurationMS = pr.Item.DurationMS
	}
	return cs
}

// run polls the player endpoints and diffs responses into events.
func (c *ConnectClient) run(stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.poll()
		}
	}
}

func (c *ConnectClient) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), c.interval)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me/player", nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.token())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("connect poll failed", "err", err)
		return
	}
	defer resp.Body.Close()

	c.mu.Lock()
	listeners := c.listeners
	hadDevice := c.deviceID != ""
	sawState := c.sawState
	c.mu.Unlock()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if listeners.AuthenticationError != nil {
			listeners.AuthenticationError(shared.ErrNotAuthenticated)
		}
		return
	case http.StatusForbidden:
		if listeners.AccountError != nil {
			listeners.AccountError(shared.ErrPremiumRequired)
		}
		return
	case http.StatusNoContent:
		// No playback context. Before any state was seen this is the warm-up
		// window, not a stop.
		if sawState && listeners.StateChanged != nil {
			listeners.StateChanged(nil)
		}
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("connect poll failed", "status", resp.StatusCode)
		return
	}

	var pr playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		io.Copy(io.Discard, resp.Body)
		return
	}

	if pr.Device.ID != "" && (c.name == "" || pr.Device.Name == c.name) {
		c.mu.Lock()
		changed := c.deviceID != pr.Device.ID
		c.deviceID = pr.Device.ID
		c.sawState = true
		c.mu.Unlock()

		if changed && listeners.Ready != nil {
			listeners.Ready(pr.Device.ID)
		}
		if listeners.StateChanged != nil {
			listeners.StateChanged(pr.toClientState())
		}
		return
	}

	if hadDevice {
		c.mu.Lock()
		c.deviceID = ""
		c.mu.Unlock()
		if listeners.NotReady != nil {
			listeners.NotReady()
		}
	}
}
