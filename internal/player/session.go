package player

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/recordroom/internal/shared"
)

const (
	// trackEndDebounce suppresses duplicate rapid-fire natural-end events.
	trackEndDebounce = 2000 * time.Millisecond
	// trackEndSettleDelay lets internal client state settle before the owner
	// issues the next play command.
	trackEndSettleDelay = 100 * time.Millisecond
	// resumeCheckDelay is how long after a play command the session waits
	// before checking whether the provider left playback paused.
	resumeCheckDelay = 1000 * time.Millisecond

	defaultPollInterval = time.Second
)

// State is the externally visible playback state: the provider-assigned
// device id, the current track, transport state, and position/duration in
// milliseconds.
type State struct {
	DeviceID   string
	Track      *Track
	Playing    bool
	PositionMS int
	DurationMS int
}

// Options configures a [Session].
type Options struct {
	// OnTrackEnd is invoked when a track is judged to have ended naturally.
	OnTrackEnd func()
	// OnError receives user-facing playback errors (authentication failures,
	// premium-required). Transient streamer errors never reach it.
	OnError func(err error)
	// PollInterval overrides the 1s position poll cadence.
	PollInterval time.Duration
	Logger       *log.Logger
}

// Session reconciles a playback client's asynchronous event stream into a
// consistent now-playing view, detects natural track completion, and exposes
// the imperative play/toggle operations.
//
// All state mutation funnels through the event handlers under one mutex; the
// debounce and resume-check timers are never cancelled, each one re-checks the
// state it depends on when it fires.
type Session struct {
	mu        sync.Mutex
	client    Client
	transport *Transport
	logger    *log.Logger

	onTrackEnd   func()
	onError      func(err error)
	pollInterval time.Duration

	// now is replaceable in tests to exercise the debounce window.
	now func() time.Time

	state State

	// Bookkeeping for track-end detection.
	prevTrackURI   string
	prevPlaying    bool
	lastTrackEnd   time.Time
	lastPlayFailed bool

	// streamerReady is set only once the first state-changed event arrives:
	// the client object exists before its internal transport does, and
	// querying too early throws a transient, ignorable error.
	streamerReady bool

	connected bool
	pollStop  chan struct{}
}

// NewSession creates a Session over the given client and transport.
func NewSession(client Client, transport *Transport, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Session{
		client:       client,
		transport:    transport,
		logger:       opts.Logger,
		onTrackEnd:   opts.OnTrackEnd,
		onError:      opts.OnError,
		pollInterval: opts.PollInterval,
		now:          time.Now,
	}
}

// Connect registers the event listeners and initiates the client connection.
// Idempotent while connected; reconnecting with a new token requires a fresh
// client instance, so disconnect first.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = true
	s.mu.Unlock()

	s.client.AddListeners(Listeners{
		Ready:        s.handleReady,
		NotReady:     s.handleNotReady,
		StateChanged: s.handleStateChanged,
		AuthenticationError: func(err error) {
			s.logger.Error("playback authentication failed", "err", err)
			s.reportError(shared.ErrAuthFailed)
		},
		AccountError: func(err error) {
			s.logger.Error("playback account error", "err", err)
			s.reportError(shared.ErrPremiumRequired)
		},
	})

	if err := s.client.Connect(ctx); err != nil {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		return err
	}

	return nil
}

// Disconnect tears down the client and resets the session to empty.
func (s *Session) Disconnect() {
	s.client.Disconnect()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.streamerReady = false
	s.state = State{}
	s.prevTrackURI = ""
	s.prevPlaying = false
	s.syncPollingLocked()
}

// Snapshot returns a copy of the current playback state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StreamerReady reports whether the first state-changed event has been
// observed.
func (s *Session) StreamerReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamerReady
}

func (s *Session) handleReady(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("playback device ready", "device_id", deviceID)
	s.state.DeviceID = deviceID
	s.syncPollingLocked()
}

func (s *Session) handleNotReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("playback device went away")
	s.state.DeviceID = ""
	s.streamerReady = false
	s.syncPollingLocked()
}

// handleStateChanged is the reconciliation point for the event stream. Events
// arrive in provider order; no ordering is guaranteed against in-flight HTTP
// calls, so the payload here always wins.
func (s *Session) handleStateChanged(cs *ClientState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cs == nil {
		// Playback fully stopped.
		s.state.Playing = false
		s.state.PositionMS = 0
		s.state.DurationMS = 0
		s.syncPollingLocked()
		return
	}

	// First event marks the client's internal transport as initialized.
	s.streamerReady = true

	var currentURI string
	if cs.Track != nil {
		currentURI = cs.Track.URI
	}

	wasPlaying := s.prevPlaying
	prevURI := s.prevTrackURI
	nowPlaying := !cs.Paused

	// A successfully playing track clears the failure guard.
	if nowPlaying && currentURI != "" {
		s.lastPlayFailed = false
	}

	// A track ended naturally iff it was playing, is now paused at position
	// 0, and the track identity did not change (a skip to a new track that
	// starts paused also lands at position 0). The provider emits no
	// explicit "ended" event; paused-at-zero is the completion signal.
	trackChanged := prevURI != "" && currentURI != prevURI
	endedNaturally := wasPlaying && cs.Paused && cs.PositionMS == 0 && !trackChanged

	if endedNaturally && s.onTrackEnd != nil && !s.lastPlayFailed {
		now := s.now()
		if now.Sub(s.lastTrackEnd) >= trackEndDebounce {
			s.lastTrackEnd = now
			cb := s.onTrackEnd
			time.AfterFunc(trackEndSettleDelay, cb)
		}
	}

	s.prevTrackURI = currentURI
	s.prevPlaying = nowPlaying

	s.state.Playing = nowPlaying
	s.state.Track = cs.Track
	s.state.PositionMS = cs.PositionMS
	s.state.DurationMS = cs.DurationMS

	s.syncPollingLocked()
}

// PlayTrack starts the given track URI on the session's device: activate the
// playback element, transfer playback to the device, then issue the play. A
// 429 at either step sets the failure guard so a subsequent paused-at-zero
// event cannot cascade into auto-advancing.
func (s *Session) PlayTrack(ctx context.Context, trackURI string) error {
	s.mu.Lock()
	if !s.connected || s.state.DeviceID == "" {
		s.mu.Unlock()
		return shared.ErrPlayerNotReady
	}
	deviceID := s.state.DeviceID
	s.lastPlayFailed = false
	s.mu.Unlock()

	if err := s.client.ActivateElement(); err != nil {
		s.markPlayFailed()
		return err
	}

	if err := s.transport.TransferPlayback(ctx, deviceID); err != nil {
		s.markPlayFailed()
		return err
	}

	if err := s.transport.Play(ctx, deviceID, trackURI); err != nil {
		s.markPlayFailed()
		return err
	}

	// The provider sometimes leaves playback paused after a successful play
	// request. Check once after a delay and resume; errors here are swallowed
	// since authoritative state arrives via the event listener regardless.
	time.AfterFunc(resumeCheckDelay, func() {
		if !s.StreamerReady() {
			return
		}
		checkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cs, err := s.client.GetCurrentState(checkCtx)
		if err != nil || cs == nil {
			return
		}
		if cs.Paused {
			if err := s.client.Resume(checkCtx); err != nil {
				s.logger.Debug("resume check failed", "err", err)
			}
		}
	})

	return nil
}

// TogglePlay flips between play and pause. Unlike the best-effort resume
// check, failures propagate so the caller can show them.
func (s *Session) TogglePlay(ctx context.Context) error {
	s.mu.Lock()
	if !s.connected || s.state.DeviceID == "" {
		s.mu.Unlock()
		return shared.ErrPlayerNotReady
	}
	s.mu.Unlock()

	if err := s.client.ActivateElement(); err != nil {
		return err
	}
	return s.client.TogglePlay(ctx)
}

func (s *Session) markPlayFailed() {
	s.mu.Lock()
	s.lastPlayFailed = true
	s.mu.Unlock()
}

func (s *Session) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// syncPollingLocked starts or stops the position poll strictly as a function
// of (playing, deviceID, streamerReady). Event delivery does not carry
// position continuously, so a 1s poll keeps the exposed position fresh while
// playing. Caller must hold s.mu.
func (s *Session) syncPollingLocked() {
	shouldPoll := s.state.Playing && s.state.DeviceID != "" && s.streamerReady

	if shouldPoll && s.pollStop == nil {
		stop := make(chan struct{})
		s.pollStop = stop
		go s.pollPosition(stop)
	} else if !shouldPoll && s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
}

func (s *Session) pollPosition(stop <-chan struct{}) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.pollInterval)
			cs, err := s.client.GetCurrentState(ctx)
			cancel()
			if err != nil {
				// Streamer-not-initialized errors are an expected artifact of
				// asynchronous client startup, not real failures.
				if !isStreamerError(err) {
					s.logger.Debug("position poll failed", "err", err)
				}
				continue
			}
			if cs == nil || cs.Paused {
				continue
			}

			s.mu.Lock()
			s.state.PositionMS = cs.PositionMS
			s.state.DurationMS = cs.DurationMS
			s.mu.Unlock()
		}
	}
}

// isStreamerError reports whether err is the transient "streamer not
// initialized" failure seen during the early-connection window.
func isStreamerError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, shared.ErrPlayerNotReady) {
		return true
	}
	return strings.Contains(err.Error(), "streamer")
}
