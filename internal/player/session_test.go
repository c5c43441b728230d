package player

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/recordroom/internal/shared"
)

// fakeClient is an in-process [Client] whose events are fired by the test.
type fakeClient struct {
	mu        sync.Mutex
	listeners Listeners

	connectErr  error
	activateErr error
	state       *ClientState
	stateErr    error

	resumeCalls atomic.Int32
	toggleCalls atomic.Int32
}

func (f *fakeClient) Connect(ctx context.Context) error { return f.connectErr }
func (f *fakeClient) Disconnect()                       {}
func (f *fakeClient) ActivateElement() error            { return f.activateErr }

func (f *fakeClient) TogglePlay(ctx context.Context) error {
	f.toggleCalls.Add(1)
	return nil
}

func (f *fakeClient) Resume(ctx context.Context) error {
	f.resumeCalls.Add(1)
	return nil
}

func (f *fakeClient) GetCurrentState(ctx context.Context) (*ClientState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.stateErr
}

func (f *fakeClient) setState(cs *ClientState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = cs
	f.stateErr = err
}

func (f *fakeClient) AddListeners(l Listeners) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = l
}

func (f *fakeClient) fireReady(deviceID string) {
	f.mu.Lock()
	l := f.listeners
	f.mu.Unlock()
	if l.Ready != nil {
		l.Ready(deviceID)
	}
}

func (f *fakeClient) fireNotReady() {
	f.mu.Lock()
	l := f.listeners
	f.mu.Unlock()
	if l.NotReady != nil {
		l.NotReady()
	}
}

func (f *fakeClient) fireStateChanged(cs *ClientState) {
	f.mu.Lock()
	l := f.listeners
	f.mu.Unlock()
	if l.StateChanged != nil {
		l.StateChanged(cs)
	}
}

func playingState(uri string, positionMS int) *ClientState {
	return &ClientState{
		Paused:     false,
		PositionMS: positionMS,
		DurationMS: 200000,
		Track:      &Track{URI: uri, Name: "Track"},
	}
}

func endedState(uri string) *ClientState {
	return &ClientState{
		Paused:     true,
		PositionMS: 0,
		DurationMS: 200000,
		Track:      &Track{URI: uri, Name: "Track"},
	}
}

// newTestTransport builds a Transport against an HTTP backend that always
// answers with status.
func newTestTransport(t *testing.T, status int) *Transport {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(backend.Close)

	transport := NewTransport(func() string { return "token" }, nil)
	transport.SetBaseURL(backend.URL)
	return transport
}

// waitForEnds polls until the counter reaches want or the deadline passes.
// The settle delay defers the callback, so a short wait is always needed.
func waitForEnds(t *testing.T, counter *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if counter.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	if counter.Load() != want {
		t.Fatalf("expected %d track-end callbacks, got %d", want, counter.Load())
	}
}

func assertNoMoreEnds(t *testing.T, counter *atomic.Int32, want int32) {
	t.Helper()
	time.Sleep(trackEndSettleDelay * 3)
	if got := counter.Load(); got != want {
		t.Fatalf("expected %d track-end callbacks, got %d", want, got)
	}
}

func TestSessionTrackEnd(t *testing.T) {
	newSession := func(t *testing.T) (*Session, *fakeClient, *atomic.Int32) {
		t.Helper()
		client := &fakeClient{}
		var ends atomic.Int32
		session := NewSession(client, newTestTransport(t, http.StatusNoContent), Options{
			OnTrackEnd: func() { ends.Add(1) },
		})
		if err := session.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		t.Cleanup(session.Disconnect)
		return session, client, &ends
	}

	t.Run("PausedAtZeroFires", func(t *testing.T) {
		_, client, ends := newSession(t)

		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 150000))
		client.fireStateChanged(endedState("spotify:track:1"))

		waitForEnds(t, ends, 1)
	})

	t.Run("TrackChangedDoesNotFire", func(t *testing.T) {
		_, client, ends := newSession(t)

		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 150000))
		client.fireStateChanged(endedState("spotify:track:2"))

		assertNoMoreEnds(t, ends, 0)
	})

	t.Run("PausedMidTrackDoesNotFire", func(t *testing.T) {
		_, client, ends := newSession(t)

		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 150000))

		mid := endedState("spotify:track:1")
		mid.PositionMS = 60000
		client.fireStateChanged(mid)

		assertNoMoreEnds(t, ends, 0)
	})

	t.Run("NotPlayingDoesNotFire", func(t *testing.T) {
		_, client, ends := newSession(t)

		client.fireReady("device1")
		// Never reported playing, so paused-at-zero is a cold start.
		client.fireStateChanged(endedState("spotify:track:1"))

		assertNoMoreEnds(t, ends, 0)
	})

	t.Run("DebounceSuppressesRapidRepeat", func(t *testing.T) {
		session, client, ends := newSession(t)

		base := time.Now()
		session.mu.Lock()
		session.now = func() time.Time { return base }
		session.mu.Unlock()

		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 150000))
		client.fireStateChanged(endedState("spotify:track:1"))
		waitForEnds(t, ends, 1)

		// Second completion inside the debounce window.
		session.mu.Lock()
		session.now = func() time.Time { return base.Add(trackEndDebounce / 2) }
		session.mu.Unlock()

		client.fireStateChanged(playingState("spotify:track:1", 150000))
		client.fireStateChanged(endedState("spotify:track:1"))
		assertNoMoreEnds(t, ends, 1)

		// Past the window it fires again.
		session.mu.Lock()
		session.now = func() time.Time { return base.Add(trackEndDebounce + time.Millisecond) }
		session.mu.Unlock()

		client.fireStateChanged(playingState("spotify:track:1", 150000))
		client.fireStateChanged(endedState("spotify:track:1"))
		waitForEnds(t, ends, 2)
	})

	t.Run("FailureGuardSuppresses", func(t *testing.T) {
		client := &fakeClient{}
		var ends atomic.Int32
		session := NewSession(client, newTestTransport(t, http.StatusTooManyRequests), Options{
			OnTrackEnd: func() { ends.Add(1) },
		})
		if err := session.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		t.Cleanup(session.Disconnect)

		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 150000))

		err := session.PlayTrack(context.Background(), "spotify:track:2")
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}

		// A paused-at-zero event after a failed play is fallout from the
		// failure, not a completed listen.
		client.fireStateChanged(endedState("spotify:track:1"))
		assertNoMoreEnds(t, &ends, 0)

		// A successfully playing track clears the guard.
		client.fireStateChanged(playingState("spotify:track:1", 1000))
		client.fireStateChanged(endedState("spotify:track:1"))
		waitForEnds(t, &ends, 1)
	})
}

func TestSessionResumeCheck(t *testing.T) {
	newSession := func(t *testing.T) (*Session, *fakeClient) {
		t.Helper()
		client := &fakeClient{}
		session := NewSession(client, newTestTransport(t, http.StatusNoContent), Options{})
		if err := session.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		t.Cleanup(session.Disconnect)
		return session, client
	}

	// waitForResume polls until Resume has been called once or the deadline
	// passes. The check fires resumeCheckDelay after a successful play.
	waitForResume := func(t *testing.T, client *fakeClient) {
		t.Helper()
		deadline := time.Now().Add(resumeCheckDelay * 3)
		for time.Now().Before(deadline) {
			if client.resumeCalls.Load() >= 1 {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Fatalf("expected a resume call, got %d", client.resumeCalls.Load())
	}

	t.Run("ResumesWhenLeftPaused", func(t *testing.T) {
		session, client := newSession(t)

		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 1000))
		// The provider accepted the play but reports the track paused.
		client.setState(endedState("spotify:track:2"), nil)

		if err := session.PlayTrack(context.Background(), "spotify:track:2"); err != nil {
			t.Fatalf("play failed: %v", err)
		}

		waitForResume(t, client)
	})

	t.Run("SkipsWhenPlaying", func(t *testing.T) {
		session, client := newSession(t)

		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 1000))
		client.setState(playingState("spotify:track:2", 500), nil)

		if err := session.PlayTrack(context.Background(), "spotify:track:2"); err != nil {
			t.Fatalf("play failed: %v", err)
		}

		time.Sleep(resumeCheckDelay + 300*time.Millisecond)
		if got := client.resumeCalls.Load(); got != 0 {
			t.Errorf("expected no resume calls, got %d", got)
		}
	})

	t.Run("SkipsBeforeStreamerReady", func(t *testing.T) {
		session, client := newSession(t)

		// Device reported but no state event yet, so the streamer is not ready
		// and the check must not query it.
		client.fireReady("device1")
		client.setState(endedState("spotify:track:2"), nil)

		if err := session.PlayTrack(context.Background(), "spotify:track:2"); err != nil {
			t.Fatalf("play failed: %v", err)
		}

		time.Sleep(resumeCheckDelay + 300*time.Millisecond)
		if got := client.resumeCalls.Load(); got != 0 {
			t.Errorf("expected no resume calls, got %d", got)
		}
	})
}

func TestSessionState(t *testing.T) {
	newSession := func(t *testing.T, transport *Transport) (*Session, *fakeClient) {
		t.Helper()
		client := &fakeClient{}
		session := NewSession(client, transport, Options{})
		if err := session.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		t.Cleanup(session.Disconnect)
		return session, client
	}

	t.Run("ReadyAssignsDevice", func(t *testing.T) {
		session, client := newSession(t, newTestTransport(t, http.StatusNoContent))

		client.fireReady("device1")
		if got := session.Snapshot().DeviceID; got != "device1" {
			t.Errorf("expected device1, got %s", got)
		}

		client.fireNotReady()
		if got := session.Snapshot().DeviceID; got != "" {
			t.Errorf("expected empty device id, got %s", got)
		}
	})

	t.Run("StreamerReadyOnFirstState", func(t *testing.T) {
		session, client := newSession(t, newTestTransport(t, http.StatusNoContent))

		if session.StreamerReady() {
			t.Error("streamer should not be ready before any state event")
		}

		client.fireStateChanged(playingState("spotify:track:1", 0))
		if !session.StreamerReady() {
			t.Error("first state event should mark the streamer ready")
		}

		client.fireNotReady()
		if session.StreamerReady() {
			t.Error("device loss should clear streamer readiness")
		}
	})

	t.Run("NilStateResets", func(t *testing.T) {
		session, client := newSession(t, newTestTransport(t, http.StatusNoContent))

		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 42000))

		client.fireStateChanged(nil)
		state := session.Snapshot()
		if state.Playing {
			t.Error("nil state should stop playback")
		}
		if state.PositionMS != 0 || state.DurationMS != 0 {
			t.Errorf("nil state should zero position, got %d/%d", state.PositionMS, state.DurationMS)
		}
	})

	t.Run("SnapshotTracksEvents", func(t *testing.T) {
		session, client := newSession(t, newTestTransport(t, http.StatusNoContent))

		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 42000))

		state := session.Snapshot()
		if !state.Playing {
			t.Error("expected playing state")
		}
		if state.PositionMS != 42000 {
			t.Errorf("expected position 42000, got %d", state.PositionMS)
		}
		if state.Track == nil || state.Track.URI != "spotify:track:1" {
			t.Errorf("unexpected track %+v", state.Track)
		}
	})

	t.Run("PlayTrackRequiresDevice", func(t *testing.T) {
		session, _ := newSession(t, newTestTransport(t, http.StatusNoContent))

		err := session.PlayTrack(context.Background(), "spotify:track:1")
		if !errors.Is(err, shared.ErrPlayerNotReady) {
			t.Errorf("expected ErrPlayerNotReady, got %v", err)
		}
	})

	t.Run("TogglePlayRequiresDevice", func(t *testing.T) {
		session, _ := newSession(t, newTestTransport(t, http.StatusNoContent))

		err := session.TogglePlay(context.Background())
		if !errors.Is(err, shared.ErrPlayerNotReady) {
			t.Errorf("expected ErrPlayerNotReady, got %v", err)
		}
	})

	t.Run("TogglePlayDelegates", func(t *testing.T) {
		session, client := newSession(t, newTestTransport(t, http.StatusNoContent))

		client.fireReady("device1")
		if err := session.TogglePlay(context.Background()); err != nil {
			t.Fatalf("toggle failed: %v", err)
		}
		if client.toggleCalls.Load() != 1 {
			t.Errorf("expected one toggle call, got %d", client.toggleCalls.Load())
		}
	})

	t.Run("DisconnectResets", func(t *testing.T) {
		client := &fakeClient{}
		session := NewSession(client, newTestTransport(t, http.StatusNoContent), Options{})
		if err := session.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}

		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 42000))

		session.Disconnect()
		state := session.Snapshot()
		if state.DeviceID != "" || state.Playing {
			t.Errorf("disconnect should reset state, got %+v", state)
		}
		if session.StreamerReady() {
			t.Error("disconnect should clear streamer readiness")
		}
	})
}

func TestSessionPolling(t *testing.T) {
	t.Run("PollsWhilePlaying", func(t *testing.T) {
		client := &fakeClient{}
		session := NewSession(client, newTestTransport(t, http.StatusNoContent), Options{
			PollInterval: 10 * time.Millisecond,
		})
		if err := session.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		t.Cleanup(session.Disconnect)

		client.setState(playingState("spotify:track:1", 99000), nil)
		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 1000))

		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if session.Snapshot().PositionMS == 99000 {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("poll never refreshed position, got %d", session.Snapshot().PositionMS)
	})

	t.Run("StopsWhenPaused", func(t *testing.T) {
		client := &fakeClient{}
		session := NewSession(client, newTestTransport(t, http.StatusNoContent), Options{
			PollInterval: 10 * time.Millisecond,
		})
		if err := session.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		t.Cleanup(session.Disconnect)

		client.fireReady("device1")
		client.fireStateChanged(playingState("spotify:track:1", 1000))

		session.mu.Lock()
		if session.pollStop == nil {
			t.Error("expected polling while playing")
		}
		session.mu.Unlock()

		paused := playingState("spotify:track:1", 1000)
		paused.Paused = true
		client.fireStateChanged(paused)

		session.mu.Lock()
		if session.pollStop != nil {
			t.Error("expected polling stopped while paused")
		}
		session.mu.Unlock()
	})

	t.Run("NoPollingWithoutDevice", func(t *testing.T) {
		client := &fakeClient{}
		session := NewSession(client, newTestTransport(t, http.StatusNoContent), Options{
			PollInterval: 10 * time.Millisecond,
		})
		if err := session.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		t.Cleanup(session.Disconnect)

		// Playing but no ready event yet.
		client.fireStateChanged(playingState("spotify:track:1", 1000))

		session.mu.Lock()
		if session.pollStop != nil {
			t.Error("polling must wait for a device id")
		}
		session.mu.Unlock()
	})
}

func TestSessionErrors(t *testing.T) {
	t.Run("AuthenticationErrorReported", func(t *testing.T) {
		client := &fakeClient{}
		var reported atomic.Value
		session := NewSession(client, newTestTransport(t, http.StatusNoContent), Options{
			OnError: func(err error) { reported.Store(err) },
		})
		if err := session.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		t.Cleanup(session.Disconnect)

		client.mu.Lock()
		l := client.listeners
		client.mu.Unlock()
		l.AuthenticationError(errors.New("bad token"))

		err, _ := reported.Load().(error)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}

		l.AccountError(errors.New("free tier"))
		err, _ = reported.Load().(error)
		if !errors.Is(err, shared.ErrPremiumRequired) {
			t.Errorf("expected ErrPremiumRequired, got %v", err)
		}
	})

	t.Run("ConnectPropagatesError", func(t *testing.T) {
		client := &fakeClient{connectErr: errors.New("connect refused")}
		session := NewSession(client, newTestTransport(t, http.StatusNoContent), Options{})

		if err := session.Connect(context.Background()); err == nil {
			t.Fatal("expected connect error")
		}

		// A failed connect leaves the session reconnectable.
		client.connectErr = nil
		if err := session.Connect(context.Background()); err != nil {
			t.Errorf("reconnect after failure should work: %v", err)
		}
		session.Disconnect()
	})

	t.Run("IsStreamerError", func(t *testing.T) {
		if !isStreamerError(shared.ErrPlayerNotReady) {
			t.Error("ErrPlayerNotReady is a streamer error")
		}
		if !isStreamerError(errors.New("streamer not initialized")) {
			t.Error("streamer text errors are streamer errors")
		}
		if isStreamerError(errors.New("network down")) {
			t.Error("unrelated errors are not streamer errors")
		}
		if isStreamerError(nil) {
			t.Error("nil is not a streamer error")
		}
	})
}
