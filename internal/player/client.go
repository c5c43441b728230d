package player

import "context"

// Track describes the track a playback client is holding.
type Track struct {
	ID          string
	URI         string
	Name        string
	Artists     []string
	AlbumName   string
	AlbumArtURL string
}

// ClientState is a playback snapshot reported by a [Client], either through
// the state-changed event or a direct query.
type ClientState struct {
	Paused     bool
	PositionMS int
	DurationMS int
	Track      *Track
}

// Listeners bundles the event callbacks a [Client] delivers. A nil callback is
// simply not invoked.
//
// StateChanged receives nil when playback fully stops.
type Listeners struct {
	Ready               func(deviceID string)
	NotReady            func()
	StateChanged        func(state *ClientState)
	AuthenticationError func(err error)
	AccountError        func(err error)
}

// Client is the capability contract for a provider playback client. The
// browser SDK object is untyped; pinning the surface down here lets the
// session state machine run against a fake in tests and against the Connect
// API bridge in production.
//
// The client object may exist before its internal transport is initialized:
// GetCurrentState can fail with a transient error until the first
// state-changed event has been observed.
type Client interface {
	// Connect registers the client with the provider and starts event
	// delivery. The ready event follows asynchronously.
	Connect(ctx context.Context) error

	// Disconnect tears the client down. No events are delivered afterwards.
	Disconnect()

	// ActivateElement satisfies autoplay policies before the first playback
	// command. Implementations without such a constraint make it a no-op.
	ActivateElement() error

	TogglePlay(ctx context.Context) error
	Resume(ctx context.Context) error

	// GetCurrentState queries the live playback state. Returns (nil, nil)
	// when nothing is playing.
	GetCurrentState(ctx context.Context) (*ClientState, error)

	// AddListeners registers the event callbacks. Must be called before
	// Connect.
	AddListeners(l Listeners)
}
