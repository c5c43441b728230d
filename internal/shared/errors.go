package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Login / token exchange errors. Exchange errors are terminal for the
	// authorization code in hand: codes are single-use, so the user restarts
	// the login flow rather than retrying.
	ErrMissingVerifier   = fmt.Errorf("no code verifier stored")
	ErrExchangeFailed    = fmt.Errorf("token exchange failed")
	ErrExchangeInFlight  = fmt.Errorf("token exchange already in progress")
	ErrMalformedResponse = fmt.Errorf("token response missing access token")
	ErrAuthFailed        = fmt.Errorf("authentication failed")
	ErrNotAuthenticated  = fmt.Errorf("not authenticated")

	// Playback errors
	ErrPlayerNotReady  = fmt.Errorf("player not ready")
	ErrRateLimited     = fmt.Errorf("rate limited by provider")
	ErrPlaybackFailed  = fmt.Errorf("playback request failed")
	ErrPremiumRequired = fmt.Errorf("premium account required for playback")
	ErrNoActiveDevice  = fmt.Errorf("no active playback device")

	// API and service errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTrackNotFound    = fmt.Errorf("track not found")

	// Notes errors
	ErrNoteNotFound  = fmt.Errorf("note not found")
	ErrNoteForbidden = fmt.Errorf("notes can only be deleted by their author")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
