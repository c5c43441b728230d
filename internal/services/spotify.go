package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/recordroom/internal/shared"
	"golang.org/x/oauth2"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// User represents the authenticated Spotify user's identity.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album represents a Spotify album.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
	URI    string  `json:"uri"`
}

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms"`
	URI        string   `json:"uri"`
}

// PlaylistTrack represents a track within a playlist context.
type PlaylistTrack struct {
	AddedAt string `json:"added_at"`
	Track   *Track `json:"track"`
}

type playlistTracks struct {
	Total int             `json:"total"`
	Next  *string         `json:"next"`
	Items []PlaylistTrack `json:"items"`
}

// Playlist represents the shared playlist with its full track listing.
type Playlist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Images      []Image        `json:"images"`
	Tracks      playlistTracks `json:"tracks"`
	URI         string         `json:"uri"`
}

// AllTracks returns the playlist's tracks, skipping null entries (removed or
// unavailable tracks come back as null items).
func (p *Playlist) AllTracks() []Track {
	tracks := make([]Track, 0, len(p.Tracks.Items))
	for _, item := range p.Tracks.Items {
		if item.Track != nil {
			tracks = append(tracks, *item.Track)
		}
	}
	return tracks
}

// SpotifyService is an authenticated Web API client. Uses [oauth2] to supply
// the bearer credential on every request.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client

	// onUnauthorized is invoked once per 401 so the owner can invalidate the
	// persisted session.
	onUnauthorized func()
}

// NewSpotifyService creates a client around an access token obtained from the
// PKCE exchange.
func NewSpotifyService(ctx context.Context, accessToken string) *SpotifyService {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	return &SpotifyService{
		baseURL:    spotifyBaseURL,
		httpClient: oauth2.NewClient(ctx, source),
	}
}

// SetBaseURL overrides the API base URL, for tests.
func (s *SpotifyService) SetBaseURL(u string) {
	s.baseURL = u
}

// SetUnauthorizedCallback registers a hook called when the API rejects the
// bearer credential.
func (s *SpotifyService) SetUnauthorizedCallback(fn func()) {
	s.onUnauthorized = fn
}

// get performs an authenticated GET and decodes the JSON response. absolute
// URLs (pagination `next` links) are used verbatim.
func (s *SpotifyService) get(ctx context.Context, endpoint string, result any) error {
	apiURL := endpoint
	if len(endpoint) == 0 || endpoint[0] == '/' {
		apiURL = s.baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if s.onUnauthorized != nil {
			s.onUnauthorized()
		}
		return fmt.Errorf("%w: status 401", shared.ErrNotAuthenticated)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: status 404", shared.ErrPlaylistNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile. A missing
// display name falls back to the account id.
func (s *SpotifyService) UserProfile(ctx context.Context) (*User, error) {
	var user User
	if err := s.get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	if user.DisplayName == "" {
		user.DisplayName = user.ID
	}
	return &user, nil
}

// Playlist retrieves a playlist by ID with its complete track listing,
// following pagination links until exhausted. A failed continuation page is
// tolerated: the tracks fetched so far are returned.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*Playlist, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	var playlist Playlist
	if err := s.get(ctx, fmt.Sprintf("/playlists/%s", playlistID), &playlist); err != nil {
		return nil, err
	}

	next := playlist.Tracks.Next
	for next != nil {
		var page playlistTracks
		if err := s.get(ctx, *next, &page); err != nil {
			break
		}
		playlist.Tracks.Items = append(playlist.Tracks.Items, page.Items...)
		next = page.Next
	}

	playlist.Tracks.Next = nil
	playlist.Tracks.Total = len(playlist.Tracks.Items)

	return &playlist, nil
}
