package player

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/recordroom/internal/shared"
)

func TestTransport(t *testing.T) {
	t.Run("TransferPlayback", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]any

		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			if r.Method != http.MethodPut {
				t.Errorf("expected PUT, got %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer token-abc" {
				t.Errorf("unexpected authorization header %s", auth)
			}
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer backend.Close()

		transport := NewTransport(func() string { return "token-abc" }, nil)
		transport.SetBaseURL(backend.URL)

		if err := transport.TransferPlayback(context.Background(), "device1"); err != nil {
			t.Fatalf("transfer failed: %v", err)
		}
		if gotPath != "/me/player" {
			t.Errorf("expected /me/player, got %s", gotPath)
		}

		devices, ok := gotBody["device_ids"].([]any)
		if !ok || len(devices) != 1 || devices[0] != "device1" {
			t.Errorf("unexpected device_ids %v", gotBody["device_ids"])
		}
		if play, ok := gotBody["play"].(bool); !ok || !play {
			t.Errorf("expected play true, got %v", gotBody["play"])
		}
	})

	t.Run("Play", func(t *testing.T) {
		var gotURL string
		var gotBody map[string]any

		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotURL = r.URL.String()
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer backend.Close()

		transport := NewTransport(func() string { return "token-abc" }, nil)
		transport.SetBaseURL(backend.URL)

		if err := transport.Play(context.Background(), "device1", "spotify:track:1"); err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if gotURL != "/me/player/play?device_id=device1" {
			t.Errorf("unexpected URL %s", gotURL)
		}

		uris, ok := gotBody["uris"].([]any)
		if !ok || len(uris) != 1 || uris[0] != "spotify:track:1" {
			t.Errorf("unexpected uris %v", gotBody["uris"])
		}
		if pos, ok := gotBody["position_ms"].(float64); !ok || pos != 0 {
			t.Errorf("expected position_ms 0, got %v", gotBody["position_ms"])
		}
	})

	t.Run("StatusMapping", func(t *testing.T) {
		cases := []struct {
			name   string
			status int
			want   error
		}{
			{"RateLimited", http.StatusTooManyRequests, shared.ErrRateLimited},
			{"Unauthorized", http.StatusUnauthorized, shared.ErrNotAuthenticated},
			{"ServerError", http.StatusBadGateway, shared.ErrPlaybackFailed},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tc.status)
				}))
				defer backend.Close()

				transport := NewTransport(func() string { return "token-abc" }, nil)
				transport.SetBaseURL(backend.URL)

				err := transport.Play(context.Background(), "device1", "spotify:track:1")
				if !errors.Is(err, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, err)
				}
			})
		}
	})

	t.Run("AcceptsOKAndNoContent", func(t *testing.T) {
		for _, status := range []int{http.StatusOK, http.StatusNoContent} {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))

			transport := NewTransport(func() string { return "token-abc" }, nil)
			transport.SetBaseURL(backend.URL)

			if err := transport.TransferPlayback(context.Background(), "device1"); err != nil {
				t.Errorf("status %d should succeed: %v", status, err)
			}
			backend.Close()
		}
	})
}
