package auth

import (
	"fmt"
	"net/url"
	"strings"
)

const spotifyAuthorizeURL = "https://accounts.spotify.com/authorize"

// Scopes covers playlist reads, playback state reads and writes, streaming,
// and profile reads. The list is fixed; the room needs all of them.
var Scopes = []string{
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"streaming",
	"user-read-email",
	"user-read-private",
}

// Initiator builds provider authorization URLs for the PKCE login flow.
type Initiator struct {
	clientID     string
	redirectURI  string
	authorizeURL string
	store        VerifierStore
}

// NewInitiator creates an Initiator. The verifier for each login attempt is
// persisted in store for the exchange step.
func NewInitiator(clientID, redirectURI string, store VerifierStore) *Initiator {
	return &Initiator{
		clientID:     clientID,
		redirectURI:  redirectURI,
		authorizeURL: spotifyAuthorizeURL,
		store:        store,
	}
}

// SetAuthorizeURL overrides the provider authorization endpoint, for tests.
func (i *Initiator) SetAuthorizeURL(u string) {
	i.authorizeURL = u
}

// BuildAuthorizationURL generates a fresh verifier, stores it (overwriting any
// previous login attempt), and returns the provider authorization URL carrying
// the S256 challenge. The caller navigates the browser to the returned URL.
func (i *Initiator) BuildAuthorizationURL() (string, error) {
	if i.clientID == "" || i.redirectURI == "" {
		return "", fmt.Errorf("initiator missing client id or redirect uri")
	}

	verifier, err := GenerateVerifier(VerifierLength)
	if err != nil {
		return "", err
	}
	challenge := DeriveChallenge(verifier)

	if err := i.store.Put(verifier); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("client_id", i.clientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", i.redirectURI)
	params.Set("scope", strings.Join(Scopes, " "))
	params.Set("code_challenge_method", "S256")
	params.Set("code_challenge", challenge)

	return fmt.Sprintf("%s?%s", i.authorizeURL, params.Encode()), nil
}
