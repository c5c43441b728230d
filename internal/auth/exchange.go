package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/desertthunder/recordroom/internal/shared"
)

// ExchangeClient trades an authorization code plus the stored verifier for an
// access token via the trusted backend. The backend holds the client secret;
// this client never sees it.
type ExchangeClient struct {
	endpoint    string
	redirectURI string
	store       VerifierStore
	httpClient  *http.Client
	inFlight    atomic.Bool
}

// NewExchangeClient creates an ExchangeClient posting to the given backend
// endpoint. httpClient defaults to [http.DefaultClient].
func NewExchangeClient(endpoint, redirectURI string, store VerifierStore, httpClient *http.Client) *ExchangeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ExchangeClient{
		endpoint:    endpoint,
		redirectURI: redirectURI,
		store:       store,
		httpClient:  httpClient,
	}
}

type exchangeRequest struct {
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier"`
}

// ExchangeCode exchanges an authorization code for an access token.
//
// The stored verifier is consumed before the request is made, success or not:
// the provider invalidates codes on first use, so retrying a failed code with
// the same verifier can never succeed. Concurrent calls are rejected with
// [shared.ErrExchangeInFlight]; codes are single-use and a duplicate exchange
// would fail at the provider anyway.
func (e *ExchangeClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		return "", shared.ErrExchangeInFlight
	}
	defer e.inFlight.Store(false)

	verifier, ok := e.store.Take()
	if !ok {
		return "", shared.ErrMissingVerifier
	}

	body, err := json.Marshal(exchangeRequest{
		Code:         code,
		RedirectURI:  e.redirectURI,
		CodeVerifier: verifier,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errText, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", shared.ErrExchangeFailed, resp.StatusCode, string(errText))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	if tokenResp.AccessToken == "" {
		return "", shared.ErrMalformedResponse
	}

	return tokenResp.AccessToken, nil
}
