package server

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
)

const spotifyTokenURL = "https://accounts.spotify.com/api/token"

// TokenHandler is the one trusted-server responsibility: it holds the client
// secret and forwards authorization-code-with-PKCE exchange requests to the
// provider. The browser-side flow only ever talks to this endpoint.
//
// Exactly one provider attempt is made per request; codes are single-use, so
// retrying server-side could never help.
type TokenHandler struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	logger       *log.Logger
}

// NewTokenHandler creates a TokenHandler with the server-held credentials.
func NewTokenHandler(clientID, clientSecret string, logger *log.Logger) *TokenHandler {
	return &TokenHandler{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     spotifyTokenURL,
		httpClient:   http.DefaultClient,
		logger:       logger,
	}
}

// SetTokenURL overrides the provider token endpoint, for tests.
func (h *TokenHandler) SetTokenURL(u string) {
	h.tokenURL = u
}

// SetHTTPClient overrides the outbound HTTP client, for tests.
func (h *TokenHandler) SetHTTPClient(c *http.Client) {
	h.httpClient = c
}

// Routes returns the HTTP routes this handler serves.
func (h *TokenHandler) Routes() []string {
	return []string{"/api/token"}
}

type tokenRequest struct {
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier"`
}

// ServeHTTP handles the exchange request: validates the body, forwards the
// grant to the provider with Basic client credentials, and streams back the
// provider's raw token JSON.
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var body tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if body.Code == "" || body.RedirectURI == "" || body.CodeVerifier == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	if h.clientID == "" || h.clientSecret == "" {
		writeError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", body.Code)
	form.Set("redirect_uri", body.RedirectURI)
	form.Set("code_verifier", body.CodeVerifier)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	basic := base64.StdEncoding.EncodeToString([]byte(h.clientID + ":" + h.clientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Error("token exchange request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		h.logger.Error("provider rejected token exchange", "status", resp.StatusCode, "body", string(errBody))
		writeError(w, resp.StatusCode, "Failed to exchange code for token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to write token response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
