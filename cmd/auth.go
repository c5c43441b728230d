package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/recordroom/internal/auth"
	"github.com/desertthunder/recordroom/internal/server"
	"github.com/desertthunder/recordroom/internal/shared"
	"github.com/urfave/cli/v3"
)

// loginTimeout bounds the wait for the browser redirect.
const loginTimeout = 5 * time.Minute

// AuthLogin runs the PKCE login flow: open the provider's authorization page,
// capture the redirect on a local listener, exchange the code through the
// trusted backend, and persist the session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	spotify := r.config.Credentials.Spotify
	if spotify.ClientID == "" {
		return fmt.Errorf("%w: credentials.spotify.client_id", shared.ErrMissingArgument)
	}

	initiator := auth.NewInitiator(spotify.ClientID, spotify.RedirectURI, r.verifiers)
	authURL, err := initiator.BuildAuthorizationURL()
	if err != nil {
		return fmt.Errorf("failed to build authorization URL: %w", err)
	}

	callback := server.NewCallbackHandler()
	listener, err := listenForCallback(spotify.RedirectURI, callback)
	if err != nil {
		return err
	}
	defer listener.Close()

	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL to sign in:\n%s\n", authURL)
	} else {
		r.logger.Info("opening browser for authorization")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
			r.writePlain("Open this URL to sign in:\n%s\n", authURL)
		}
	}

	r.logger.Info("waiting for authorization", "redirect_uri", spotify.RedirectURI)

	var code string
	select {
	case result := <-callback.Result():
		if result.Error() != nil {
			return fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
		}
		code = result.Code
	case <-time.After(loginTimeout):
		return fmt.Errorf("%w: timed out waiting for authorization", shared.ErrAuthFailed)
	case <-ctx.Done():
		return ctx.Err()
	}

	exchange := auth.NewExchangeClient(r.config.Exchange.URL, spotify.RedirectURI, r.verifiers, r.httpClient)
	token, err := exchange.ExchangeCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrMissingVerifier) {
			return fmt.Errorf("%w: no pending login, run `recordroom auth login` again", shared.ErrAuthFailed)
		}
		return err
	}

	svc := r.spotifyService(ctx, &auth.Session{AccessToken: token})
	user, err := svc.UserProfile(ctx)
	if err != nil {
		return fmt.Errorf("signed in but failed to load profile: %w", err)
	}

	if err := r.sessions.Save(token, user); err != nil {
		return err
	}

	r.logger.Info("authentication successful", "user", user.ID)
	return r.writePlain("✓ Signed in as %s\n", user.DisplayName)
}

// AuthStatus shows the signed-in user from the persisted session.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	session, err := r.sessions.Restore()
	if err != nil {
		return err
	}
	if session == nil {
		return r.writePlain("✗ Not signed in\n")
	}

	r.writePlain("✓ Signed in as %s", session.User.DisplayName)
	if session.User.Email != "" {
		r.writePlain(" (%s)", session.User.Email)
	}
	return r.writePlain("\n")
}

// AuthLogout clears the persisted session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.sessions.Invalidate(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// listenForCallback starts an HTTP listener on the redirect URI's address
// serving the callback handler. The caller closes the returned listener.
func listenForCallback(redirectURI string, handler *server.CallbackHandler) (net.Listener, error) {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect uri %q: %w", redirectURI, err)
	}

	listener, err := net.Listen("tcp", parsed.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", parsed.Host, err)
	}

	router := server.NewBasicRouter()
	router.Handler(handler)

	go http.Serve(listener, router)

	return listener, nil
}
