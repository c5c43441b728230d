package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/recordroom/internal/auth"
	"github.com/desertthunder/recordroom/internal/services"
	"github.com/desertthunder/recordroom/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	sessions   *auth.SessionStore
	verifiers  auth.VerifierStore
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Sessions   *auth.SessionStore
	Verifiers  auth.VerifierStore
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		sessions:   opts.Sessions,
		verifiers:  opts.Verifiers,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, serveCommand, notesCommand, playCommand, roomCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig reloads the runner's config from the path given by the
// command's --config flag when the file exists.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	configPath := cmd.String("config")
	if configPath == "" {
		return
	}
	if _, err := os.Stat(configPath); err != nil {
		return
	}
	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current", "path", configPath, "error", err)
		return
	}
	r.config = config
}

// restoreSession loads the persisted session, returning
// [shared.ErrNotAuthenticated] when none exists.
func (r *Runner) restoreSession() (*auth.Session, error) {
	session, err := r.sessions.Restore()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: run `recordroom auth login` first", shared.ErrNotAuthenticated)
	}
	return session, nil
}

// spotifyService builds an authenticated Web API client for the session,
// wired to invalidate the persisted session on a 401.
func (r *Runner) spotifyService(ctx context.Context, session *auth.Session) *services.SpotifyService {
	svc := services.NewSpotifyService(ctx, session.AccessToken)
	svc.SetUnauthorizedCallback(func() {
		if err := r.sessions.Invalidate(); err != nil {
			r.logger.Warn("failed to invalidate session", "error", err)
		}
	})
	return svc
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
