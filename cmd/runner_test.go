package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/recordroom/internal/auth"
	"github.com/desertthunder/recordroom/internal/services"
	"github.com/desertthunder/recordroom/internal/shared"
	tu "github.com/desertthunder/recordroom/internal/testing"
	"github.com/urfave/cli/v3"
)

func testRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	dir := t.TempDir()

	runner := NewRunner(RunnerOpts{
		Config:    shared.DefaultConfig(),
		Sessions:  auth.NewSessionStore(dir),
		Verifiers: auth.NewFileVerifierStore(dir),
		Output:    output,
	})
	return runner, output
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			sessions := auth.NewSessionStore(t.TempDir())
			verifiers := auth.NewMemoryVerifierStore()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Sessions:   sessions,
				Verifiers:  verifiers,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.sessions != sessions {
				t.Error("expected sessions to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("compact", func(t *testing.T) {
			runner, output := testRunner(t)

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("writeJSON failed: %v", err)
			}
			if got := output.String(); got != "{\"key\":\"value\"}\n" {
				t.Errorf("unexpected output %q", got)
			}
		})

		t.Run("pretty", func(t *testing.T) {
			runner, output := testRunner(t)

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("writeJSON failed: %v", err)
			}
			if !strings.Contains(output.String(), "  \"key\": \"value\"") {
				t.Errorf("expected indented output, got %q", output.String())
			}
		})

		t.Run("write failure", func(t *testing.T) {
			runner, _ := testRunner(t)
			runner.output = &tu.FWriter{}

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected write error")
			}
		})

		t.Run("newline write failure", func(t *testing.T) {
			runner, _ := testRunner(t)
			limited := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner.output = &limited

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected error writing trailing newline")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		runner, output := testRunner(t)

		if err := runner.writePlain("hello %s\n", "room"); err != nil {
			t.Fatalf("writePlain failed: %v", err)
		}
		if output.String() != "hello room\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("restoreSession", func(t *testing.T) {
		t.Run("not signed in", func(t *testing.T) {
			runner, _ := testRunner(t)

			if _, err := runner.restoreSession(); err == nil {
				t.Error("expected error without a session")
			}
		})

		t.Run("signed in", func(t *testing.T) {
			runner, _ := testRunner(t)
			user := &services.User{ID: "user1", DisplayName: "Alex"}
			if err := runner.sessions.Save("token-abc", user); err != nil {
				t.Fatalf("save failed: %v", err)
			}

			session, err := runner.restoreSession()
			if err != nil {
				t.Fatalf("restore failed: %v", err)
			}
			if session.AccessToken != "token-abc" {
				t.Errorf("unexpected token %s", session.AccessToken)
			}
		})
	})
}

func TestSetupConfig(t *testing.T) {
	runner, output := testRunner(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")

	cmd := &cli.Command{
		Name:   "config",
		Flags:  []cli.Flag{configFlag()},
		Action: runner.SetupConfig,
	}

	if err := cmd.Run(context.Background(), []string{"config", "--config", configPath}); err != nil {
		t.Fatalf("setup config failed: %v", err)
	}

	tu.AssertFileExists(t, configPath)
	if !strings.Contains(output.String(), "Config written") {
		t.Errorf("unexpected output %q", output.String())
	}

	content := tu.MustReadFile(t, configPath)
	if !strings.Contains(content, "[credentials.spotify]") {
		t.Error("template should carry the spotify credentials section")
	}
}

func TestAuthStatus(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		runner, output := testRunner(t)

		if err := runner.AuthStatus(context.Background(), &cli.Command{}); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "Not signed in") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("signed in", func(t *testing.T) {
		runner, output := testRunner(t)
		user := &services.User{ID: "user1", DisplayName: "Alex", Email: "alex@example.com"}
		if err := runner.sessions.Save("token-abc", user); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		if err := runner.AuthStatus(context.Background(), &cli.Command{}); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "Alex") || !strings.Contains(output.String(), "alex@example.com") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}

func TestAuthLogout(t *testing.T) {
	runner, output := testRunner(t)
	user := &services.User{ID: "user1", DisplayName: "Alex"}
	if err := runner.sessions.Save("token-abc", user); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := runner.AuthLogout(context.Background(), &cli.Command{}); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if !strings.Contains(output.String(), "Signed out") {
		t.Errorf("unexpected output %q", output.String())
	}

	session, err := runner.sessions.Restore()
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if session != nil {
		t.Error("session should be cleared after logout")
	}
}
