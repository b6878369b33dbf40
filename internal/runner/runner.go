package runner

import (
	"context"
	"fmt"
	"log/slog"

	proxyerr "github.com/fullstacktard/fst-claude-proxy/internal/errors"
	"github.com/fullstacktard/fst-claude-proxy/pkg/backend"
)

// Mode selects the execution substrate for the backend. The variant set is
// closed: either a Docker container or a locally spawned process.
type Mode string

const (
	ModeDocker Mode = "docker"
	ModeLocal  Mode = "local"
)

// ParseMode validates a mode string from the CLI.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDocker, ModeLocal:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unsupported execution mode: %s (expected 'docker' or 'local')", s)
	}
}

// Runner owns exactly one backend adapter, chosen at construction, and
// exposes a single lifecycle contract regardless of substrate. The mode is
// immutable for the Runner's lifetime; switching modes means constructing a
// new Runner. Callers serialize Start/Stop themselves: the Runner adds no
// internal locking, so concurrent Start calls can race past the
// already-running check.
type Runner struct {
	mode    Mode
	backend backend.Backend
}

// New creates a Runner around the given adapter.
func New(mode Mode, b backend.Backend) *Runner {
	return &Runner{
		mode:    mode,
		backend: b,
	}
}

// Mode returns the execution mode the Runner was constructed with.
func (r *Runner) Mode() Mode {
	return r.mode
}

// Backend exposes the owned adapter for mode-specific operations (container
// info, log streaming).
func (r *Runner) Backend() backend.Backend {
	return r.backend
}

// Start launches the backend unless one is already running. Start failures
// from the adapter propagate unchanged and leave the Runner stopped; there
// is no automatic retry.
func (r *Runner) Start(ctx context.Context, opts backend.StartOptions) (string, error) {
	if r.backend.IsRunning(ctx) {
		return "", proxyerr.NewAlreadyRunningError(
			"Proxy backend is already running",
			"a start was attempted while a live instance exists",
			"stop the running instance first with 'fst-proxy stop'",
			fmt.Errorf("backend already running in %s mode", r.mode))
	}

	id, err := r.backend.Start(ctx, opts)
	if err != nil {
		return "", err
	}

	slog.Info("Runner started backend", "mode", r.mode, "id", id)
	return id, nil
}

// Stop delegates to the adapter. Safe to call in any state.
func (r *Runner) Stop(ctx context.Context) error {
	return r.backend.Stop(ctx)
}

// IsRunning re-queries the live substrate on every call.
func (r *Runner) IsRunning(ctx context.Context) bool {
	return r.backend.IsRunning(ctx)
}

// GetHealth re-queries the live substrate on every call.
func (r *Runner) GetHealth(ctx context.Context) backend.Health {
	return r.backend.GetHealth(ctx)
}
