package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	proxyerr "github.com/fullstacktard/fst-claude-proxy/internal/errors"
	"github.com/fullstacktard/fst-claude-proxy/pkg/backend"
)

// DefaultEntryPoint is the backend's local executable, expected on PATH.
const DefaultEntryPoint = "fst-claude-proxy"

// startGracePeriod is how long a freshly spawned process must stay alive
// before the start counts as successful. Spawn failures such as a missing
// entry point can surface asynchronously after Start returns, so an
// immediate liveness check would miss them.
const startGracePeriod = 1 * time.Second

// LocalBackend spawns and supervises the proxy as a direct child process.
// The process handle is exclusively owned by this backend: no other
// component signals or reaps it.
type LocalBackend struct {
	entryPoint   string
	host         string
	port         int
	healthClient *http.Client

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{}
}

// NewLocalBackend creates a local-process strategy. An empty entryPoint
// falls back to DefaultEntryPoint.
func NewLocalBackend(entryPoint, host string, port int) *LocalBackend {
	if entryPoint == "" {
		entryPoint = DefaultEntryPoint
	}
	return &LocalBackend{
		entryPoint: entryPoint,
		host:       host,
		port:       port,
		healthClient: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

// Start spawns the backend entry point with the connection parameters
// translated into process arguments, inheriting this process's stdio. The
// start only succeeds if the child is still alive after the grace period.
func (l *LocalBackend) Start(ctx context.Context, opts backend.StartOptions) (string, error) {
	args := []string{"start", "--port", strconv.Itoa(opts.Port), "--host", opts.Host}
	if opts.ConfigPath != "" {
		args = append(args, "--config", opts.ConfigPath)
	}
	if opts.Debug {
		args = append(args, "--debug")
	}

	cmd := exec.Command(l.entryPoint, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	slog.Info("Spawning local backend", "entryPoint", l.entryPoint, "port", opts.Port, "host", opts.Host)

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", proxyerr.NewBackendUnavailableError(
				fmt.Sprintf("Backend entry point '%s' not found", l.entryPoint),
				err.Error(),
				"install the fst-claude-proxy package or put its CLI on PATH",
				fmt.Errorf("failed to spawn backend: %w", err))
		}
		return "", proxyerr.NewStartFailureError(
			"Failed to spawn local backend",
			err.Error(),
			"check the backend entry point and its permissions",
			fmt.Errorf("failed to spawn backend: %w", err))
	}

	exited := make(chan struct{})
	go func() {
		// Reap the child; cmd.ProcessState carries the exit code afterward.
		_ = cmd.Wait()
		close(exited)
	}()

	select {
	case <-exited:
		exitCode := -1
		if cmd.ProcessState != nil {
			exitCode = cmd.ProcessState.ExitCode()
		}
		return "", proxyerr.NewStartFailureError(
			"Local backend exited during startup",
			fmt.Sprintf("process exited with code %d within the startup grace period", exitCode),
			"run the backend entry point directly to see its error output",
			fmt.Errorf("backend exited with code %d before startup completed", exitCode))
	case <-time.After(startGracePeriod):
	}

	l.mu.Lock()
	l.cmd = cmd
	l.exited = exited
	l.mu.Unlock()

	pid := cmd.Process.Pid
	slog.Info("Local backend started", "pid", pid)
	return strconv.Itoa(pid), nil
}

// Stop sends a graceful termination signal to the owned process and clears
// the handle. No-op when no process is owned; confirmation of process death
// is not awaited.
func (l *LocalBackend) Stop(ctx context.Context) error {
	l.mu.Lock()
	cmd := l.cmd
	l.cmd = nil
	l.exited = nil
	l.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if !errors.Is(err, os.ErrProcessDone) {
			slog.Debug("Failed to signal local backend", "pid", cmd.Process.Pid, "error", err)
		}
	}

	slog.Info("Local backend stopped", "pid", cmd.Process.Pid)
	return nil
}

// IsRunning reports whether a process handle is held and the child has not
// exited.
func (l *LocalBackend) IsRunning(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd == nil || l.exited == nil {
		return false
	}

	select {
	case <-l.exited:
		return false
	default:
		return true
	}
}

// Pid returns the owned process's PID, or 0 when no process is held.
func (l *LocalBackend) Pid() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd == nil || l.cmd.Process == nil {
		return 0
	}
	return l.cmd.Process.Pid
}

// GetHealth probes the backend's own /health endpoint, since a plain child
// process has no engine-level health primitive. Any 2xx response is healthy;
// a non-2xx response is unhealthy; an unreachable endpoint with a live
// process reads as starting; no process reads as stopped.
func (l *LocalBackend) GetHealth(ctx context.Context) backend.Health {
	running := l.IsRunning(ctx)

	url := fmt.Sprintf("http://%s:%d/health", l.host, l.port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		if running {
			return backend.Starting
		}
		return backend.Stopped
	}

	resp, err := l.healthClient.Do(req)
	if err != nil {
		if running {
			return backend.Starting
		}
		return backend.Stopped
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return backend.Healthy
	}
	return backend.Unhealthy
}
