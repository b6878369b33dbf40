package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"github.com/google/uuid"

	"github.com/fullstacktard/fst-claude-proxy/internal/backend"
	"github.com/fullstacktard/fst-claude-proxy/internal/config"
	proxyerr "github.com/fullstacktard/fst-claude-proxy/internal/errors"
	"github.com/fullstacktard/fst-claude-proxy/internal/runner"
	backendpkg "github.com/fullstacktard/fst-claude-proxy/pkg/backend"
)

const (
	// Color codes for console output
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"

	// DefaultImage is the backend container image used when none is given.
	DefaultImage = "fst-claude-proxy:latest"

	// DefaultContainerName is the single named container instance.
	DefaultContainerName = "fst-claude-proxy"
)

// Options carries the connection and execution parameters for one run. The
// CLI layer resolves environment variables and fills this in; nothing below
// it reads the environment for configuration.
type Options struct {
	Mode          runner.Mode
	Port          int
	Host          string
	ConfigDir     string
	ConfigPath    string
	Debug         bool
	Image         string
	ContainerName string
	EntryPoint    string
	Volumes       map[string]string
	Force         bool
}

func (o *Options) fillDefaults() {
	if o.Image == "" {
		o.Image = DefaultImage
	}
	if o.ContainerName == "" {
		o.ContainerName = DefaultContainerName
	}
}

// Start orchestrates a backend launch: resolve and validate the config,
// select the execution-mode adapter, start it, and record the run state so
// later invocations can find the instance.
func Start(opts Options) error {
	opts.fillDefaults()
	ctx := context.Background()

	slog.Info("Starting proxy backend", "mode", opts.Mode, "port", opts.Port, "host", opts.Host)

	fmt.Printf("%s>> Resolving configuration%s\n", ColorCyan, ColorReset)
	resolver := config.NewResolver(opts.ConfigPath)
	cfg := resolver.Load(false)
	if cfg == nil {
		fmt.Printf("%sNo config file at %s; using built-in defaults%s\n", ColorYellow, opts.ConfigPath, ColorReset)
	} else {
		result := config.Validate(cfg)
		for _, warning := range result.Warnings {
			fmt.Printf("%sWarning: %s%s\n", ColorYellow, warning, ColorReset)
		}
		for _, errMsg := range result.Errors {
			fmt.Printf("%sError: %s%s\n", ColorRed, errMsg, ColorReset)
		}
		if !result.Valid && !opts.Force {
			return proxyerr.NewConfigInvalidError(
				"Proxy config failed validation",
				fmt.Sprintf("%d error(s) in %s", len(result.Errors), opts.ConfigPath),
				"fix the config or rerun with --force to start anyway",
				fmt.Errorf("config validation failed with %d error(s)", len(result.Errors)))
		}
		fmt.Printf("Routing mode: %s\n", cfg.Mode())
	}

	b, err := NewBackendFactory().GetBackend(opts.Mode, opts)
	if err != nil {
		return err
	}
	run := runner.New(opts.Mode, b)

	fmt.Printf("%s>> Starting backend (%s mode)%s\n", ColorCyan, opts.Mode, ColorReset)
	id, err := run.Start(ctx, backendpkg.StartOptions{
		Image:         opts.Image,
		ContainerName: opts.ContainerName,
		Port:          opts.Port,
		Host:          opts.Host,
		ConfigPath:    opts.ConfigPath,
		Debug:         opts.Debug,
		Volumes:       opts.Volumes,
	})
	if err != nil {
		return err
	}

	state := newRunState(uuid.New().String(), string(opts.Mode), opts.Host, opts.Port)
	switch opts.Mode {
	case runner.ModeDocker:
		state.ContainerName = opts.ContainerName
	case runner.ModeLocal:
		if lb, ok := b.(*backend.LocalBackend); ok {
			state.PID = lb.Pid()
		}
	}
	if err := saveRunState(opts.ConfigDir, state); err != nil {
		slog.Warn("Failed to record run state", "error", err)
	}

	fmt.Printf("%sProxy backend started (%s)%s\n", ColorGreen, id, ColorReset)
	fmt.Printf("Listening on http://%s:%d\n", opts.Host, opts.Port)
	return nil
}

// Stop shuts down the recorded backend instance. Safe to call when nothing
// is running.
func Stop(opts Options) error {
	opts.fillDefaults()
	ctx := context.Background()

	state, err := loadRunState(opts.ConfigDir)
	if err != nil {
		slog.Warn("Failed to load run state", "error", err)
	}

	mode := opts.Mode
	if state != nil {
		mode = runner.Mode(state.Mode)
		if state.ContainerName != "" {
			opts.ContainerName = state.ContainerName
		}
	}

	switch mode {
	case runner.ModeLocal:
		// The spawning process owned the handle; from a later invocation
		// the recorded PID is all there is to signal.
		if state != nil && state.PID > 0 {
			if proc, findErr := os.FindProcess(state.PID); findErr == nil {
				if sigErr := proc.Signal(syscall.SIGTERM); sigErr != nil {
					slog.Debug("Failed to signal recorded backend", "pid", state.PID, "error", sigErr)
				}
			}
		}
	default:
		b, err := backend.NewDockerBackend(opts.ContainerName)
		if err != nil {
			return err
		}
		if err := runner.New(runner.ModeDocker, b).Stop(ctx); err != nil {
			return err
		}
	}

	if err := removeRunState(opts.ConfigDir); err != nil {
		slog.Warn("Failed to clean up run state", "error", err)
	}

	fmt.Printf("%sProxy backend stopped%s\n", ColorGreen, ColorReset)
	return nil
}

// Status prints the recorded instance's current state and health.
func Status(opts Options) error {
	opts.fillDefaults()
	ctx := context.Background()

	state, err := loadRunState(opts.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to load run state: %w", err)
	}
	if state == nil {
		fmt.Println("No proxy backend recorded. Start one with 'fst-proxy start'.")
		return nil
	}

	fmt.Printf("Run ID:  %s\n", state.RunID)
	fmt.Printf("Mode:    %s\n", state.Mode)
	fmt.Printf("Started: %s\n", state.StartedAt.Format("2006-01-02 15:04:05"))

	switch runner.Mode(state.Mode) {
	case runner.ModeLocal:
		lb := backend.NewLocalBackend(opts.EntryPoint, state.Host, state.Port)
		fmt.Printf("PID:     %d\n", state.PID)
		fmt.Printf("Health:  %s\n", lb.GetHealth(ctx))
	default:
		name := state.ContainerName
		if name == "" {
			name = opts.ContainerName
		}
		b, err := backend.NewDockerBackend(name)
		if err != nil {
			return err
		}
		info := b.GetInfo(ctx)
		if info == nil {
			fmt.Printf("Health:  %s\n", backendpkg.Stopped)
			return nil
		}
		fmt.Printf("ID:      %s\n", info.ID)
		fmt.Printf("Name:    %s\n", info.Name)
		fmt.Printf("Status:  %s\n", info.Status)
		for _, port := range info.Ports {
			fmt.Printf("Port:    %s\n", port)
		}
		fmt.Printf("Health:  %s\n", info.Health)
	}

	return nil
}

// Doctor checks that the external prerequisites for each execution mode are
// available.
func Doctor(opts Options) error {
	opts.fillDefaults()
	ctx := context.Background()

	slog.Info("Checking proxy prerequisites")

	b, err := backend.NewDockerBackend(opts.ContainerName)
	if err == nil && b.IsAvailable(ctx) {
		fmt.Printf("%sDocker daemon: reachable%s\n", ColorGreen, ColorReset)
	} else {
		fmt.Printf("%sDocker daemon: unreachable (docker mode unavailable)%s\n", ColorYellow, ColorReset)
	}

	entryPoint := opts.EntryPoint
	if entryPoint == "" {
		entryPoint = backend.DefaultEntryPoint
	}
	if _, err := exec.LookPath(entryPoint); err == nil {
		fmt.Printf("%sLocal entry point '%s': found%s\n", ColorGreen, entryPoint, ColorReset)
	} else {
		fmt.Printf("%sLocal entry point '%s': not on PATH (local mode unavailable)%s\n", ColorYellow, entryPoint, ColorReset)
	}

	if _, err := os.Stat(opts.ConfigPath); err == nil {
		fmt.Printf("%sConfig file: %s%s\n", ColorGreen, opts.ConfigPath, ColorReset)
	} else {
		fmt.Printf("%sConfig file: none at %s (defaults in effect)%s\n", ColorYellow, opts.ConfigPath, ColorReset)
	}

	return nil
}
