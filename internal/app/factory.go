package app

import (
	"fmt"

	"github.com/fullstacktard/fst-claude-proxy/internal/backend"
	"github.com/fullstacktard/fst-claude-proxy/internal/runner"
	backendpkg "github.com/fullstacktard/fst-claude-proxy/pkg/backend"
)

// BackendFactory creates the execution-mode adapter for a run. It decouples
// the orchestrator from the concrete strategy implementations.
type BackendFactory struct{}

// NewBackendFactory creates a new instance of BackendFactory.
func NewBackendFactory() *BackendFactory {
	return &BackendFactory{}
}

// GetBackend returns the adapter for the given execution mode.
func (f *BackendFactory) GetBackend(mode runner.Mode, opts Options) (backendpkg.Backend, error) {
	switch mode {
	case runner.ModeDocker:
		b, err := backend.NewDockerBackend(opts.ContainerName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Docker backend: %w", err)
		}
		return b, nil
	case runner.ModeLocal:
		return backend.NewLocalBackend(opts.EntryPoint, opts.Host, opts.Port), nil
	default:
		return nil, fmt.Errorf("unsupported execution mode: %s", mode)
	}
}
