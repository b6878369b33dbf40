package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunState records the live backend instance started by a previous CLI
// invocation, so that stop/status/logs in later processes can find it.
type RunState struct {
	SchemaVersion string    `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Mode          string    `json:"mode"`
	ContainerName string    `json:"container_name,omitempty"`
	PID           int       `json:"pid,omitempty"`
	Port          int       `json:"port"`
	Host          string    `json:"host"`
	StartedAt     time.Time `json:"started_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

const (
	stateFileName      = "proxy-state.json"
	stateSchemaVersion = "1.0"
)

func statePath(dir string) string {
	return filepath.Join(dir, stateFileName)
}

// loadRunState reads the run-state file from the workflow directory.
// Returns nil when no backend has been recorded.
func loadRunState(dir string) (*RunState, error) {
	path := statePath(dir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	return &state, nil
}

// saveRunState persists the run state into the workflow directory.
func saveRunState(dir string, state *RunState) error {
	state.LastUpdatedAt = time.Now()

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	if err := os.WriteFile(statePath(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

func newRunState(runID, mode, host string, port int) *RunState {
	now := time.Now()
	return &RunState{
		SchemaVersion: stateSchemaVersion,
		RunID:         runID,
		Mode:          mode,
		Host:          host,
		Port:          port,
		StartedAt:     now,
		LastUpdatedAt: now,
	}
}

// removeRunState deletes the run-state file. Missing file is a no-op.
func removeRunState(dir string) error {
	path := statePath(dir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove state file: %w", err)
	}

	return nil
}
