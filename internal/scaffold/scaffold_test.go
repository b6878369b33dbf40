package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fullstacktard/fst-claude-proxy/internal/config"
)

func TestInitConfig_WritesStarterFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "workflow")

	if err := InitConfig(dir, false, false); err != nil {
		t.Fatalf("Expected init to succeed, got %v", err)
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("Expected config file at %s: %v", configPath, err)
	}

	// The starter file must parse and resolve to the built-in defaults.
	resolver := config.NewResolver(configPath)
	cfg := resolver.Load(false)
	if cfg == nil {
		t.Fatal("Starter config did not parse")
	}
	defaults := config.Defaults()
	if *cfg != defaults {
		t.Errorf("Starter config %+v differs from defaults %+v", *cfg, defaults)
	}

	result := config.Validate(cfg)
	if !result.Valid {
		t.Errorf("Starter config must validate cleanly, got %v", result.Errors)
	}
}

func TestInitConfig_RefusesOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, config.ConfigFileName)
	if err := os.WriteFile(configPath, []byte("version: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := InitConfig(dir, false, false); err == nil {
		t.Error("Expected refusal to overwrite existing config")
	}

	if err := InitConfig(dir, false, true); err != nil {
		t.Errorf("Expected force overwrite to succeed, got %v", err)
	}
}

func TestInitConfig_DryRunWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "workflow")

	if err := InitConfig(dir, true, false); err != nil {
		t.Fatalf("Expected dry run to succeed, got %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Dry run must not create the workflow directory")
	}
}
