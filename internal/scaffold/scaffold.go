package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fullstacktard/fst-claude-proxy/internal/config"
)

// defaultConfigTemplate is the commented starter config written by
// 'fst-proxy config init'. Values mirror the built-in defaults so an
// untouched file behaves identically to no file at all.
const defaultConfigTemplate = `# fst-claude-proxy configuration
version: 1

# Routing modes are mutually exclusive: enable at most one.
# With both disabled, every request goes to the fallback target.
routing:
  agent_routing: false
  model_routing: false

# Target used when no routing mode is active.
fallback:
  model: sonnet
  provider: anthropic

logging:
  level: info   # debug, info, warning, error
  format: text  # json, text
`

// InitConfig writes the starter config file into the workflow directory.
// Refuses to overwrite an existing file unless force is set. With dryRun it
// only reports what would be written.
func InitConfig(dir string, dryRun, force bool) error {
	configPath := filepath.Join(dir, config.ConfigFileName)

	if dryRun {
		fmt.Printf("DRY RUN: Would create directory: %s\n", dir)
		fmt.Printf("DRY RUN: Would write config file: %s\n", configPath)
		fmt.Println("DRY RUN: config content would be:")
		fmt.Print(defaultConfigTemplate)
		return nil
	}

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
