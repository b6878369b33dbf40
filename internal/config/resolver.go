package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/fullstacktard/fst-claude-proxy/pkg/proxy"
)

const (
	// ConfigFileName is the well-known config file name inside the
	// workflow directory.
	ConfigFileName = "claude-proxy-config.yaml"

	// WorkflowDirName is the per-user workflow directory under $HOME.
	WorkflowDirName = ".claude-workflow"

	// CurrentVersion is the config schema version this build understands.
	CurrentVersion = 1
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Defaults returns the built-in configuration every load merges over.
// Each field is defaulted independently: a file that sets only one key
// inherits everything else from here.
func Defaults() proxy.Config {
	return proxy.Config{
		Version: CurrentVersion,
		Routing: proxy.Routing{
			AgentRouting: false,
			ModelRouting: false,
		},
		Fallback: proxy.Fallback{
			Model:    "sonnet",
			Provider: "anthropic",
		},
		Logging: proxy.Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultDir returns the default workflow directory. Environment overrides
// (CLAUDE_WORKFLOW_DIR) are resolved by the CLI layer, not here, so the
// resolver stays testable with injected paths.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, WorkflowDirName), nil
}

// Resolver loads and validates the proxy configuration from a fixed path.
// It holds no cached state: every query re-reads the file, so an edit on
// disk is visible to the very next call.
type Resolver struct {
	path string
}

func NewResolver(path string) *Resolver {
	return &Resolver{path: path}
}

func (r *Resolver) Path() string {
	return r.path
}

// Load reads the config file and merges it over the built-in defaults.
// Returns nil when the file does not exist. A read or parse failure also
// yields nil; the diagnostic is logged unless silent is set. Load never
// fails hard, matching the always-available contract of the queries built
// on top of it.
func (r *Resolver) Load(silent bool) *proxy.Config {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(r.path)
	v.SetConfigType("yaml")

	defaults := Defaults()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("routing.agent_routing", defaults.Routing.AgentRouting)
	v.SetDefault("routing.model_routing", defaults.Routing.ModelRouting)
	v.SetDefault("fallback.model", defaults.Fallback.Model)
	v.SetDefault("fallback.provider", defaults.Fallback.Provider)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	if err := v.ReadInConfig(); err != nil {
		if !silent {
			slog.Warn("Failed to read proxy config", "path", r.path, "error", err)
		}
		return nil
	}

	var cfg proxy.Config
	if err := v.Unmarshal(&cfg); err != nil {
		if !silent {
			slog.Warn("Failed to parse proxy config", "path", r.path, "error", err)
		}
		return nil
	}

	return &cfg
}

// Validate checks a Config against the routing, version, and logging rules.
// All rules are evaluated; errors and warnings accumulate in priority order.
// Pure: no I/O, same input always yields the same result.
func Validate(cfg *proxy.Config) proxy.ValidationResult {
	result := proxy.ValidationResult{Valid: true}

	if cfg.Routing.AgentRouting && cfg.Routing.ModelRouting {
		result.Errors = append(result.Errors,
			"agent_routing and model_routing are mutually exclusive; enable at most one")
	}

	if !cfg.Routing.AgentRouting && !cfg.Routing.ModelRouting {
		result.Warnings = append(result.Warnings,
			"no routing mode enabled; all requests will use the fallback target directly")
	}

	if cfg.Version != CurrentVersion {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("config version %d is not supported (expected %d); continuing anyway", cfg.Version, CurrentVersion))
	}

	if err := validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				result.Errors = append(result.Errors, formatFieldError(e))
			}
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// formatFieldError converts a validator error into a user-friendly message.
func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s (got '%v')", e.Field(), e.Param(), e.Value())
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", e.Field())
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", e.Field(), e.Tag())
	}
}

// resolved loads the config with diagnostics suppressed, falling back to the
// built-in defaults when no file is present or it cannot be read.
func (r *Resolver) resolved() proxy.Config {
	if cfg := r.Load(true); cfg != nil {
		return *cfg
	}
	return Defaults()
}

// IsAgentRoutingEnabled re-reads the config on every call.
func (r *Resolver) IsAgentRoutingEnabled() bool {
	return r.resolved().Routing.AgentRouting
}

// IsModelRoutingEnabled re-reads the config on every call.
func (r *Resolver) IsModelRoutingEnabled() bool {
	return r.resolved().Routing.ModelRouting
}

// RoutingMode returns the derived routing mode. Agent routing wins over
// model routing even for a config that invalidly enables both; callers that
// care about that state must also run Validate.
func (r *Resolver) RoutingMode() proxy.RoutingMode {
	cfg := r.resolved()
	return cfg.Mode()
}

// FallbackConfig returns the fallback target, defaulted when unset.
func (r *Resolver) FallbackConfig() proxy.Fallback {
	return r.resolved().Fallback
}
