package proxy

// Config is the root object describing how the proxy backend should behave.
// It's populated by parsing the user's claude-proxy-config.yaml file, with
// every unset field falling back to its built-in default independently.
type Config struct {
	Version  int      `mapstructure:"version" yaml:"version"`
	Routing  Routing  `mapstructure:"routing" yaml:"routing"`
	Fallback Fallback `mapstructure:"fallback" yaml:"fallback"`
	Logging  Logging  `mapstructure:"logging" yaml:"logging"`
}

// Routing holds the mutually-exclusive routing-mode flags. Having both
// enabled is a validation error; having neither means passthrough.
type Routing struct {
	AgentRouting bool `mapstructure:"agent_routing" yaml:"agent_routing"`
	ModelRouting bool `mapstructure:"model_routing" yaml:"model_routing"`
}

// Fallback is the target used when no routing mode is active.
type Fallback struct {
	Model    string `mapstructure:"model" yaml:"model"`
	Provider string `mapstructure:"provider" yaml:"provider"`
}

// Logging configures the backend's log output.
type Logging struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warning error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// RoutingMode classifies how the backend routes requests, derived from the
// routing flags.
type RoutingMode string

const (
	RoutingModeAgent       RoutingMode = "agent"
	RoutingModeModel       RoutingMode = "model"
	RoutingModePassthrough RoutingMode = "passthrough"
)

// ValidationResult carries the outcome of validating a Config. Errors make
// the config invalid; warnings are advisory. An invalid config is still
// usable by callers that choose to ignore validity.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Mode returns the routing mode derived from the routing flags. Agent routing
// is checked first, so a config that invalidly enables both flags still
// resolves to agent. Callers that care must also check validation.
func (c *Config) Mode() RoutingMode {
	if c.Routing.AgentRouting {
		return RoutingModeAgent
	}
	if c.Routing.ModelRouting {
		return RoutingModeModel
	}
	return RoutingModePassthrough
}
