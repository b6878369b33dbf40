// Located in pkg/backend/backend.go
package backend

import "context"

// Health is the common status vocabulary both execution strategies report,
// regardless of how their substrate describes state internally.
type Health string

const (
	Healthy   Health = "healthy"
	Unhealthy Health = "unhealthy"
	Starting  Health = "starting"
	Stopped   Health = "stopped"
	Unknown   Health = "unknown"
)

// StartOptions defines the parameters for launching the proxy backend.
type StartOptions struct {
	Image         string
	ContainerName string
	Port          int
	Host          string
	ConfigPath    string
	Debug         bool
	Volumes       map[string]string
	Env           map[string]string
}

// Backend defines the contract for supervising one proxy backend instance.
// Start returns an instance identifier (container ID or PID). Stop is
// idempotent. IsRunning and GetHealth are status queries and never fail:
// inspection errors map to false and Stopped respectively.
type Backend interface {
	Start(ctx context.Context, opts StartOptions) (string, error)
	Stop(ctx context.Context) error
	IsRunning(ctx context.Context) bool
	GetHealth(ctx context.Context) Health
}
