package backend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	proxyerr "github.com/fullstacktard/fst-claude-proxy/internal/errors"
	"github.com/fullstacktard/fst-claude-proxy/pkg/backend"
)

// InternalPort is the fixed port the proxy listens on inside the container.
// The host port from StartOptions is published onto it.
const InternalPort = 4000

// ContainerInfo is a condensed view of the backend container for status
// output.
type ContainerInfo struct {
	ID     string
	Name   string
	Status string
	Ports  []string
	Health backend.Health
}

// DockerBackend supervises the proxy as a single named container. Status
// queries never fail: any inspection error maps to a safe default so that
// callers can always ask where things stand.
type DockerBackend struct {
	cli  *client.Client
	name string
}

// NewDockerBackend creates a Docker-backed strategy for the given container
// name. The daemon is not contacted here; reachability is probed by
// IsAvailable and enforced by Start.
func NewDockerBackend(name string) (*DockerBackend, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &DockerBackend{
		cli:  dockerClient,
		name: name,
	}, nil
}

// ContainerName returns the name of the container this backend supervises.
func (d *DockerBackend) ContainerName() string {
	return d.name
}

// IsAvailable reports whether the Docker daemon is reachable. Never errors.
func (d *DockerBackend) IsAvailable(ctx context.Context) bool {
	_, err := d.cli.Ping(ctx)
	return err == nil
}

// Start creates and runs the backend container, publishing the host port
// onto the fixed internal port, binding the given volumes, and injecting the
// proxy environment contract. Returns the new container's ID.
func (d *DockerBackend) Start(ctx context.Context, opts backend.StartOptions) (string, error) {
	if !d.IsAvailable(ctx) {
		return "", proxyerr.NewBackendUnavailableError(
			"Docker daemon is not reachable",
			"the Docker engine did not respond to a ping",
			"check that Docker is installed and running (try 'docker info')",
			fmt.Errorf("docker daemon unreachable"))
	}

	var mounts []mount.Mount
	for hostPath, containerPath := range opts.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: hostPath,
			Target: containerPath,
		})
	}

	envVars := []string{
		fmt.Sprintf("PROXY_PORT=%d", InternalPort),
		fmt.Sprintf("PROXY_HOST=%s", opts.Host),
	}
	if opts.ConfigPath != "" {
		envVars = append(envVars, fmt.Sprintf("LITELLM_CONFIG=%s", opts.ConfigPath))
	}
	if opts.Debug {
		envVars = append(envVars, "DEBUG=true")
	}
	for key, value := range opts.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", key, value))
	}

	internalPort := nat.Port(fmt.Sprintf("%d/tcp", InternalPort))
	containerConfig := &container.Config{
		Image: opts.Image,
		Env:   envVars,
		ExposedPorts: nat.PortSet{
			internalPort: struct{}{},
		},
	}

	hostConfig := &container.HostConfig{
		Mounts: mounts,
		PortBindings: nat.PortMap{
			internalPort: []nat.PortBinding{{
				HostPort: strconv.Itoa(opts.Port),
			}},
		},
	}

	name := opts.ContainerName
	if name == "" {
		name = d.name
	}

	slog.Info("Creating backend container", "image", opts.Image, "name", name, "port", opts.Port)

	resp, err := d.cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, name)
	if err != nil {
		return "", proxyerr.NewStartFailureError(
			"Failed to create backend container",
			err.Error(),
			"check the image name and that no container with the same name exists",
			fmt.Errorf("failed to create container: %w", err))
	}

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Clean up the half-created container so a retry starts fresh.
		if removeErr := d.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true}); removeErr != nil {
			slog.Error("Failed to remove container after start failure", "containerID", resp.ID, "error", removeErr)
		}
		return "", proxyerr.NewStartFailureError(
			"Failed to start backend container",
			err.Error(),
			"inspect the Docker daemon logs for details",
			fmt.Errorf("failed to start container: %w", err))
	}

	slog.Info("Backend container started", "containerID", truncateID(resp.ID), "name", name)
	return resp.ID, nil
}

// Stop stops and removes the named container. Idempotent: a missing or
// already-stopped container is a silent no-op.
func (d *DockerBackend) Stop(ctx context.Context) error {
	if err := d.cli.ContainerStop(ctx, d.name, container.StopOptions{}); err != nil {
		if !client.IsErrNotFound(err) {
			slog.Debug("Container stop reported an error", "name", d.name, "error", err)
		}
	}

	if err := d.cli.ContainerRemove(ctx, d.name, container.RemoveOptions{Force: true}); err != nil {
		if !client.IsErrNotFound(err) {
			slog.Debug("Container remove reported an error", "name", d.name, "error", err)
		}
	}

	return nil
}

// IsRunning reports whether the container is currently running. Any
// inspection failure reads as not running.
func (d *DockerBackend) IsRunning(ctx context.Context) bool {
	inspect, err := d.cli.ContainerInspect(ctx, d.name)
	if err != nil {
		return false
	}
	return inspect.State != nil && inspect.State.Running
}

// GetHealth maps the engine's health sub-states to the shared vocabulary.
// Inspection failures map to Stopped; Unknown is reserved for an engine
// state the mapping does not recognize.
func (d *DockerBackend) GetHealth(ctx context.Context) backend.Health {
	inspect, err := d.cli.ContainerInspect(ctx, d.name)
	if err != nil || inspect.State == nil {
		return backend.Stopped
	}

	healthStatus := ""
	if inspect.State.Health != nil {
		healthStatus = inspect.State.Health.Status
	}

	return mapHealthStatus(inspect.State.Running, healthStatus)
}

// mapHealthStatus translates a Docker running flag and health sub-state into
// the common Health vocabulary.
func mapHealthStatus(running bool, healthStatus string) backend.Health {
	if !running {
		return backend.Stopped
	}

	switch healthStatus {
	case "healthy":
		return backend.Healthy
	case "unhealthy":
		return backend.Unhealthy
	case "starting":
		return backend.Starting
	case "", "none":
		// Running without a healthcheck counts as healthy.
		return backend.Healthy
	default:
		return backend.Unknown
	}
}

// GetInfo returns a condensed descriptor of the container, or nil when the
// lookup fails for any reason.
func (d *DockerBackend) GetInfo(ctx context.Context) *ContainerInfo {
	inspect, err := d.cli.ContainerInspect(ctx, d.name)
	if err != nil || inspect.State == nil {
		return nil
	}

	var ports nat.PortMap
	if inspect.NetworkSettings != nil {
		ports = inspect.NetworkSettings.Ports
	}

	return &ContainerInfo{
		ID:     truncateID(inspect.ID),
		Name:   strings.TrimPrefix(inspect.Name, "/"),
		Status: inspect.State.Status,
		Ports:  formatPorts(ports),
		Health: mapHealthStatus(inspect.State.Running, healthSubState(inspect.State.Health)),
	}
}

func healthSubState(health *container.Health) string {
	if health == nil {
		return ""
	}
	return health.Status
}

func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func formatPorts(ports nat.PortMap) []string {
	var formatted []string
	for containerPort, bindings := range ports {
		for _, binding := range bindings {
			formatted = append(formatted, fmt.Sprintf("%s->%s", binding.HostPort, containerPort))
		}
	}
	return formatted
}

// StreamLogs attaches to the container's stdout and stderr and delivers each
// non-empty line to onLine as it arrives. Interleaving between the two
// streams is not ordered. The returned stop function terminates the
// subscription; the subscription never blocks the caller.
func (d *DockerBackend) StreamLogs(ctx context.Context, onLine func(string)) (func(), error) {
	streamCtx, cancel := context.WithCancel(ctx)

	logs, err := d.cli.ContainerLogs(streamCtx, d.name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		cancel()
		return nil, proxyerr.NewRuntimeError(
			"Failed to attach to container logs",
			err.Error(),
			"check that the backend container exists",
			fmt.Errorf("failed to get container logs: %w", err))
	}

	pr, pw := io.Pipe()

	go func() {
		// Docker multiplexes stdout/stderr into one stream; demux both
		// onto the same pipe.
		_, copyErr := stdcopy.StdCopy(pw, pw, logs)
		pw.CloseWithError(copyErr)
	}()

	go func() {
		defer logs.Close()
		scanner := bufio.NewScanner(pr)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) != "" {
				onLine(line)
			}
		}
	}()

	stop := func() {
		cancel()
		logs.Close()
	}
	return stop, nil
}

// BuildImage builds the backend image from a local build context directory.
func (d *DockerBackend) BuildImage(ctx context.Context, contextDir, tag string) error {
	buildCtx, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return proxyerr.NewFileSystemError(
			"Failed to package the build context",
			err.Error(),
			"check that the build context directory exists and is readable",
			fmt.Errorf("failed to tar build context %s: %w", contextDir, err))
	}
	defer buildCtx.Close()

	slog.Info("Building backend image", "context", contextDir, "tag", tag)

	resp, err := d.cli.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: "Dockerfile",
		Remove:     true,
	})
	if err != nil {
		return proxyerr.NewRuntimeError(
			"Failed to build backend image",
			err.Error(),
			"check the Dockerfile in the build context",
			fmt.Errorf("failed to build image %s: %w", tag, err))
	}
	defer resp.Body.Close()

	// Drain the build output so the daemon finishes the build.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("failed to stream image build output: %w", err)
	}

	slog.Info("Backend image built", "tag", tag)
	return nil
}
