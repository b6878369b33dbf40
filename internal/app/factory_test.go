package app

import (
	"testing"

	"github.com/fullstacktard/fst-claude-proxy/internal/backend"
	"github.com/fullstacktard/fst-claude-proxy/internal/runner"
)

func TestGetBackend_LocalMode(t *testing.T) {
	factory := NewBackendFactory()

	b, err := factory.GetBackend(runner.ModeLocal, Options{Host: "127.0.0.1", Port: 4000})
	if err != nil {
		t.Fatalf("Expected local backend, got error: %v", err)
	}
	if _, ok := b.(*backend.LocalBackend); !ok {
		t.Errorf("Expected *backend.LocalBackend, got %T", b)
	}
}

func TestGetBackend_DockerMode(t *testing.T) {
	factory := NewBackendFactory()

	b, err := factory.GetBackend(runner.ModeDocker, Options{ContainerName: "fst-claude-proxy"})
	if err != nil {
		t.Fatalf("Expected docker backend, got error: %v", err)
	}
	db, ok := b.(*backend.DockerBackend)
	if !ok {
		t.Fatalf("Expected *backend.DockerBackend, got %T", b)
	}
	if db.ContainerName() != "fst-claude-proxy" {
		t.Errorf("Expected container name to carry through, got '%s'", db.ContainerName())
	}
}

func TestGetBackend_UnsupportedMode(t *testing.T) {
	factory := NewBackendFactory()

	if _, err := factory.GetBackend(runner.Mode("podman"), Options{}); err == nil {
		t.Error("Expected error for unsupported mode")
	}
}

func TestOptions_FillDefaults(t *testing.T) {
	opts := Options{}
	opts.fillDefaults()

	if opts.Image != DefaultImage {
		t.Errorf("Expected default image '%s', got '%s'", DefaultImage, opts.Image)
	}
	if opts.ContainerName != DefaultContainerName {
		t.Errorf("Expected default container name '%s', got '%s'", DefaultContainerName, opts.ContainerName)
	}

	opts = Options{Image: "custom:1", ContainerName: "mine"}
	opts.fillDefaults()
	if opts.Image != "custom:1" || opts.ContainerName != "mine" {
		t.Error("Explicit values must not be overwritten by defaults")
	}
}
