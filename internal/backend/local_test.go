package backend

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	proxyerr "github.com/fullstacktard/fst-claude-proxy/internal/errors"
	"github.com/fullstacktard/fst-claude-proxy/pkg/backend"
)

// writeScript drops an executable shell script into a temp dir and returns
// its path. Used as a stand-in for the backend entry point.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-backend")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLocalBackend_StartFailsWhenProcessExitsInGraceWindow(t *testing.T) {
	entry := writeScript(t, "exit 3")
	lb := NewLocalBackend(entry, "127.0.0.1", 49200)

	_, err := lb.Start(context.Background(), backend.StartOptions{Port: 49200, Host: "127.0.0.1"})
	if err == nil {
		t.Fatal("Expected start failure for immediately exiting process")
	}
	if !errors.Is(err, proxyerr.ErrStartFailure) {
		t.Errorf("Expected ErrStartFailure, got %v", err)
	}
	if lb.IsRunning(context.Background()) {
		t.Error("Expected IsRunning false after failed start")
	}
}

func TestLocalBackend_StartFailsWhenEntryPointMissing(t *testing.T) {
	lb := NewLocalBackend("definitely-not-on-path-fst-proxy", "127.0.0.1", 49201)

	_, err := lb.Start(context.Background(), backend.StartOptions{Port: 49201, Host: "127.0.0.1"})
	if err == nil {
		t.Fatal("Expected start failure for missing entry point")
	}
	if !errors.Is(err, proxyerr.ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable, got %v", err)
	}
}

func TestLocalBackend_StartStopLifecycle(t *testing.T) {
	entry := writeScript(t, "sleep 30")
	lb := NewLocalBackend(entry, "127.0.0.1", 49202)

	id, err := lb.Start(context.Background(), backend.StartOptions{Port: 49202, Host: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Expected successful start, got %v", err)
	}
	if id == "" || id == "0" {
		t.Errorf("Expected a PID identifier, got '%s'", id)
	}
	if !lb.IsRunning(context.Background()) {
		t.Error("Expected IsRunning true after start")
	}

	if err := lb.Stop(context.Background()); err != nil {
		t.Fatalf("Expected clean stop, got %v", err)
	}
	if lb.IsRunning(context.Background()) {
		t.Error("Expected IsRunning false after stop")
	}
}

func TestLocalBackend_StopWithoutStartIsNoOp(t *testing.T) {
	lb := NewLocalBackend("unused", "127.0.0.1", 49203)

	if err := lb.Stop(context.Background()); err != nil {
		t.Errorf("Expected no-op stop, got %v", err)
	}
	if lb.IsRunning(context.Background()) {
		t.Error("Expected IsRunning false")
	}
}

func TestLocalBackend_GetHealthStoppedWithoutProcessOrEndpoint(t *testing.T) {
	port := unusedPort(t)
	lb := NewLocalBackend("unused", "127.0.0.1", port)

	if health := lb.GetHealth(context.Background()); health != backend.Stopped {
		t.Errorf("Expected stopped, got '%s'", health)
	}
}

func TestLocalBackend_GetHealthStartingWithLiveProcessButNoEndpoint(t *testing.T) {
	port := unusedPort(t)
	entry := writeScript(t, "sleep 30")
	lb := NewLocalBackend(entry, "127.0.0.1", port)

	if _, err := lb.Start(context.Background(), backend.StartOptions{Port: port, Host: "127.0.0.1"}); err != nil {
		t.Fatalf("Expected successful start, got %v", err)
	}
	defer lb.Stop(context.Background())

	if health := lb.GetHealth(context.Background()); health != backend.Starting {
		t.Errorf("Expected starting, got '%s'", health)
	}
}

func TestLocalBackend_GetHealthFromEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   backend.Health
	}{
		{"2xx is healthy", http.StatusOK, backend.Healthy},
		{"204 is healthy", http.StatusNoContent, backend.Healthy},
		{"5xx is unhealthy", http.StatusInternalServerError, backend.Unhealthy},
		{"4xx is unhealthy", http.StatusNotFound, backend.Unhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("Expected /health probe, got %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			host, port := splitHostPort(t, server.Listener.Addr().String())
			lb := NewLocalBackend("unused", host, port)

			if health := lb.GetHealth(context.Background()); health != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, health)
			}
		})
	}
}

func TestLocalBackend_StartGraceWindowDuration(t *testing.T) {
	// A process that exits just inside the window must still fail the start.
	entry := writeScript(t, "sleep 0.3; exit 1")
	lb := NewLocalBackend(entry, "127.0.0.1", 49204)

	began := time.Now()
	_, err := lb.Start(context.Background(), backend.StartOptions{Port: 49204, Host: "127.0.0.1"})
	if err == nil {
		t.Fatal("Expected start failure")
	}
	if !errors.Is(err, proxyerr.ErrStartFailure) {
		t.Errorf("Expected ErrStartFailure, got %v", err)
	}
	if elapsed := time.Since(began); elapsed > 2*time.Second {
		t.Errorf("Start took too long to report failure: %s", elapsed)
	}
}

func unusedPort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	return port
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return host, port
}
