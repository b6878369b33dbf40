package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestProxyError_Classification(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProxyError
		sentinel error
	}{
		{"start failure", NewStartFailureError("ctx", "cause", "hint", errors.New("boom")), ErrStartFailure},
		{"backend unavailable", NewBackendUnavailableError("ctx", "", "", errors.New("no daemon")), ErrBackendUnavailable},
		{"already running", NewAlreadyRunningError("ctx", "", "", errors.New("dup")), ErrAlreadyRunning},
		{"config invalid", NewConfigInvalidError("ctx", "", "", errors.New("bad")), ErrConfigInvalid},
		{"config not found", NewConfigNotFoundError("ctx", "", "", errors.New("missing")), ErrConfigNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("Expected errors.Is to match %v", tt.sentinel)
			}
			// Must not cross-match a different sentinel.
			if tt.sentinel != ErrStartFailure && errors.Is(tt.err, ErrStartFailure) {
				t.Error("Unexpected cross-match against ErrStartFailure")
			}
		})
	}
}

func TestProxyError_WrappedClassification(t *testing.T) {
	inner := NewStartFailureError("ctx", "", "", errors.New("spawn failed"))
	wrapped := fmt.Errorf("starting backend: %w", inner)

	if !errors.Is(wrapped, ErrStartFailure) {
		t.Error("Expected classification to survive wrapping")
	}

	var proxyErr *ProxyError
	if !errors.As(wrapped, &proxyErr) {
		t.Fatal("Expected errors.As to recover the ProxyError")
	}
	if proxyErr.Context != "ctx" {
		t.Errorf("Expected context to survive, got '%s'", proxyErr.Context)
	}
}

func TestProxyError_ErrorAndUnwrap(t *testing.T) {
	original := errors.New("underlying failure")
	err := NewRuntimeError("Something broke", "a cause", "a suggestion", original)

	if err.Error() != "underlying failure" {
		t.Errorf("Error() must surface the original message, got '%s'", err.Error())
	}
	if !errors.Is(err, original) {
		t.Error("Expected Unwrap chain to reach the original error")
	}
}

func TestGetErrorTypeName(t *testing.T) {
	tests := []struct {
		sentinel error
		want     string
	}{
		{ErrConfigNotFound, "config_not_found"},
		{ErrConfigInvalid, "config_invalid"},
		{ErrBackendUnavailable, "backend_unavailable"},
		{ErrStartFailure, "start_failure"},
		{ErrAlreadyRunning, "already_running"},
		{ErrRuntimeFailed, "runtime_failed"},
		{ErrFileSystemFailed, "filesystem_failed"},
		{errors.New("other"), "unknown"},
	}

	for _, tt := range tests {
		if got := getErrorTypeName(tt.sentinel); got != tt.want {
			t.Errorf("getErrorTypeName(%v) = %s, want %s", tt.sentinel, got, tt.want)
		}
	}
}
