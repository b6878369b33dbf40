package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fullstacktard/fst-claude-proxy/internal/ui"
)

type ErrorHandler struct {
	logger  *slog.Logger
	console *ui.Console
}

func NewErrorHandler() (*ErrorHandler, error) {
	logFile, err := createLogFile()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	console := ui.NewConsole()

	return &ErrorHandler{
		logger:  logger,
		console: console,
	}, nil
}

// logDir returns the OS-standard log directory for the proxy CLI, honoring
// the FST_PROXY_LOG_DIR override.
func logDir() (string, error) {
	if custom := os.Getenv("FST_PROXY_LOG_DIR"); custom != "" {
		return custom, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Logs", "fst-proxy"), nil
	case "windows":
		appDataDir := os.Getenv("APPDATA")
		if appDataDir == "" {
			appDataDir = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appDataDir, "fst-proxy", "logs"), nil
	default:
		// XDG Base Directory layout on Linux and the BSDs
		return filepath.Join(homeDir, ".local", "share", "fst-proxy", "logs"), nil
	}
}

// rotateLogFile shifts fst-proxy.log.N files up by one, dropping the oldest.
func rotateLogFile(logPath string) error {
	const maxFiles = 5

	for i := maxFiles - 1; i > 0; i-- {
		oldPath := fmt.Sprintf("%s.%d", logPath, i)
		newPath := fmt.Sprintf("%s.%d", logPath, i+1)

		if i == maxFiles-1 {
			if _, err := os.Stat(oldPath); err == nil {
				if err := os.Remove(oldPath); err != nil {
					slog.Warn("Failed to remove old log file", "path", oldPath, "error", err)
				}
			}
			continue
		}

		if _, err := os.Stat(oldPath); err == nil {
			if err := os.Rename(oldPath, newPath); err != nil {
				slog.Warn("Failed to rotate log file", "old", oldPath, "new", newPath, "error", err)
			}
		}
	}

	if _, err := os.Stat(logPath); err == nil {
		return os.Rename(logPath, logPath+".1")
	}

	return nil
}

func checkLogRotation(logPath string) error {
	const maxSizeBytes = 10 * 1024 * 1024

	info, err := os.Stat(logPath)
	if err != nil {
		// File doesn't exist yet, no rotation needed
		return nil
	}

	if info.Size() >= maxSizeBytes {
		return rotateLogFile(logPath)
	}

	return nil
}

func createLogFile() (*os.File, error) {
	dir, err := logDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine log directory: %w", err)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		// Fall back to the working directory when the standard location
		// cannot be created.
		cwd, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
		fmt.Fprintf(os.Stderr, "Warning: cannot access log directory %s: %v. Falling back to current directory.\n", dir, err)
		dir = cwd
	}

	logPath := filepath.Join(dir, "fst-proxy.log")

	if err := checkLogRotation(logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to rotate log file: %v\n", err)
	}

	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	var proxyErr *ProxyError
	if errors.As(err, &proxyErr) {
		h.handleProxyError(proxyErr)
	} else {
		h.handleGenericError(err)
	}
}

func (h *ErrorHandler) handleProxyError(err *ProxyError) {
	h.logStructuredError(err)

	message := h.console.FormatErrorMessage(err.Context, err.Cause, err.Suggestion)
	h.console.PrintError(message)
}

func (h *ErrorHandler) handleGenericError(err error) {
	h.logger.Error("Unhandled error occurred",
		"error", err.Error(),
		"type", "generic",
	)

	h.console.PrintError(err.Error())
}

func (h *ErrorHandler) logStructuredError(err *ProxyError) {
	logAttrs := []slog.Attr{
		slog.String("error", err.OriginalErr.Error()),
		slog.String("type", getErrorTypeName(err.Type)),
		slog.String("context", err.Context),
	}

	if err.Cause != "" {
		logAttrs = append(logAttrs, slog.String("cause", err.Cause))
	}

	if err.Suggestion != "" {
		logAttrs = append(logAttrs, slog.String("suggestion", err.Suggestion))
	}

	h.logger.LogAttrs(context.TODO(), slog.LevelError, "Proxy error occurred", logAttrs...)
}

func getErrorTypeName(errType error) string {
	switch errType {
	case ErrConfigNotFound:
		return "config_not_found"
	case ErrConfigInvalid:
		return "config_invalid"
	case ErrBackendUnavailable:
		return "backend_unavailable"
	case ErrStartFailure:
		return "start_failure"
	case ErrAlreadyRunning:
		return "already_running"
	case ErrRuntimeFailed:
		return "runtime_failed"
	case ErrFileSystemFailed:
		return "filesystem_failed"
	default:
		return "unknown"
	}
}
