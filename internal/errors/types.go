package errors

import "errors"

var (
	ErrConfigNotFound     = errors.New("proxy config file not found")
	ErrConfigInvalid      = errors.New("proxy config invalid")
	ErrBackendUnavailable = errors.New("backend substrate unavailable")
	ErrStartFailure       = errors.New("backend failed to start")
	ErrAlreadyRunning     = errors.New("backend already running")
	ErrRuntimeFailed      = errors.New("runtime operation failed")
	ErrFileSystemFailed   = errors.New("filesystem operation failed")
)

// ProxyError attaches user-facing context to an underlying error. Type is
// one of the sentinel errors above so callers can classify with errors.Is.
type ProxyError struct {
	Type        error
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

func (e *ProxyError) Error() string {
	return e.OriginalErr.Error()
}

func (e *ProxyError) Unwrap() error {
	return e.OriginalErr
}

// Is lets errors.Is(err, ErrStartFailure) classify a wrapped ProxyError by
// its Type in addition to its original error chain.
func (e *ProxyError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

func NewProxyError(errorType error, context, cause, suggestion string, originalErr error) *ProxyError {
	return &ProxyError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

func NewConfigNotFoundError(context, cause, suggestion string, originalErr error) *ProxyError {
	return NewProxyError(ErrConfigNotFound, context, cause, suggestion, originalErr)
}

func NewConfigInvalidError(context, cause, suggestion string, originalErr error) *ProxyError {
	return NewProxyError(ErrConfigInvalid, context, cause, suggestion, originalErr)
}

func NewBackendUnavailableError(context, cause, suggestion string, originalErr error) *ProxyError {
	return NewProxyError(ErrBackendUnavailable, context, cause, suggestion, originalErr)
}

func NewStartFailureError(context, cause, suggestion string, originalErr error) *ProxyError {
	return NewProxyError(ErrStartFailure, context, cause, suggestion, originalErr)
}

func NewAlreadyRunningError(context, cause, suggestion string, originalErr error) *ProxyError {
	return NewProxyError(ErrAlreadyRunning, context, cause, suggestion, originalErr)
}

func NewRuntimeError(context, cause, suggestion string, originalErr error) *ProxyError {
	return NewProxyError(ErrRuntimeFailed, context, cause, suggestion, originalErr)
}

func NewFileSystemError(context, cause, suggestion string, originalErr error) *ProxyError {
	return NewProxyError(ErrFileSystemFailed, context, cause, suggestion, originalErr)
}
