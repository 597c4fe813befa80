// Package domain contains the core domain models and types.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the client failure taxonomy. Each maps to one
// backend operation; transport errors are the websocket-specific case
// that triggers polling fallback instead of surfacing as a failure.
var (
	// ErrUpload indicates the file upload was rejected or failed.
	ErrUpload = errors.New("upload failed")

	// ErrAnalysisStart indicates the job submission was rejected.
	ErrAnalysisStart = errors.New("analysis start failed")

	// ErrStatusFetch indicates a status snapshot could not be read.
	ErrStatusFetch = errors.New("status fetch failed")

	// ErrResultsFetch indicates the results could not be retrieved.
	ErrResultsFetch = errors.New("results fetch failed")

	// ErrChatSession indicates a chat session could not be opened.
	ErrChatSession = errors.New("chat session failed")

	// ErrChatMessage indicates a chat exchange failed.
	ErrChatMessage = errors.New("chat message failed")

	// ErrTransport indicates the progress channel transport broke.
	ErrTransport = errors.New("progress channel transport failed")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ClientError wraps an error with call-site context and the
// backend-supplied detail string, which must reach the user verbatim.
type ClientError struct {
	// Op is the operation that failed.
	Op string

	// Err is the underlying error.
	Err error

	// Detail is the backend's human-readable failure message, if any.
	Detail string

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	switch {
	case e.Op != "" && e.Detail != "":
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Detail)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%v: %s", e.Err, e.Detail)
	default:
		return e.Err.Error()
	}
}

// Unwrap returns the underlying error.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// WrapError creates a new ClientError with context.
func WrapError(op string, err error, retryable bool) *ClientError {
	return &ClientError{
		Op:        op,
		Err:       err,
		Retryable: retryable,
	}
}

// WrapDetail creates a new ClientError carrying a backend detail string.
func WrapDetail(op string, err error, detail string, retryable bool) *ClientError {
	return &ClientError{
		Op:        op,
		Err:       err,
		Detail:    detail,
		Retryable: retryable,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// UserMessage extracts the most useful text to show the user: the
// backend detail when present, the wrapped error otherwise.
func UserMessage(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) && ce.Detail != "" {
		return ce.Detail
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
