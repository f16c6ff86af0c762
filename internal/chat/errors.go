// ABOUTME: Error types surfaced by the chat client
// ABOUTME: Separates configuration, transport, and protocol failures so callers can branch with errors.As

package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoSession is returned when an operation needs a session and neither
	// an override nor a stored session id is available.
	ErrNoSession = errors.New("No session ID provided and no current session available")

	// ErrAPIKeyRequired is returned by administrative calls made without a key.
	ErrAPIKeyRequired = errors.New("API key is required for clearing conversation history")

	// ErrUnsupportedOperation is wrapped by UnsupportedOperationError.
	ErrUnsupportedOperation = errors.New("operation not supported")

	// ErrEmptyID is returned by file and thread calls given an empty id.
	ErrEmptyID = errors.New("resource ID must not be empty")

	// ErrNotConfigured is returned by the package-level helpers before Configure.
	ErrNotConfigured = errors.New("chat client not configured")
)

// ConfigurationError reports an invalid client configuration. It is only
// produced synchronously by New and SetSessionID.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// TransportError wraps a failure to reach the server or to read its
// response. Its message is the underlying error's message unchanged.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a non-2xx status or an unreadable response body.
type ProtocolError struct {
	Status int
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Network response was not ok: %d", e.Status)
}

// UnsupportedOperationError is returned when an optional operation is called
// on a client whose capability set does not include it.
type UnsupportedOperationError struct {
	Op Capability
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsupportedOperation.Error(), e.Op)
}

func (e *UnsupportedOperationError) Unwrap() error {
	return ErrUnsupportedOperation
}

// classifyTransport wraps a Do or Read failure.
func classifyTransport(err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Err: err}
}

// classifyStatus returns a ProtocolError for any non-2xx response.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &ProtocolError{Status: resp.StatusCode}
}

// isCancel reports whether err is the caller's own cancellation, which ends
// a stream without an error.
func isCancel(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) && ctx.Err() != nil
}
