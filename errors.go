package ddnsd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// NetworkError reports a failure to reach a remote service at all:
// timeouts, refused connections, lookup failures for the service host,
// or an echo service that did not answer with an address.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %s", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProviderError reports a response from the DNS provider that was not a success,
// or a success response whose shape could not be interpreted.
// Body holds the raw response body when one was received.
type ProviderError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("%s: provider returned %d: %s", e.Op, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("%s: provider returned %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	default:
		return e.Op + ": provider error"
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ConfigError reports a configuration value that prevents the loop from starting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// ErrRecordNotFound is wrapped by provider errors when the target record does not exist.
var ErrRecordNotFound = errors.New("record not found")

// classify wraps err as a NetworkError when it came from the transport layer
// and as a ProviderError otherwise.
// Errors that are already classified are returned unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ne *NetworkError
	var pe *ProviderError
	if errors.As(err, &ne) || errors.As(err, &pe) {
		return err
	}
	if isTransportError(err) {
		return &NetworkError{Op: op, Err: err}
	}
	return &ProviderError{Op: op, Err: err}
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
