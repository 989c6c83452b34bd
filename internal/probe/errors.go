package probe

import (
	"errors"
	"fmt"
)

// Kind categorizes a transport failure.
type Kind string

const (
	// KindConnection covers refused, reset and unresolvable connections.
	KindConnection Kind = "CONNECTION"

	// KindTimeout means the per-call timeout elapsed.
	KindTimeout Kind = "TIMEOUT"

	// KindMalformed means the peer sent something that is not valid HTTP
	// framing, or the body was cut short.
	KindMalformed Kind = "MALFORMED"

	// KindCanceled means the caller's context was canceled.
	KindCanceled Kind = "CANCELED"
)

// TransportError is returned by Send when no well-formed response exists.
type TransportError struct {
	Kind   Kind
	Method string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsTimeout returns true if err is a transport timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind == KindTimeout
	}
	return false
}
