package rendezvous

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound means the peer has not registered yet. Polling should continue.
var ErrNotFound = errors.New("peer not registered")

// TransportError is a network-level failure talking to the rendezvous server.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rendezvous %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError means a 200 response did not carry an ip:port address.
type ParseError struct {
	Body string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid peer address %q: %v", e.Body, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type UnexpectedStatusError struct {
	Code int
	Body string
}

func (e *UnexpectedStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected HTTP status %d", e.Code)
	}
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.Code, e.Body)
}

// IsFatal reports whether a lookup error breaks the rendezvous contract (or the
// caller gave up) and polling must stop.
func IsFatal(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return false
	}
	return true
}
