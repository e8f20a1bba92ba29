package model

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// UnavailableError indicates the language-model backend could not be reached
// or did not answer before the configured timeout. Callers decide the retry
// policy; adapters never retry themselves.
type UnavailableError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("language model unavailable at %s: %v", e.Endpoint, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err (or anything it wraps) is an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// WrapTransportErr classifies transport-level failures (timeouts, refused
// connections, cancelled contexts) as UnavailableError against the given
// endpoint. Other errors pass through unchanged.
func WrapTransportErr(endpoint string, err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &ne):
		return &UnavailableError{Endpoint: endpoint, Err: err}
	}
	return err
}
