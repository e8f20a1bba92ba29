package orchestrator

import (
	"errors"
	"fmt"
)

// DuplicateNameError is returned by CreateAgent when the name is already
// registered. Registry comparison is case-sensitive and exact.
type DuplicateNameError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("agent %q already exists", e.Name)
}

// NotFoundError is returned when a command names an agent absent from the
// registry (or soft-stopped, which makes it unaddressable).
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("agent %q not found", e.Name)
}

// NoActiveAgentError is returned by Chat when no agent is active.
type NoActiveAgentError struct{}

// Error implements the error interface.
func (e *NoActiveAgentError) Error() string {
	return "no active agent; create or switch to an agent first"
}

// IsDuplicateName reports whether err is a DuplicateNameError.
func IsDuplicateName(err error) bool {
	var d *DuplicateNameError
	return errors.As(err, &d)
}

// IsNotFound reports whether err is an orchestrator NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsNoActiveAgent reports whether err is a NoActiveAgentError.
func IsNoActiveAgent(err error) bool {
	var na *NoActiveAgentError
	return errors.As(err, &na)
}
