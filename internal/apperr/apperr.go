// Package apperr defines the error taxonomy the engine surfaces to callers.
// Each kind is its own type so callers can errors.As on the specific kind
// instead of string-matching.
package apperr

import "fmt"

// ValidationError signals malformed input.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validation: %s", e.Detail) }

// NotFoundError signals an absent entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found: %s", e.Entity, e.ID) }

// StateError signals an illegal state-machine transition.
type StateError struct {
	Detail string
}

func (e *StateError) Error() string { return fmt.Sprintf("invalid state transition: %s", e.Detail) }

// PairingError signals engine infeasibility after all relaxations are exhausted.
type PairingError struct {
	Section string
	Detail  string
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("pairing failed for section %q: %s", e.Section, e.Detail)
}

// ConflictError signals a concurrent modification or a divergent resubmission.
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string { return fmt.Sprintf("conflict: %s", e.Detail) }

// IntegrationError signals a downstream system failure.
type IntegrationError struct {
	System string
	Err    error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration failure (%s): %v", e.System, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// TimeoutError signals an operation exceeded its budget.
type TimeoutError struct {
	Operation string
	Budget    string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded its %s budget", e.Operation, e.Budget)
}
