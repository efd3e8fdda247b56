package core

import (
	"context"
	"errors"
)

// StepStatus is the outcome of one step of a journey.
type StepStatus int

const (
	StatusPending StepStatus = iota // not reached
	StatusPassed
	StatusFailed  // assertion or element failure
	StatusErrored // infrastructure: connection, config, cancellation
	StatusSkipped // an earlier step failed
)

// String returns the string representation of StepStatus
func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Label is the short upper-case form used in step listings.
func (s StepStatus) Label() string {
	switch s {
	case StatusPassed:
		return "PASS"
	case StatusFailed:
		return "FAIL"
	case StatusErrored:
		return "ERROR"
	case StatusSkipped:
		return "SKIP"
	default:
		return "...."
	}
}

// Categorize maps err onto an ErrorCategory. An ExecutionError anywhere in
// the chain decides; otherwise unrecognised errors count as connection
// problems.
func Categorize(err error) ErrorCategory {
	var execErr *ExecutionError
	switch {
	case err == nil:
		return ErrCategoryNone
	case errors.As(err, &execErr):
		return execErr.Category
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrCategoryTimeout
	default:
		return ErrCategoryConnection
	}
}

// StatusOf returns the status a step finishing with err gets.
func StatusOf(err error) StepStatus {
	switch Categorize(err) {
	case ErrCategoryNone:
		return StatusPassed
	case ErrCategoryAssertion:
		return StatusFailed
	default:
		return StatusErrored
	}
}
