package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a job status change would move
// backwards or out of a terminal state.
var ErrInvalidTransition = errors.New("invalid job status transition")

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrorKind classifies the error for status mapping at the API boundary.
func (e *ValidationError) ErrorKind() string {
	return "validation"
}

// TransitionError carries the statuses involved in a rejected transition.
type TransitionError struct {
	From JobStatus
	To   JobStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ErrorKind classifies the error for status mapping at the API boundary.
func (e *TransitionError) ErrorKind() string {
	return "conflict"
}
