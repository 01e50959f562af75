package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every NotFoundError via errors.Is.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique field (username, mood tag name) is taken.
	ErrDuplicate = errors.New("duplicate record")
)

// NotFoundError reports that an id does not resolve to a live record.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ErrorKind classifies the error for status mapping at the API boundary.
func (e *NotFoundError) ErrorKind() string {
	return "not_found"
}

func notFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// DuplicateError reports a unique constraint violation.
type DuplicateError struct {
	Entity string
	Field  string
	Value  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// ErrorKind classifies the error for status mapping at the API boundary.
func (e *DuplicateError) ErrorKind() string {
	return "conflict"
}

// LinkNotFoundError reports a missing clip/mood tag pair.
type LinkNotFoundError struct {
	AudioClipID int64
	MoodTagID   int64
}

func (e *LinkNotFoundError) Error() string {
	return fmt.Sprintf("mood tag %d is not attached to audio clip %d", e.MoodTagID, e.AudioClipID)
}

func (e *LinkNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ErrorKind classifies the error for status mapping at the API boundary.
func (e *LinkNotFoundError) ErrorKind() string {
	return "not_found"
}
