package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned by Insert when a record with the same key exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConstraintViolation is returned when the store rejects a record's
	// content (oversized text, invalid encoding, check or key constraint).
	// The record may succeed after sanitization.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrStorageUnavailable is returned when the store cannot be reached.
	// Callers should treat it as fatal for the current unit of work.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
