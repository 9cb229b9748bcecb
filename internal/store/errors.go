package store

import "errors"

// Store errors.
var (
	// ErrNotFound is returned when a requested asset is not tracked.
	ErrNotFound = errors.New("asset not found")

	// ErrInvalidInput is returned when an update or ledger call fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is returned when a status change does not follow the asset lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyOpen is returned when opening a position on an asset that already has one.
	ErrAlreadyOpen = errors.New("position already open")

	// ErrCorruptSnapshot is returned when the snapshot file cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt asset snapshot")
)
