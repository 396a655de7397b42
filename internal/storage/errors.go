package storage

import "errors"

// Draw and indicator stores are append-only: a period, or a (period, column)
// cell, is written once and never updated.
var (
	// ErrNotFound is returned when a period has no stored row.
	ErrNotFound = errors.New("period not found")

	// ErrDuplicateKey is returned when a batch repeats a stored period or
	// cell, or repeats one within itself. The whole batch is rejected.
	ErrDuplicateKey = errors.New("duplicate key: stored draws and cells are immutable")

	// ErrInvalidInput is returned for nil draws, empty periods, out-of-range
	// numbers or negative indicator values.
	ErrInvalidInput = errors.New("invalid input")
)
