package sqlite

import "errors"

// Sentinel kinds for SQLite provider errors.
var (
	ErrPathRequired  = errors.New("sqlite path is required")
	ErrUnknownPlayer = errors.New("attribution references an unknown player")
	ErrInvalidKind   = errors.New("invalid attribution kind")
	ErrClosed        = errors.New("sqlite store is not open")
)
