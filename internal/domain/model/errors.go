package model

import "errors"

// Sentinel kinds for selector parsing and lookups.
var (
	ErrUnknownKind      = errors.New("unknown attribution kind")
	ErrUnknownTimeRange = errors.New("unknown time range")
	ErrNotFound         = errors.New("record not found")
)
