package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	// ErrDuplicatePlayer is returned when one record set names a player twice.
	ErrDuplicatePlayer = errors.New("duplicate player in record set")
)
