package rehydrate

import (
	"errors"
	"fmt"

	"github.com/okian/ranked/internal/domain/model"
)

// Sentinel kinds for rehydration errors.
var (
	// ErrFetch marks a refresh of one (kind, time range) pair that was
	// skipped because its provider failed or returned unusable data.
	ErrFetch = errors.New("provider fetch failed")
	// ErrLoopFatal is returned by Run when the loop cannot continue.
	ErrLoopFatal = errors.New("rehydration loop failed")
	// ErrNoProvider is returned when a kind has no provider configured.
	ErrNoProvider = errors.New("no provider configured")
)

// PairError is the failure of one (kind, time range) refresh.
type PairError struct {
	Kind      model.Kind
	TimeRange model.TimeRange
	Err       error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("refresh kind=%s, time-range=%s: %v", e.Kind, e.TimeRange, e.Err)
}

func (e *PairError) Unwrap() error { return e.Err }
