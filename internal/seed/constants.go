package seed

import "time"

// Default run parameters.
const (
	DefaultPlayers  = 500
	DefaultEvents   = 20000
	DefaultDays     = 400
	DefaultPageSize = 100
	DefaultTimeout  = 10 * time.Second
	DefaultWait     = 3 * time.Minute

	pollInterval    = 250 * time.Millisecond
	insertBatchSize = 1000
	dayLength       = 24 * time.Hour
)
