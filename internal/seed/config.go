// Package seed fills a SQLite attribution database with synthetic players
// and events, and checks the rankings a running server builds from it.
package seed

import "time"

// Config holds configuration for a seed run.
type Config struct {
	DBPath   string        // SQLite database to write into
	Players  int           // Number of players to create
	Events   int           // Number of attribution events to record
	Days     int           // Events are spread over the last Days days
	Seed     uint64        // Random seed; runs with equal seeds are identical
	BaseURL  string        // Server to verify; empty skips verification
	Workers  int           // Concurrent verification requests
	Timeout  time.Duration // HTTP request timeout
	PageSize int           // Rows requested per /ranking page
	Wait     time.Duration // How long to wait for the server to refresh
	LogFile  string        // Optional log file next to stdout
	Verbose  bool          // Enable debug logging
}

// Stats holds run statistics.
type Stats struct {
	PlayersWritten  int
	EventsWritten   int
	PagesChecked    int
	RowsChecked     int
	RankingsChecked int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
