package seed

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/okian/ranked/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging configures logging to stdout and, if logFile is set, to the
// file as well. It returns a function closing the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	var w io.Writer = os.Stdout
	closeFn := func() error { return nil }
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closeFn = file.Close
	}
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		logger.SetLevel(slog.LevelDebug)
	}
	return closeFn, nil
}

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`ranked seed tool
================

Fills a SQLite attribution database with synthetic players and events and,
optionally, checks the rankings a running server builds from it.

Usage:
  go run ./cmd/seed [options]

Options:
  -db string
        SQLite database to write into (default "ranked.db")
  -players int
        Number of players to create (default 500)
  -events int
        Number of attribution events to record (default 20000)
  -days int
        Spread events over this many past days (default 400)
  -seed uint
        Random seed (default 1)
  -url string
        Server to verify after seeding; empty skips verification
  -workers int
        Concurrent verification requests (default CPU cores)
  -page int
        Rows per /ranking request during verification (default 100)
  -timeout duration
        HTTP request timeout (default 10s)
  -wait duration
        How long to wait for the server to refresh (default 3m)
  -log string
        Also write logs to this file
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Seed the default database
  go run ./cmd/seed

  # Seed, then verify a server that reads the same database
  go run ./cmd/seed -db ranked.db -url http://localhost:9080 -events 100000
`)
}
