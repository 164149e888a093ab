package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/okian/ranked/internal/seed"
)

func main() {
	var (
		dbPath   = flag.String("db", "ranked.db", "SQLite database to write into")
		players  = flag.Int("players", seed.DefaultPlayers, "Number of players to create")
		events   = flag.Int("events", seed.DefaultEvents, "Number of attribution events to record")
		days     = flag.Int("days", seed.DefaultDays, "Spread events over this many past days")
		rngSeed  = flag.Uint64("seed", 1, "Random seed")
		baseURL  = flag.String("url", "", "Server to verify after seeding; empty skips verification")
		workers  = flag.Int("workers", runtime.NumCPU(), "Concurrent verification requests")
		pageSize = flag.Int("page", seed.DefaultPageSize, "Rows per /ranking request during verification")
		timeout  = flag.Duration("timeout", seed.DefaultTimeout, "HTTP request timeout")
		wait     = flag.Duration("wait", seed.DefaultWait, "How long to wait for the server to refresh")
		logFile  = flag.String("log", "", "Also write logs to this file")
		verbose  = flag.Bool("verbose", false, "Enable debug logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	closeLog, err := seed.SetupLogging(*logFile, *verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	_, err = seed.Run(ctx, &seed.Config{
		DBPath:   *dbPath,
		Players:  *players,
		Events:   *events,
		Days:     *days,
		Seed:     *rngSeed,
		BaseURL:  *baseURL,
		Workers:  *workers,
		Timeout:  *timeout,
		PageSize: *pageSize,
		Wait:     *wait,
		LogFile:  *logFile,
		Verbose:  *verbose,
	})
	stop()
	_ = closeLog()
	if err != nil {
		_, _ = os.Stderr.WriteString("seed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
