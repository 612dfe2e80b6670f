// Command checker scans Steam profiles and records how much of their
// playtime was spent on Linux.
//
// Usage:
//
//	checker <steamid|vanity|profile-url>...
//	checker -group <group-name|gid|group-url>...
//
// Every scan is written to the database at DB_PATH and summarised on stdout.
// STEAM_API_KEY must be set, in the environment or a .env file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
	"github.com/StarterX4/steamlinuxchecker/internal/config"
	sqliteRepo "github.com/StarterX4/steamlinuxchecker/internal/repository/sqlite"
	"github.com/StarterX4/steamlinuxchecker/internal/service"
	"github.com/StarterX4/steamlinuxchecker/internal/steam"
)

func main() {
	group := flag.Bool("group", false, "treat arguments as Steam groups and scan every member")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-group] <id|vanity|url>...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.Logger()

	if err := cfg.RequireAPIKey(); err != nil {
		logger.Error("missing configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *group, flag.Args()); err != nil {
		logger.Error("check failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

// run opens the store, builds the Steam client and checker, and scans the
// arguments. Recoverable per-user errors are logged and skipped inside the
// checker; whatever comes back here ends the process.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, group bool, args []string) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	client := steam.NewClient(cfg.SteamAPIKey,
		steam.WithLimiter(steam.NewLimiter(cfg.CallInterval, clockwork.NewRealClock())),
		steam.WithTimeout(cfg.HTTPTimeout),
		steam.WithLogger(logger),
	)
	checker := service.NewChecker(client, db, service.CheckerOptions{
		IgnoredApps:    cfg.IgnoredApps(),
		Policy:         cfg.PlaytimePolicy(),
		PersistPrivate: cfg.PersistPrivate,
	}, logger)

	if !group {
		return checkUsers(ctx, checker, os.Stdout, logger, args)
	}

	for _, raw := range args {
		results, err := checker.CheckGroup(ctx, raw)
		printSummaries(os.Stdout, results)
		if apperror.Recoverable(err) {
			logger.Warn("skipping group", slog.String("group", raw), slog.String("error", err.Error()))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type userChecker interface {
	CheckAll(ctx context.Context, raws []string) ([]*service.Result, error)
}

// checkUsers scans args and prints what was scanned. Users skipped for a
// per-user reason are not a failure, even when that leaves nothing to print.
func checkUsers(ctx context.Context, checker userChecker, w io.Writer, logger *slog.Logger, args []string) error {
	results, err := checker.CheckAll(ctx, args)
	printSummaries(w, results)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		logger.Warn("no user could be checked", slog.Int("requested", len(args)))
	}
	return nil
}
