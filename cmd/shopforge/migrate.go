package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Strob0t/ShopForge/internal/adapter/postgres"
	"github.com/Strob0t/ShopForge/internal/config"
)

// runMigrate applies, rolls back or lists the optimization log migrations.
func runMigrate(args []string) error {
	cmd := "up"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn (DATABASE_URL) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch cmd {
	case "up":
		return postgres.RunMigrations(ctx, cfg.Postgres.DSN)
	case "down":
		fs := flag.NewFlagSet("down", flag.ContinueOnError)
		steps := fs.Int("steps", 1, "number of migrations to roll back")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *steps < 1 {
			return errors.New("--steps must be >= 1")
		}
		return postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *steps)
	case "status":
		states, err := postgres.MigrationStatus(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "VERSION\tAPPLIED\tAPPLIED_AT\tPATH")
		for _, s := range states {
			at := "-"
			if s.Applied {
				at = s.AppliedAt.Format(time.RFC3339)
			}
			_, _ = fmt.Fprintf(w, "%d\t%t\t%s\t%s\n", s.Version, s.Applied, at, s.Path)
		}
		return w.Flush()
	default:
		fmt.Fprintln(os.Stderr, "Usage: shopforge migrate [up|down [--steps N]|status]")
		return fmt.Errorf("unknown migrate command: %s", cmd)
	}
}
