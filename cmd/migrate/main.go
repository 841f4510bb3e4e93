// Команда migrate применяет, откатывает и показывает миграции схемы POS.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/pos/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	dsnEnv         = "POS_POSTGRES_DSN"
)

type options struct {
	direction string
	steps     int
	dsn       string
	timeout   time.Duration
}

// migrator покрывает ту часть postgres.Store, которая нужна команде.
type migrator interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
	MigrationStatus(ctx context.Context) (postgres.MigrationState, error)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fail("load .env: %v", err)
	}

	opts, err := parseOptions(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	store, err := postgres.Open(ctx, opts.dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	state, err := migrate(ctx, store, opts.direction, opts.steps)
	if err != nil {
		fail("migrate %s failed: %v", opts.direction, err)
	}
	fmt.Printf("migrate %s ok: %s\n", opts.direction, describe(state))
}

func parseOptions(args []string, getenv func(string) string, output io.Writer) (options, error) {
	opts := options{}
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.direction, "direction", "up", "migration direction: up|down|status")
	fs.IntVar(&opts.steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	fs.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (fallback: "+dsnEnv+")")
	fs.DurationVar(&opts.timeout, "timeout", defaultTimeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.dsn = strings.TrimSpace(opts.dsn)
	if opts.dsn == "" {
		opts.dsn = strings.TrimSpace(getenv(dsnEnv))
	}
	opts.direction = strings.ToLower(strings.TrimSpace(opts.direction))

	switch {
	case opts.dsn == "":
		return options{}, fmt.Errorf("%s (or -dsn) is required", dsnEnv)
	case opts.direction != "up" && opts.direction != "down" && opts.direction != "status":
		return options{}, fmt.Errorf("unsupported direction: %s (use up|down|status)", opts.direction)
	case opts.steps < 0:
		return options{}, fmt.Errorf("steps must be >= 0")
	case opts.timeout <= 0:
		return options{}, fmt.Errorf("timeout must be > 0")
	}
	return opts, nil
}

func migrate(ctx context.Context, m migrator, direction string, steps int) (postgres.MigrationState, error) {
	switch direction {
	case "up":
		if err := m.MigrateUp(ctx, steps); err != nil {
			return postgres.MigrationState{}, err
		}
	case "down":
		if steps <= 0 {
			steps = 1
		}
		if err := m.MigrateDown(ctx, steps); err != nil {
			return postgres.MigrationState{}, err
		}
	}
	return m.MigrationStatus(ctx)
}

func describe(state postgres.MigrationState) string {
	return fmt.Sprintf("version=%d applied=%d pending=%d", state.Version, state.Applied, state.Pending())
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
