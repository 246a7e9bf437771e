package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// MigrateFunc applies pending migrations and returns the names it applied.
type MigrateFunc func(ctx context.Context) ([]string, error)

// MigrateOptions configures the migrate subcommand.
type MigrateOptions struct {
	// List prints the embedded migrations without touching the database.
	List       bool
	Available  []string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// MigrateCommand runs apply (or lists Available when opts.List) and prints the outcome.
func MigrateCommand(ctx context.Context, apply MigrateFunc, opts MigrateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.List {
		return printMigrations(opts, "available", opts.Available)
	}
	if apply == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "migrate: database not configured")
		return 1
	}
	applied, err := apply(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "migrate: %v\n", err)
		if len(applied) > 0 {
			_, _ = fmt.Fprintf(opts.Stderr, "migrate: applied before failure: %v\n", applied)
		}
		return 1
	}
	if len(applied) == 0 && !opts.JSONOutput {
		_, _ = fmt.Fprintln(opts.Stdout, "schema up to date")
		return 0
	}
	return printMigrations(opts, "applied", applied)
}

func printMigrations(opts MigrateOptions, key string, names []string) int {
	if names == nil {
		names = []string{}
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(map[string][]string{key: names}); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "migrate: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	for _, name := range names {
		_, _ = fmt.Fprintf(opts.Stdout, "%s %s\n", key, name)
	}
	return 0
}
