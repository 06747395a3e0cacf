package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/hongminglow/coinfolio-be/internal/storage/postgres"
)

type migrateCmd struct {
	databaseURL string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or upgrade the database schema" }
func (*migrateCmd) Usage() string {
	return `portfolioctl migrate [-db <url>]

  Applies the schema migrations. Safe to run repeatedly.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.databaseURL, "db", os.Getenv("DATABASE_URL"), "Postgres connection URL.")
}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL or -db is required")
		return subcommands.ExitUsageError
	}
	// postgres.New migrates on open.
	store, err := postgres.New(ctx, c.databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	store.Close()
	fmt.Println("Migrations applied.")
	return subcommands.ExitSuccess
}
