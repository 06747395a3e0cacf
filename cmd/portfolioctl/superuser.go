package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/storage"
	"github.com/hongminglow/coinfolio-be/internal/storage/postgres"
)

var errSuperuserExists = errors.New("superuser already exists")

type createSuperuserCmd struct {
	databaseURL string
}

func (*createSuperuserCmd) Name() string { return "createsuperuser" }
func (*createSuperuserCmd) Synopsis() string {
	return "create a superuser from SUPERUSER_* environment variables"
}
func (*createSuperuserCmd) Usage() string {
	return `portfolioctl createsuperuser [-db <url>]

  Reads SUPERUSER_USERNAME, SUPERUSER_EMAIL and SUPERUSER_PASSWORD and creates
  the account unless the username is already taken. Intended for deploy hooks.
`
}

func (c *createSuperuserCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.databaseURL, "db", os.Getenv("DATABASE_URL"), "Postgres connection URL.")
}

func (c *createSuperuserCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	username := os.Getenv("SUPERUSER_USERNAME")
	email := os.Getenv("SUPERUSER_EMAIL")
	password := os.Getenv("SUPERUSER_PASSWORD")
	if email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "SUPERUSER_EMAIL and SUPERUSER_PASSWORD environment variables are missing.")
		return subcommands.ExitUsageError
	}
	if c.databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL or -db is required")
		return subcommands.ExitUsageError
	}

	store, err := postgres.New(ctx, c.databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	account, err := createSuperuser(ctx, store, username, email, password)
	switch {
	case errors.Is(err, errSuperuserExists):
		fmt.Printf("Superuser with username %q already exists.\n", username)
		return subcommands.ExitSuccess
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Superuser %s (id=%d) created successfully.\n", account.Username, account.ID)
	return subcommands.ExitSuccess
}

// createSuperuser creates the account unless username is taken. An empty username
// falls back to the email address.
func createSuperuser(ctx context.Context, accounts storage.AccountStore, username, email, password string) (models.Account, error) {
	if username == "" {
		username = email
	}
	if _, err := accounts.FindByUsernameOrEmail(ctx, username); err == nil {
		return models.Account{}, errSuperuserExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.Account{}, fmt.Errorf("look up %s: %w", username, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}
	account, err := accounts.CreateAccount(ctx, models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsSuperuser:  true,
	}, models.Profile{PreferredCurrency: models.DefaultCurrency})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return models.Account{}, errSuperuserExists
	}
	return account, err
}
