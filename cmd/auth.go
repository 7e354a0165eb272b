package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/partyq/internal/server"
	"github.com/desertthunder/partyq/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthHash prints a bcrypt hash of the given password.
func (r *Runner) AuthHash(ctx context.Context, cmd *cli.Command) error {
	password := cmd.StringArg("password")
	if password == "" {
		return fmt.Errorf("%w: password", shared.ErrMissingArgument)
	}

	hash, err := server.HashPassword(password)
	if err != nil {
		return err
	}
	r.writePlain("%s\n", hash)
	return nil
}

// AuthToken issues an admin token with the configured credentials, for scripting against the API.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	password := cmd.StringArg("password")
	if password == "" {
		return fmt.Errorf("%w: password", shared.ErrMissingArgument)
	}

	auth, err := server.NewAuthenticator(r.config.Auth)
	if err != nil {
		return err
	}
	token, err := auth.Login(r.config.Auth.AdminUser, password)
	if err != nil {
		return err
	}
	return r.writeJSON(token, true)
}
