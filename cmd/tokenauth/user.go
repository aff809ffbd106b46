// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/tokenauth/internal/auth"
)

// userCreateConfig holds flags for user create.
type userCreateConfig struct {
	email     string
	username  string
	password  string
	staff     bool
	superuser bool
	inactive  bool
}

// NewUserCmd creates the user command and its subcommands.
func NewUserCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	cfg := &userCreateConfig{}
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a new user",
		Long: `Register a new user and print it as JSON. When --password is not
given the password is read from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUserCreate(cmd, deps, cfg)
		},
	}
	create.Flags().StringVar(&cfg.email, "email", "", "email address")
	create.Flags().StringVar(&cfg.username, "username", "", "username")
	create.Flags().StringVar(&cfg.password, "password", "", "password (read from stdin when empty)")
	create.Flags().BoolVar(&cfg.staff, "staff", false, "grant staff status")
	create.Flags().BoolVar(&cfg.superuser, "superuser", false, "grant superuser status")
	create.Flags().BoolVar(&cfg.inactive, "inactive", false, "create the account deactivated")
	_ = create.MarkFlagRequired("email")    //nolint:errcheck // flag defined above
	_ = create.MarkFlagRequired("username") //nolint:errcheck // flag defined above
	cmd.AddCommand(create)

	cmd.AddCommand(newSetActiveCmd(deps, "activate", true))
	cmd.AddCommand(newSetActiveCmd(deps, "deactivate", false))

	return cmd
}

func runUserCreate(cmd *cobra.Command, deps *Deps, cfg *userCreateConfig) error {
	password, err := readInput(cmd, cfg.password, "password")
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd, deps)
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.service.Register(ctx, cfg.email, cfg.username, password, auth.UserFlags{
		IsActive:    !cfg.inactive,
		IsStaff:     cfg.staff,
		IsSuperuser: cfg.superuser,
	})
	if err != nil {
		return err
	}
	return writeJSON(cmd, newUserView(user))
}

func newSetActiveCmd(deps *Deps, name string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " LOGIN",
		Short: name + " the user with the given email or username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetActive(cmd, deps, args[0], active)
		},
	}
}

func runSetActive(cmd *cobra.Command, deps *Deps, login string, active bool) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd, deps)
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.users.GetByEmailOrUsername(ctx, login)
	if err != nil {
		return oops.Code("CLI_USER_LOOKUP_FAILED").With("login", login).Wrap(err)
	}
	if err := a.users.SetActive(ctx, user.ID, active); err != nil {
		return oops.Code("CLI_USER_UPDATE_FAILED").With("user_id", user.ID.String()).Wrap(err)
	}

	updated, err := a.users.GetByID(ctx, user.ID)
	if err != nil {
		return oops.Code("CLI_USER_LOOKUP_FAILED").With("user_id", user.ID.String()).Wrap(err)
	}
	a.logger.Info("user active flag changed", "user_id", user.ID.String(), "active", active)
	return writeJSON(cmd, newUserView(updated))
}
