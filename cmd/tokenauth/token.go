// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewTokenCmd creates the token command and its subcommands.
func NewTokenCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue, refresh and inspect tokens",
	}

	var password string
	issue := &cobra.Command{
		Use:   "issue LOGIN",
		Short: "Authenticate and print a new token pair",
		Long: `Authenticate LOGIN (an email address or username) and print an access
and refresh token pair as JSON. When --password is not given the password is
read from the first line of stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenIssue(cmd, deps, args[0], password)
		},
	}
	issue.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	cmd.AddCommand(issue)

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh [REFRESH_TOKEN]",
		Short: "Exchange a refresh token for a new token pair",
		Long: `Exchange REFRESH_TOKEN for a fresh token pair. The token is read from
stdin when omitted or "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenRefresh(cmd, deps, firstArg(args))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "whoami [ACCESS_TOKEN]",
		Short: "Print the user an access token belongs to",
		Long: `Verify ACCESS_TOKEN and print its user as JSON. The token is read from
stdin when omitted or "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenWhoami(cmd, deps, firstArg(args))
		},
	})

	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func runTokenIssue(cmd *cobra.Command, deps *Deps, login, password string) error {
	password, err := readInput(cmd, password, "password")
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

	pair, err := a.service.Authenticate(ctx, login, password)
	if err != nil {
		return err
	}
	return writeJSON(cmd, pair)
}

func runTokenRefresh(cmd *cobra.Command, deps *Deps, token string) error {
	token, err := readInput(cmd, token, "refresh token")
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

	pair, err := a.service.Refresh(ctx, token)
	if err != nil {
		return err
	}
	return writeJSON(cmd, pair)
}

func runTokenWhoami(cmd *cobra.Command, deps *Deps, token string) error {
	token, err := readInput(cmd, token, "access token")
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

	user, err := a.service.CurrentUser(ctx, token)
	if err != nil {
		return err
	}
	return writeJSON(cmd, newUserView(user))
}
