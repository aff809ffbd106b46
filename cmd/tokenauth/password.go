// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/tokenauth/internal/auth"
)

// NewPasswordCmd creates the password command. It needs no user store.
func NewPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Hash and check passwords offline",
	}

	var password string
	hash := &cobra.Command{
		Use:   "hash",
		Short: "Print the argon2id hash of a password",
		Long: `Hash a password with the configured argon2id parameters and print the
PHC-encoded result. When --password is not given the password is read from the
first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPasswordHash(cmd, password)
		},
	}
	hash.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	cmd.AddCommand(hash)

	var checkPassword string
	check := &cobra.Command{
		Use:   "check HASH",
		Short: "Check a password against a stored hash",
		Long: `Verify a password against HASH and print whether it matches and whether
the hash should be upgraded to the configured parameters. Exits non-zero on a
malformed hash.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasswordCheck(cmd, args[0], checkPassword)
		},
	}
	check.Flags().StringVar(&checkPassword, "password", "", "password (read from stdin when empty)")
	cmd.AddCommand(check)

	return cmd
}

func newConfiguredHasher(cmd *cobra.Command) (*auth.Argon2idHasher, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	params, err := cfg.HasherParams()
	if err != nil {
		return nil, err
	}
	return auth.NewArgon2idHasherWithParams(params)
}

func runPasswordHash(cmd *cobra.Command, password string) error {
	password, err := readInput(cmd, password, "password")
	if err != nil {
		return err
	}
	hasher, err := newConfiguredHasher(cmd)
	if err != nil {
		return err
	}

	hashed, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), hashed); err != nil {
		return oops.Code("CLI_OUTPUT_FAILED").Wrap(err)
	}
	return nil
}

// passwordCheckResult is printed by password check.
type passwordCheckResult struct {
	Match        bool `json:"match"`
	NeedsUpgrade bool `json:"needs_upgrade"`
}

func runPasswordCheck(cmd *cobra.Command, hash, password string) error {
	password, err := readInput(cmd, password, "password")
	if err != nil {
		return err
	}
	hasher, err := newConfiguredHasher(cmd)
	if err != nil {
		return err
	}

	ok, err := hasher.Verify(password, hash)
	if err != nil {
		return err
	}
	return writeJSON(cmd, passwordCheckResult{Match: ok, NeedsUpgrade: hasher.NeedsUpgrade(hash)})
}
