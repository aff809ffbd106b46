// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/tokenauth/internal/config"
)

// Default timeout for store and token operations.
const defaultTimeout = 30 * time.Second

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the tokenauth CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&Deps{})
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "tokenauth",
		Short: "tokenauth - token issuance and credential verification",
		Long: `tokenauth manages user accounts and issues signed access and refresh
tokens against a PostgreSQL or Redis user store.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().Duration("timeout", defaultTimeout, "timeout for store operations (e.g., 30s, 1m)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewUserCmd(deps))
	cmd.AddCommand(NewTokenCmd(deps))
	cmd.AddCommand(NewPasswordCmd())

	return cmd
}
