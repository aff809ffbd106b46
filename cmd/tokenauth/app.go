// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/tokenauth/internal/auth"
	"github.com/holomush/tokenauth/internal/config"
	"github.com/holomush/tokenauth/internal/logging"
	"github.com/holomush/tokenauth/internal/xdg"
)

// app is the wiring shared by the user and token commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	users   UserStore
	service *auth.Service
	close   func()
}

// loadConfig reads the configuration for cmd and builds its logger. Without
// --config, $XDG_CONFIG_HOME/tokenauth/config.yaml is used when present.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path := configFile
	if path == "" {
		found, err := xdg.DefaultConfigFile()
		if err != nil {
			return nil, nil, err
		}
		path = found
	}

	cfg, err := config.Load(path, cmd.Root().PersistentFlags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logging.Options{
		Service: "tokenauth",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").With("section", "log").Wrap(err)
	}
	return cfg, logger, nil
}

// newApp loads and validates the configuration, opens the user store and
// builds the auth service.
func newApp(ctx context.Context, cmd *cobra.Command, deps *Deps) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	settings, err := cfg.AuthSettings()
	if err != nil {
		return nil, err
	}
	params, err := cfg.HasherParams()
	if err != nil {
		return nil, err
	}
	hasher, err := auth.NewArgon2idHasherWithParams(params)
	if err != nil {
		return nil, err
	}

	users, closeStore, err := deps.UserStoreOpener(ctx, cfg, logger)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").With("backend", cfg.Store.Backend).Wrap(err)
	}

	service, err := auth.NewService(users, hasher, auth.NewTokenCodec(deps.Clock), settings, auth.WithLogger(logger))
	if err != nil {
		closeStore()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, users: users, service: service, close: closeStore}, nil
}

// commandContext bounds cmd's context by the --timeout flag.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil || timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

// readInput returns value, or the first line of the command's stdin when
// value is empty or "-".
func readInput(cmd *cobra.Command, value, what string) (string, error) {
	if value != "" && value != "-" {
		return value, nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("CLI_INPUT_FAILED").With("input", what).Wrap(err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", oops.Code("CLI_INPUT_REQUIRED").
			With("input", what).
			Errorf("%s is required (pass it as a flag or on stdin)", what)
	}
	return line, nil
}

// writeJSON prints v as indented JSON on the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return oops.Code("CLI_OUTPUT_FAILED").Wrap(err)
	}
	return nil
}

// userView is the printed form of a user. The password hash is omitted.
type userView struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	IsActive    bool      `json:"is_active"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newUserView(u *auth.User) userView {
	return userView{
		ID:          u.ID.String(),
		Email:       u.Email,
		Username:    u.Username,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
