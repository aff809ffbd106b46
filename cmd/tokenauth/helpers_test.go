// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/tokenauth/internal/auth/memory"
	"github.com/holomush/tokenauth/internal/config"
)

const cliSecret = "cli-test-secret-0123456789abcdef"

var cliEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// cliClock is a settable clock shared by successive command runs.
type cliClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *cliClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *cliClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// cliFixture runs commands against one in-memory user store.
type cliFixture struct {
	users      *memory.UserRepository
	clock      *cliClock
	deps       *Deps
	configPath string
}

func clearCLIEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvSecretKey, "")
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvRedisAddr, "")
}

func writeCLIConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokenauth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	clearCLIEnv(t)

	f := &cliFixture{
		users: memory.NewUserRepository(),
		clock: &cliClock{now: cliEpoch},
	}
	f.deps = &Deps{
		Clock: f.clock,
		UserStoreOpener: func(context.Context, *config.Config, *slog.Logger) (UserStore, func(), error) {
			return f.users, func() {}, nil
		},
	}
	f.configPath = writeCLIConfig(t, `
auth:
  secret_key: `+cliSecret+`
hasher:
  time: 1
  memory: 64
  threads: 1
  salt_len: 16
  key_len: 32
store:
  backend: memory
log:
  level: error
`)
	return f
}

// exec runs the root command with args, feeding stdin, and returns stdout.
func (f *cliFixture) exec(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	configFile = ""

	cmd := newRootCmd(f.deps)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", f.configPath}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func decodeJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}
