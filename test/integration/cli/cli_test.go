// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package cli_test

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

const cliSecret = "cli-integration-secret-0123456789"

// runCLI runs the tokenauth command against the test database.
func runCLI(ctx context.Context, stdin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "go", append([]string{"run", "."}, args...)...)
	cmd.Dir = "../../../cmd/tokenauth"
	cmd.Env = append(cmd.Environ(),
		"DATABASE_URL="+env.connStr,
		"TOKENAUTH_SECRET_KEY="+cliSecret,
	)
	cmd.Stdin = strings.NewReader(stdin)

	output, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(output) + string(exitErr.Stderr), err
	}
	return string(output), err
}

var _ = Describe("tokenauth CLI", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx, env.pool)
	})

	It("migrates, creates a user and issues tokens against postgres", func() {
		output, err := runCLI(ctx, "", "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate failed: %s", output)

		output, err = runCLI(ctx, "", "migrate", "version")
		Expect(err).NotTo(HaveOccurred(), "version failed: %s", output)
		Expect(output).To(ContainSubstring("Schema version: 1 (clean)"))

		output, err = runCLI(ctx, "s3cret-pass\n",
			"--store.backend=postgres", "user", "create", "--email", "alice@example.com", "--username", "alice")
		Expect(err).NotTo(HaveOccurred(), "user create failed: %s", output)

		var count int
		Expect(env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE username = 'alice'").Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))

		output, err = runCLI(ctx, "s3cret-pass\n", "--store.backend=postgres", "token", "issue", "alice@example.com")
		Expect(err).NotTo(HaveOccurred(), "token issue failed: %s", output)

		var pair struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		Expect(json.Unmarshal([]byte(output), &pair)).To(Succeed())
		Expect(pair.AccessToken).NotTo(BeEmpty())

		output, err = runCLI(ctx, pair.AccessToken+"\n", "--store.backend=postgres", "token", "whoami")
		Expect(err).NotTo(HaveOccurred(), "whoami failed: %s", output)
		Expect(output).To(ContainSubstring(`"username": "alice"`))
	})

	It("fails cleanly when the schema is missing", func() {
		output, err := runCLI(ctx, "pw\n",
			"--store.backend=postgres", "user", "create", "--email", "bob@example.com", "--username", "bob")
		Expect(err).To(HaveOccurred())
		Expect(output).To(ContainSubstring("Error"))
	})
})
