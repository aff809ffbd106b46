// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireOops fails the test immediately unless err carries an oops layer.
func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.Truef(t, ok, "want an oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode checks the deepest code on err. Outer layers that set no
// code of their own do not hide it.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	requireOops(t, err)
	assert.Equalf(t, code, Code(err), "error code mismatch for %q", err.Error())
}

// AssertErrorContext checks that the merged context of err maps key to
// value. Values compare with ObjectsAreEqualValues, so an int64 stored by
// one layer matches an int literal in the test.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	got, ok := requireOops(t, err).Context()[key]
	if !assert.Truef(t, ok, "context key %q missing from %q", key, err.Error()) {
		return
	}
	assert.EqualValuesf(t, value, got, "context value for %q", key)
}

// AssertNoErrorContext checks that no layer of err set key.
func AssertNoErrorContext(t *testing.T, err error, key string) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	assert.NotContainsf(t, ctx, key, "context key %q unexpectedly set", key)
}
