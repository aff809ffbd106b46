// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/tokenauth/internal/auth"
	"github.com/holomush/tokenauth/internal/auth/mocks"
)

// testEpoch is a whole-second instant so issued-at truncation is a no-op.
var testEpoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// manualClock is a Clock the test moves by hand.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testSettings() auth.Settings {
	return auth.Settings{
		SecretKey:     []byte("test-secret-key-0123456789abcdef"),
		Algorithm:     "HS256",
		AccessMinutes: 15,
		RefreshDays:   7,
	}
}

// fastHasher returns an argon2id hasher with minimal cost parameters.
func fastHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Time:    1,
		Memory:  64,
		Threads: 1,
		SaltLen: 16,
		KeyLen:  32,
	})
	require.NoError(t, err)
	return h
}

// mockDummyHash is what newMockHasher returns for the hash NewService
// computes for unmatched logins.
const mockDummyHash = "$argon2id$unmatched"

// newMockHasher returns a mock hasher primed for the single Hash call made
// by NewService.
func newMockHasher(t *testing.T) *mocks.MockPasswordHasher {
	t.Helper()
	h := mocks.NewMockPasswordHasher(t)
	h.On("Hash", mock.AnythingOfType("string")).Return(mockDummyHash, nil).Once()
	return h
}

// recordingHasher passes through to an Argon2idHasher and records the hashes
// given to Verify.
type recordingHasher struct {
	*auth.Argon2idHasher

	mu       sync.Mutex
	verified []string
}

func (h *recordingHasher) Verify(password, hash string) (bool, error) {
	h.mu.Lock()
	h.verified = append(h.verified, hash)
	h.mu.Unlock()
	return h.Argon2idHasher.Verify(password, hash)
}

func (h *recordingHasher) Verified() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.verified...)
}
