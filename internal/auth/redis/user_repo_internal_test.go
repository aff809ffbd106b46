// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/tokenauth/internal/auth"
	"github.com/holomush/tokenauth/pkg/errutil"
)

func TestKeys(t *testing.T) {
	repo := NewUserRepositoryWithPrefix(nil, "test:")

	assert.Equal(t, "test:user:01ABC", repo.userKey("01ABC"))
	assert.Equal(t, "test:email:alice@example.com", repo.emailKey("Alice@Example.COM"))
	assert.Equal(t, "test:username:alice", repo.usernameKey("ALICE"))
	assert.Equal(t, DefaultKeyPrefix, NewUserRepository(nil).prefix)
}

func TestRecordRoundTrip(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	user := &auth.User{
		ID:           ulid.Make(),
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: "$argon2id$hash",
		IsActive:     true,
		IsSuperuser:  true,
		CreatedAt:    now,
		UpdatedAt:    now.Add(time.Minute),
	}

	got, err := toRecord(user).toUser()
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestRecordWithCorruptID(t *testing.T) {
	_, err := userRecord{ID: "not-a-ulid"}.toUser()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "USER_INVALID_ID")
}

func TestUnreachableServer(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewUserRepository(client)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, ulid.Make())
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrNotFound)
	errutil.AssertErrorCode(t, err, "USER_GET_BY_ID_FAILED")

	_, err = repo.GetByEmailOrUsername(ctx, "alice")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "USER_GET_BY_LOGIN_FAILED")

	user, err := auth.NewUser("alice@example.com", "alice", "h", auth.DefaultUserFlags())
	require.NoError(t, err)
	err = repo.Create(ctx, user)
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrUserAlreadyExists)
	errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
}
