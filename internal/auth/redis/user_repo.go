// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redis implements auth repositories on Redis.
//
// A user is stored as a JSON document under <prefix>user:<id>, with lookup
// keys <prefix>email:<lower(email)> and <prefix>username:<lower(username)>
// holding the user ID. Creation is a single Lua script, so the uniqueness
// check and the writes are atomic on one Redis node.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/tokenauth/internal/auth"
)

// DefaultKeyPrefix namespaces all keys written by the repository.
const DefaultKeyPrefix = "tokenauth:"

// createUserScript writes the user document and both lookup keys unless any
// of them already exists. Returns 1 on success, 0 on conflict.
var createUserScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1
	or redis.call('EXISTS', KEYS[2]) == 1
	or redis.call('EXISTS', KEYS[3]) == 1 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
redis.call('SET', KEYS[3], ARGV[2])
return 1
`)

// userRecord is the stored JSON document.
type userRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	IsActive     bool      `json:"is_active"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRepository implements auth.UserRepository using Redis.
type UserRepository struct {
	client goredis.UniversalClient
	prefix string
}

// NewUserRepository creates a UserRepository using DefaultKeyPrefix.
func NewUserRepository(client goredis.UniversalClient) *UserRepository {
	return NewUserRepositoryWithPrefix(client, DefaultKeyPrefix)
}

// NewUserRepositoryWithPrefix creates a UserRepository whose keys start with
// prefix.
func NewUserRepositoryWithPrefix(client goredis.UniversalClient, prefix string) *UserRepository {
	return &UserRepository{client: client, prefix: prefix}
}

func (r *UserRepository) userKey(id string) string {
	return r.prefix + "user:" + id
}

func (r *UserRepository) emailKey(email string) string {
	return r.prefix + "email:" + strings.ToLower(email)
}

func (r *UserRepository) usernameKey(username string) string {
	return r.prefix + "username:" + strings.ToLower(username)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	return r.load(ctx, id.String())
}

// GetByEmailOrUsername retrieves the user whose email or username matches
// value (case-insensitive). An email match wins over a username match.
func (r *UserRepository) GetByEmailOrUsername(ctx context.Context, value string) (*auth.User, error) {
	for _, key := range []string{r.emailKey(value), r.usernameKey(value)} {
		id, err := r.client.Get(ctx, key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, oops.Code("USER_GET_BY_LOGIN_FAILED").
				With("operation", "get user id by lookup key").
				With("value", value).
				Wrap(err)
		}
		return r.load(ctx, id)
	}
	return nil, oops.Code("USER_NOT_FOUND").
		With("value", value).
		Wrap(auth.ErrNotFound)
}

// Create stores a new user. A taken email, username or ID wraps
// auth.ErrUserAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	data, err := json.Marshal(toRecord(user))
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "marshal user").
			Wrap(err)
	}

	id := user.ID.String()
	created, err := createUserScript.Run(ctx, r.client,
		[]string{r.userKey(id), r.emailKey(user.Email), r.usernameKey(user.Username)},
		data, id,
	).Int()
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "run create script").
			With("username", user.Username).
			Wrap(err)
	}
	if created == 0 {
		return oops.Code("USER_CREATE_FAILED").
			With("username", user.Username).
			With("email", user.Email).
			Wrap(auth.ErrUserAlreadyExists)
	}
	return nil
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return r.update(ctx, id, func(rec *userRecord) {
		rec.PasswordHash = passwordHash
	})
}

// SetActive changes a user's active flag.
func (r *UserRepository) SetActive(ctx context.Context, id ulid.ULID, active bool) error {
	return r.update(ctx, id, func(rec *userRecord) {
		rec.IsActive = active
	})
}

// update applies mutate to the stored document inside a WATCH transaction.
// A concurrent modification fails with goredis.TxFailedErr; callers decide
// whether to retry.
func (r *UserRepository) update(ctx context.Context, id ulid.ULID, mutate func(*userRecord)) error {
	key := r.userKey(id.String())

	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return oops.Code("USER_NOT_FOUND").
				With("id", id.String()).
				Wrap(auth.ErrNotFound)
		}
		if err != nil {
			return oops.With("operation", "get user").Wrap(err)
		}

		var rec userRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return oops.Code("USER_INVALID_RECORD").
				With("operation", "unmarshal user").
				Wrap(err)
		}
		mutate(&rec)
		rec.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(rec)
		if err != nil {
			return oops.With("operation", "marshal user").Wrap(err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return err
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

func (r *UserRepository) load(ctx context.Context, id string) (*auth.User, error) {
	data, err := r.client.Get(ctx, r.userKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user").
			With("id", id).
			Wrap(err)
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, oops.Code("USER_INVALID_RECORD").
			With("operation", "unmarshal user").
			With("id", id).
			Wrap(err)
	}
	return rec.toUser()
}

func toRecord(u *auth.User) userRecord {
	return userRecord{
		ID:           u.ID.String(),
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		IsStaff:      u.IsStaff,
		IsSuperuser:  u.IsSuperuser,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (rec userRecord) toUser() (*auth.User, error) {
	id, err := ulid.Parse(rec.ID)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", rec.ID).
			Wrap(err)
	}
	return &auth.User{
		ID:           id,
		Email:        rec.Email,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		IsActive:     rec.IsActive,
		IsStaff:      rec.IsStaff,
		IsSuperuser:  rec.IsSuperuser,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

// Compile-time interface checks.
var (
	_ auth.UserRepository  = (*UserRepository)(nil)
	_ auth.PasswordUpdater = (*UserRepository)(nil)
)
