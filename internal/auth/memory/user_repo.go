// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides an in-process auth.UserRepository.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/tokenauth/internal/auth"
)

// UserRepository implements auth.UserRepository with maps guarded by a mutex.
// Email and username uniqueness is enforced case-insensitively under the
// write lock, mirroring the unique indexes of the SQL store.
type UserRepository struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]*auth.User
	byEmail    map[string]ulid.ULID
	byUsername map[string]ulid.ULID
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[ulid.ULID]*auth.User),
		byEmail:    make(map[string]ulid.ULID),
		byUsername: make(map[string]ulid.ULID),
	}
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "get user by id").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return cloneUser(user), nil
}

// GetByEmailOrUsername retrieves the user whose email or username matches
// value (case-insensitive). An email match wins over a username match.
func (r *UserRepository) GetByEmailOrUsername(ctx context.Context, value string) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "get user by email or username").Wrap(err)
	}

	key := strings.ToLower(value)

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[key]
	if !ok {
		id, ok = r.byUsername[key]
	}
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").
			With("value", value).
			Wrap(auth.ErrNotFound)
	}
	return cloneUser(r.byID[id]), nil
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "create user").Wrap(err)
	}

	email := strings.ToLower(user.Email)
	username := strings.ToLower(user.Username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return oops.Code("USER_CREATE_FAILED").
			With("email", user.Email).
			Wrap(auth.ErrUserAlreadyExists)
	}
	if _, taken := r.byUsername[username]; taken {
		return oops.Code("USER_CREATE_FAILED").
			With("username", user.Username).
			Wrap(auth.ErrUserAlreadyExists)
	}
	if _, taken := r.byID[user.ID]; taken {
		return oops.Code("USER_CREATE_FAILED").
			With("id", user.ID.String()).
			Wrap(auth.ErrUserAlreadyExists)
	}

	r.byID[user.ID] = cloneUser(user)
	r.byEmail[email] = user.ID
	r.byUsername[username] = user.ID
	return nil
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "update password").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// SetActive changes a user's active flag.
func (r *UserRepository) SetActive(ctx context.Context, id ulid.ULID, active bool) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "set active").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	user.IsActive = active
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "delete user").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	delete(r.byEmail, strings.ToLower(user.Email))
	delete(r.byUsername, strings.ToLower(user.Username))
	delete(r.byID, id)
	return nil
}

func cloneUser(u *auth.User) *auth.User {
	c := *u
	return &c
}

// Compile-time interface checks.
var (
	_ auth.UserRepository  = (*UserRepository)(nil)
	_ auth.PasswordUpdater = (*UserRepository)(nil)
)
