// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"net/mail"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 1
	MaxUsernameLength = 150
	MaxEmailLength    = 254
)

// usernameRegex matches letters, digits and the characters @ . + - _
var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

// User is an account as read from the user store.
type User struct {
	ID           ulid.ULID
	Email        string
	Username     string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserFlags are the account flags set at registration.
type UserFlags struct {
	IsActive    bool
	IsStaff     bool
	IsSuperuser bool
}

// DefaultUserFlags returns flags for an ordinary active account.
func DefaultUserFlags() UserFlags {
	return UserFlags{IsActive: true}
}

// NewUser creates a validated User with a fresh ID.
// The password hash must already be computed; NewUser never sees plaintext.
func NewUser(email, username, passwordHash string, flags UserFlags) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     flags.IsActive,
		IsStaff:      flags.IsStaff,
		IsSuperuser:  flags.IsSuperuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername validates a username: 1 to 150 characters of letters,
// digits and @ . + - _
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code(CodeInvalidUsername).Errorf("username cannot be empty")
	}
	if len(username) > MaxUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code(CodeInvalidUsername).
			Errorf("username may contain only letters, numbers, and @/./+/-/_ characters")
	}
	return nil
}

// ValidateEmail validates a bare email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeInvalidEmail).Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code(CodeInvalidEmail).
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return oops.Code(CodeInvalidEmail).
			With("email", email).
			Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword rejects passwords that cannot be registered.
func ValidatePassword(password string) error {
	if password == "" {
		return oops.Code(CodeEmptyPassword).Errorf("password cannot be empty")
	}
	return nil
}

// UserRepository is the persistence boundary for users. Implementations may
// block on I/O; every method honours ctx.
type UserRepository interface {
	// GetByID retrieves a user by ID.
	// Returns an error wrapping ErrNotFound if no such user exists.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmailOrUsername retrieves the user whose email or username equals
	// value (case-insensitive).
	// Returns an error wrapping ErrNotFound if no such user exists.
	GetByEmailOrUsername(ctx context.Context, value string) (*User, error)

	// Create stores a new user.
	// Returns an error wrapping ErrUserAlreadyExists if the email or username
	// is taken.
	Create(ctx context.Context, user *User) error
}

// PasswordUpdater is implemented by repositories that can replace a stored
// password hash. The service uses it to upgrade legacy hashes on login.
type PasswordUpdater interface {
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
