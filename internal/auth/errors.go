// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned by repositories when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error kinds returned by the core. Every error handed back to a caller wraps
// exactly one of these, so callers branch with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenTypeMismatch  = errors.New("token type mismatch")
	ErrHashFormat         = errors.New("malformed password hash")
)

// Error codes attached to the oops errors wrapping the kinds above.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountInactive    = "AUTH_ACCOUNT_INACTIVE"
	CodeUserAlreadyExists  = "AUTH_USER_EXISTS"
	CodeUserNotFound       = "AUTH_USER_NOT_FOUND"
	CodeTokenInvalid       = "AUTH_TOKEN_INVALID"
	CodeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	CodeTokenTypeMismatch  = "AUTH_TOKEN_TYPE_MISMATCH"
	CodeHashFormat         = "AUTH_HASH_FORMAT"

	CodeInvalidEmail    = "AUTH_INVALID_EMAIL"
	CodeInvalidUsername = "AUTH_INVALID_USERNAME"
	CodeEmptyPassword   = "AUTH_EMPTY_PASSWORD"
	CodeInvalidSettings = "AUTH_INVALID_SETTINGS"
)

// kindCodes maps each error kind to its code.
var kindCodes = map[error]string{
	ErrInvalidCredentials: CodeInvalidCredentials,
	ErrAccountInactive:    CodeAccountInactive,
	ErrUserAlreadyExists:  CodeUserAlreadyExists,
	ErrUserNotFound:       CodeUserNotFound,
	ErrTokenInvalid:       CodeTokenInvalid,
	ErrTokenExpired:       CodeTokenExpired,
	ErrTokenTypeMismatch:  CodeTokenTypeMismatch,
	ErrHashFormat:         CodeHashFormat,
}

// newKindError builds an oops error carrying the code for kind and wrapping
// kind itself. The builder is used for attaching context before the wrap.
func newKindError(kind error, ctx ...any) error {
	b := oops.Code(kindCodes[kind])
	for i := 0; i+1 < len(ctx); i += 2 {
		if key, ok := ctx[i].(string); ok {
			b = b.With(key, ctx[i+1])
		}
	}
	return b.Wrap(kind)
}

// Kind returns the error kind err wraps, or nil if err carries none.
func Kind(err error) error {
	for kind := range kindCodes {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindCode returns the stable code for the kind err wraps, or "" if none.
func KindCode(err error) string {
	if kind := Kind(err); kind != nil {
		return kindCodes[kind]
	}
	return ""
}
