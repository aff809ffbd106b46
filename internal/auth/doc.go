// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth issues, verifies and rotates signed session tokens and
// verifies user credentials against stored password hashes.
//
// # Components
//
//   - PasswordHasher / Argon2idHasher - argon2id hashing, constant-time verify,
//     legacy bcrypt verification
//   - TokenCodec - signs and verifies JWT access and refresh tokens against
//     an injected Clock
//   - Settings - immutable signing key, algorithm and token lifetimes
//   - UserRepository - the persistence boundary, implemented by the
//     memory, postgres and redis subpackages
//   - Service - Register, Authenticate, Refresh and CurrentUser
//
// # Errors
//
// Every error returned to a caller wraps one of the Err* kinds and carries
// the matching Code* value as its oops code. Token errors stay granular so a
// caller can tell "refresh and retry" (ErrTokenExpired) from "reject"
// (ErrTokenInvalid, ErrTokenTypeMismatch). ErrInvalidCredentials never says
// whether the login or the password was wrong.
//
// # Rotation
//
// Tokens are stateless. Refresh issues a new pair but does not revoke the
// presented refresh token, which remains usable until it expires.
package auth
