// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Settings defaults.
const (
	DefaultAlgorithm     = "HS256"
	DefaultAccessMinutes = 15
	DefaultRefreshDays   = 7

	// MaxAccessMinutes caps the access token lifetime at one year.
	MaxAccessMinutes = 365 * 24 * 60
	// MaxRefreshDays caps the refresh token lifetime at ten years.
	MaxRefreshDays = 3650
)

// Settings is the immutable configuration consumed by the token codec and the
// service. It is passed by value; nothing in this package keeps a global copy.
type Settings struct {
	// SecretKey signs and verifies tokens. Required.
	SecretKey []byte

	// Algorithm is a JWT HMAC algorithm name (HS256, HS384, HS512).
	// Empty means DefaultAlgorithm.
	Algorithm string

	// AccessMinutes is the access token lifetime in minutes.
	AccessMinutes int

	// RefreshDays is the refresh token lifetime in days.
	RefreshDays int

	// Issuer is copied into the iss claim when set and checked on verify.
	Issuer string
}

// DefaultSettings returns settings with default lifetimes and algorithm for
// the given secret.
func DefaultSettings(secret []byte) Settings {
	return Settings{
		SecretKey:     secret,
		Algorithm:     DefaultAlgorithm,
		AccessMinutes: DefaultAccessMinutes,
		RefreshDays:   DefaultRefreshDays,
	}
}

// Validate reports whether the settings can be used to sign tokens.
func (s Settings) Validate() error {
	if len(s.SecretKey) == 0 {
		return oops.Code(CodeInvalidSettings).Errorf("secret key is required")
	}
	if _, err := s.signingMethod(); err != nil {
		return err
	}
	if s.AccessMinutes <= 0 || s.AccessMinutes > MaxAccessMinutes {
		return oops.Code(CodeInvalidSettings).
			With("access_minutes", s.AccessMinutes).
			Errorf("access token lifetime must be between 1 and %d minutes", MaxAccessMinutes)
	}
	if s.RefreshDays <= 0 || s.RefreshDays > MaxRefreshDays {
		return oops.Code(CodeInvalidSettings).
			With("refresh_days", s.RefreshDays).
			Errorf("refresh token lifetime must be between 1 and %d days", MaxRefreshDays)
	}
	return nil
}

// AccessLifetime returns the access token lifetime.
func (s Settings) AccessLifetime() time.Duration {
	return time.Duration(s.AccessMinutes) * time.Minute
}

// RefreshLifetime returns the refresh token lifetime.
func (s Settings) RefreshLifetime() time.Duration {
	return time.Duration(s.RefreshDays) * 24 * time.Hour
}

// Lifetime returns the lifetime configured for the given token type.
func (s Settings) Lifetime(t TokenType) time.Duration {
	if t == TokenTypeRefresh {
		return s.RefreshLifetime()
	}
	return s.AccessLifetime()
}

func (s Settings) algorithm() string {
	if s.Algorithm == "" {
		return DefaultAlgorithm
	}
	return s.Algorithm
}

// signingMethod resolves the configured algorithm. Only HMAC methods are
// accepted since the settings carry a single shared secret.
func (s Settings) signingMethod() (*jwt.SigningMethodHMAC, error) {
	alg := s.algorithm()
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, oops.Code(CodeInvalidSettings).
			With("algorithm", alg).
			Errorf("unsupported signing algorithm: %s", alg)
	}
	return method, nil
}
