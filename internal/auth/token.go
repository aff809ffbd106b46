// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

// Token types.
const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	return t == TokenTypeAccess || t == TokenTypeRefresh
}

// String returns the wire name of the type.
func (t TokenType) String() string {
	return string(t)
}

// Claims is the data carried by a signed token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Type      TokenType
}

// IssuedToken is a signed token together with the claims it carries.
type IssuedToken struct {
	Token  string
	Claims Claims
}

// wireClaims is the JWT payload: registered claims plus the token type.
type wireClaims struct {
	jwt.RegisteredClaims
	Type TokenType `json:"type"`
}

// TokenCodec signs and verifies tokens. It holds no state besides its clock
// and is safe for concurrent use.
type TokenCodec struct {
	clock Clock
}

// NewTokenCodec creates a TokenCodec reading time from clock.
// A nil clock uses the system clock.
func NewTokenCodec(clock Clock) *TokenCodec {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenCodec{clock: clock}
}

// Now returns the codec's notion of the current time.
func (c *TokenCodec) Now() time.Time {
	return c.clock.Now()
}

// Issue signs a token of type t for subject. IssuedAt is the current time
// truncated to whole seconds, the precision of JWT numeric dates, and
// ExpiresAt is IssuedAt plus the lifetime configured for t.
func (c *TokenCodec) Issue(subject string, t TokenType, settings Settings) (IssuedToken, error) {
	if err := settings.Validate(); err != nil {
		return IssuedToken{}, err
	}
	if subject == "" {
		return IssuedToken{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").Errorf("subject cannot be empty")
	}
	if !t.Valid() {
		return IssuedToken{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("token_type", string(t)).
			Errorf("unknown token type: %s", t)
	}

	method, err := settings.signingMethod()
	if err != nil {
		return IssuedToken{}, err
	}

	issuedAt := c.clock.Now().UTC().Truncate(time.Second)
	claims := Claims{
		Subject:   subject,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(settings.Lifetime(t)),
		Type:      t,
	}

	payload := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    settings.Issuer,
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		Type: t,
	}

	signed, err := jwt.NewWithClaims(method, payload).SignedString(settings.SecretKey)
	if err != nil {
		return IssuedToken{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "sign token").
			With("token_type", string(t)).
			Wrap(err)
	}

	return IssuedToken{Token: signed, Claims: claims}, nil
}

// Verify checks a token's signature, claim shape, expiry and type, in that
// order. A token is expired from the instant of its expiry onward.
//
// Errors wrap ErrTokenInvalid, ErrTokenExpired or ErrTokenTypeMismatch.
func (c *TokenCodec) Verify(token string, expected TokenType, settings Settings) (Claims, error) {
	if err := settings.Validate(); err != nil {
		return Claims{}, err
	}
	method, err := settings.signingMethod()
	if err != nil {
		return Claims{}, err
	}

	// Time-based claims are checked below against the injected clock, with
	// an exclusive expiry bound.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithoutClaimsValidation(),
		jwt.WithStrictDecoding(),
	)

	var payload wireClaims
	_, err = parser.ParseWithClaims(token, &payload, func(*jwt.Token) (any, error) {
		return settings.SecretKey, nil
	})
	if err != nil {
		return Claims{}, newKindError(ErrTokenInvalid, "reason", err.Error())
	}

	claims, err := payload.toClaims(settings)
	if err != nil {
		return Claims{}, err
	}

	if !c.clock.Now().Before(claims.ExpiresAt) {
		return Claims{}, newKindError(ErrTokenExpired,
			"token_type", string(claims.Type),
			"expired_at", claims.ExpiresAt)
	}

	if claims.Type != expected {
		return Claims{}, newKindError(ErrTokenTypeMismatch,
			"expected", string(expected),
			"actual", string(claims.Type))
	}

	return claims, nil
}

// toClaims validates the decoded payload's shape.
func (w wireClaims) toClaims(settings Settings) (Claims, error) {
	switch {
	case w.Subject == "":
		return Claims{}, newKindError(ErrTokenInvalid, "reason", "missing subject")
	case w.IssuedAt == nil:
		return Claims{}, newKindError(ErrTokenInvalid, "reason", "missing issued-at")
	case w.ExpiresAt == nil:
		return Claims{}, newKindError(ErrTokenInvalid, "reason", "missing expiry")
	case !w.Type.Valid():
		return Claims{}, newKindError(ErrTokenInvalid, "reason", "unknown token type")
	case !w.ExpiresAt.After(w.IssuedAt.Time):
		return Claims{}, newKindError(ErrTokenInvalid, "reason", "expiry not after issued-at")
	case w.Issuer != settings.Issuer:
		return Claims{}, newKindError(ErrTokenInvalid, "reason", "issuer mismatch")
	}

	return Claims{
		Subject:   w.Subject,
		IssuedAt:  w.IssuedAt.UTC(),
		ExpiresAt: w.ExpiresAt.UTC(),
		Type:      w.Type,
	}, nil
}
