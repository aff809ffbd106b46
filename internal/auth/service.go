// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/tokenauth/pkg/errutil"
)

// Operation names used for spans and metric labels.
const (
	OpRegister     = "register"
	OpAuthenticate = "authenticate"
	OpRefresh      = "refresh"
	OpCurrentUser  = "current_user"
)

const tracerName = "github.com/holomush/tokenauth/internal/auth"

// TokenPair is the result of a successful authentication or refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Service provides registration, authentication, refresh and current-user
// resolution. It keeps no mutable state; the user store sits behind
// UserRepository.
type Service struct {
	users     UserRepository
	hasher    PasswordHasher
	codec     *TokenCodec
	settings  Settings
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	dummyHash string // verified for logins that match no user
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorded by the service.
func WithMetrics(metrics *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// NewService creates a Service. The settings are copied; later changes to
// the caller's secret slice do not affect the service.
func NewService(users UserRepository, hasher PasswordHasher, codec *TokenCodec, settings Settings, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("token codec is required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings.SecretKey = bytes.Clone(settings.SecretKey)

	s := &Service{
		users:    users,
		hasher:   hasher,
		codec:    codec,
		settings: settings,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("logger cannot be nil")
	}

	dummyHash, err := hasher.Hash(unmatchedLoginPassword)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").
			With("operation", "hash unmatched login placeholder").
			Wrap(err)
	}
	s.dummyHash = dummyHash
	return s, nil
}

// Settings returns a copy of the service settings.
func (s *Service) Settings() Settings {
	settings := s.settings
	settings.SecretKey = bytes.Clone(s.settings.SecretKey)
	return settings
}

// unmatchedLoginPassword is hashed once by NewService. The result is verified
// when no user matches, so a missing user costs the same computation, at the
// hasher's configured parameters, as a wrong password. A match against it is
// still rejected.
//
//nolint:gosec // G101: not a credential.
const unmatchedLoginPassword = "tokenauth: no such user"

// Register creates a new user. The existence pre-check is advisory; a
// uniqueness violation reported by the repository is surfaced the same way.
func (s *Service) Register(ctx context.Context, email, username, password string, flags UserFlags) (_ *User, err error) {
	ctx, finish := s.start(ctx, OpRegister)
	defer func() { finish(err) }()

	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	for _, value := range []string{email, username} {
		_, lookupErr := s.users.GetByEmailOrUsername(ctx, value)
		if lookupErr == nil {
			return nil, newKindError(ErrUserAlreadyExists, "email", email, "username", username)
		}
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "check existing user").
				Wrap(lookupErr)
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, username, hash, flags)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, newKindError(ErrUserAlreadyExists, "email", email, "username", username)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Authenticate verifies credentials and issues a token pair. An unknown login
// and a wrong password fail identically with ErrInvalidCredentials, and both
// run a full password verification.
func (s *Service) Authenticate(ctx context.Context, login, password string) (_ *TokenPair, err error) {
	ctx, finish := s.start(ctx, OpAuthenticate)
	defer func() { finish(err) }()

	user, lookupErr := s.users.GetByEmailOrUsername(ctx, login)

	var targetHash string
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email or username").
				Wrap(lookupErr)
		}
		targetHash = s.dummyHash
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, newKindError(ErrInvalidCredentials)
		}
		if errors.Is(verifyErr, ErrHashFormat) {
			errutil.LogError(s.logger, "stored password hash is malformed", verifyErr)
			return nil, oops.With("user_id", user.ID.String()).Wrap(verifyErr)
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, newKindError(ErrInvalidCredentials)
	}

	// Checked after verification so that only the password holder learns
	// the account state.
	if !user.IsActive {
		return nil, newKindError(ErrAccountInactive, "user_id", user.ID.String())
	}

	s.upgradePassword(ctx, user, password)

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user authenticated", "user_id", user.ID.String())
	return pair, nil
}

// Refresh verifies a refresh token and issues a new pair for its subject.
// Token verification errors are returned unchanged. The presented token is
// not revoked: it stays valid until its own expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (_ *TokenPair, err error) {
	ctx, finish := s.start(ctx, OpRefresh)
	defer func() { finish(err) }()

	claims, err := s.codec.Verify(refreshToken, TokenTypeRefresh, s.settings)
	if err != nil {
		return nil, err
	}

	user, err := s.resolveSubject(ctx, claims)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, newKindError(ErrAccountInactive, "user_id", user.ID.String())
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "token pair rotated", "user_id", user.ID.String())
	return pair, nil
}

// CurrentUser verifies an access token and returns the user it names.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (_ *User, err error) {
	ctx, finish := s.start(ctx, OpCurrentUser)
	defer func() { finish(err) }()

	claims, err := s.codec.Verify(accessToken, TokenTypeAccess, s.settings)
	if err != nil {
		return nil, err
	}

	return s.resolveSubject(ctx, claims)
}

// resolveSubject loads the user named by a verified token.
func (s *Service) resolveSubject(ctx context.Context, claims Claims) (*User, error) {
	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return nil, newKindError(ErrTokenInvalid, "reason", "malformed subject")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newKindError(ErrUserNotFound, "user_id", id.String())
		}
		return nil, oops.Code("AUTH_USER_LOOKUP_FAILED").
			With("operation", "get user by id").
			With("user_id", id.String()).
			Wrap(err)
	}
	return user, nil
}

func (s *Service) issuePair(user *User) (*TokenPair, error) {
	subject := user.ID.String()

	access, err := s.codec.Issue(subject, TokenTypeAccess, s.settings)
	if err != nil {
		return nil, oops.With("operation", "issue access token").Wrap(err)
	}
	refresh, err := s.codec.Issue(subject, TokenTypeRefresh, s.settings)
	if err != nil {
		return nil, oops.With("operation", "issue refresh token").Wrap(err)
	}

	pair := &TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		TokenType:        "bearer",
		AccessExpiresAt:  access.Claims.ExpiresAt,
		RefreshExpiresAt: refresh.Claims.ExpiresAt,
	}
	s.metrics.tokensIssued(pair)
	return pair, nil
}

// upgradePassword re-hashes the password when the stored hash uses an older
// scheme or weaker parameters. Failures are logged; login proceeds.
func (s *Service) upgradePassword(ctx context.Context, user *User, password string) {
	updater, ok := s.users.(PasswordUpdater)
	if !ok || !s.hasher.NeedsUpgrade(user.PasswordHash) {
		return
	}

	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed", "user_id", user.ID.String(), "error", err)
		return
	}
	if err := updater.UpdatePassword(ctx, user.ID, newHash); err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed", "user_id", user.ID.String(), "error", err)
		return
	}
	user.PasswordHash = newHash
	s.logger.InfoContext(ctx, "password hash upgraded", "user_id", user.ID.String())
}

// start opens a span for operation and returns the function that closes it
// and records metrics.
func (s *Service) start(ctx context.Context, operation string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "auth."+operation,
		trace.WithAttributes(attribute.String("auth.operation", operation)))
	started := time.Now()

	return ctx, func(err error) {
		outcome := Outcome(err)
		span.SetAttributes(attribute.String("auth.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		s.metrics.observe(operation, time.Since(started), err)
	}
}
