// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package auth_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/tokenauth/internal/auth"
	"github.com/holomush/tokenauth/internal/auth/postgres"
	authredis "github.com/holomush/tokenauth/internal/auth/redis"
)

// integrationRepo is the adapter surface these tests use.
type integrationRepo interface {
	auth.UserRepository
	auth.PasswordUpdater
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fastHasher() *auth.Argon2idHasher {
	h, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 64, Threads: 1, SaltLen: 16, KeyLen: 32})
	Expect(err).NotTo(HaveOccurred())
	return h
}

var _ = Describe("Auth service", func() {
	backends := map[string]func() integrationRepo{
		"postgres": func() integrationRepo { return postgres.NewUserRepository(env.pool) },
		"redis":    func() integrationRepo { return authredis.NewUserRepository(env.redis) },
	}

	for name, newRepo := range backends {
		Context("with the "+name+" store", func() {
			var (
				ctx     context.Context
				repo    integrationRepo
				clock   *manualClock
				service *auth.Service
			)

			BeforeEach(func() {
				ctx = context.Background()
				resetStores(ctx)

				repo = newRepo()
				clock = &manualClock{now: epoch}
				settings := auth.DefaultSettings([]byte("integration-secret-0123456789abcdef"))

				var err error
				service, err = auth.NewService(repo, fastHasher(), auth.NewTokenCodec(clock), settings)
				Expect(err).NotTo(HaveOccurred())
			})

			It("registers, authenticates and resolves the current user", func() {
				user, err := service.Register(ctx, "alice@example.com", "alice", "s3cret", auth.DefaultUserFlags())
				Expect(err).NotTo(HaveOccurred())

				pair, err := service.Authenticate(ctx, "ALICE@example.com", "s3cret")
				Expect(err).NotTo(HaveOccurred())
				Expect(pair.AccessExpiresAt).To(BeTemporally("==", epoch.Add(15*time.Minute)))

				current, err := service.CurrentUser(ctx, pair.AccessToken)
				Expect(err).NotTo(HaveOccurred())
				Expect(current.ID).To(Equal(user.ID))
				Expect(current.Username).To(Equal("alice"))
			})

			It("rejects duplicate email and username case-insensitively", func() {
				_, err := service.Register(ctx, "alice@example.com", "alice", "s3cret", auth.DefaultUserFlags())
				Expect(err).NotTo(HaveOccurred())

				_, err = service.Register(ctx, "Alice@Example.com", "other", "s3cret", auth.DefaultUserFlags())
				Expect(err).To(MatchError(auth.ErrUserAlreadyExists))

				_, err = service.Register(ctx, "other@example.com", "ALICE", "s3cret", auth.DefaultUserFlags())
				Expect(err).To(MatchError(auth.ErrUserAlreadyExists))
			})

			It("lets exactly one concurrent registration win", func() {
				const racers = 8
				var (
					wg   sync.WaitGroup
					mu   sync.Mutex
					wins int
					errs []error
				)
				for range racers {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := service.Register(ctx, "race@example.com", "racer", "s3cret", auth.DefaultUserFlags())
						mu.Lock()
						defer mu.Unlock()
						if err == nil {
							wins++
							return
						}
						errs = append(errs, err)
					}()
				}
				wg.Wait()

				Expect(wins).To(Equal(1))
				for _, err := range errs {
					Expect(err).To(MatchError(auth.ErrUserAlreadyExists))
				}
			})

			It("refreshes a day later and keeps token types apart", func() {
				_, err := service.Register(ctx, "alice@example.com", "alice", "s3cret", auth.DefaultUserFlags())
				Expect(err).NotTo(HaveOccurred())
				pair, err := service.Authenticate(ctx, "alice", "s3cret")
				Expect(err).NotTo(HaveOccurred())

				clock.Advance(24 * time.Hour)

				_, err = service.CurrentUser(ctx, pair.AccessToken)
				Expect(err).To(MatchError(auth.ErrTokenExpired))

				fresh, err := service.Refresh(ctx, pair.RefreshToken)
				Expect(err).NotTo(HaveOccurred())
				Expect(fresh.AccessExpiresAt).To(BeTemporally("==", epoch.Add(24*time.Hour+15*time.Minute)))

				_, err = service.Refresh(ctx, fresh.AccessToken)
				Expect(err).To(MatchError(auth.ErrTokenTypeMismatch))
			})

			It("upgrades a legacy bcrypt hash on login", func() {
				legacy, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
				Expect(err).NotTo(HaveOccurred())
				user, err := auth.NewUser("legacy@example.com", "legacy", string(legacy), auth.DefaultUserFlags())
				Expect(err).NotTo(HaveOccurred())
				Expect(repo.Create(ctx, user)).To(Succeed())

				_, err = service.Authenticate(ctx, "legacy", "s3cret")
				Expect(err).NotTo(HaveOccurred())

				stored, err := repo.GetByID(ctx, user.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(stored.PasswordHash).To(HavePrefix("$argon2id$"))

				_, err = service.Authenticate(ctx, "legacy", "s3cret")
				Expect(err).NotTo(HaveOccurred())
			})

			It("fails identically for an unknown user and a wrong password", func() {
				_, err := service.Register(ctx, "alice@example.com", "alice", "s3cret", auth.DefaultUserFlags())
				Expect(err).NotTo(HaveOccurred())

				_, wrongPass := service.Authenticate(ctx, "alice", "nope")
				_, unknown := service.Authenticate(ctx, "nobody", "s3cret")

				Expect(wrongPass).To(MatchError(auth.ErrInvalidCredentials))
				Expect(unknown).To(MatchError(auth.ErrInvalidCredentials))
				Expect(wrongPass.Error()).To(Equal(unknown.Error()))
			})
		})
	}
})
