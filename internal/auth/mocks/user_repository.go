// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/tokenauth/internal/auth"
)

// MockUserRepository is a mock auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a MockUserRepository whose expectations are
// asserted when the test finishes.
func NewMockUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// GetByID mocks auth.UserRepository.GetByID.
func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// GetByEmailOrUsername mocks auth.UserRepository.GetByEmailOrUsername.
func (m *MockUserRepository) GetByEmailOrUsername(ctx context.Context, value string) (*auth.User, error) {
	args := m.Called(ctx, value)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// Create mocks auth.UserRepository.Create.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockUpdatingUserRepository is a MockUserRepository that also implements
// auth.PasswordUpdater.
type MockUpdatingUserRepository struct {
	MockUserRepository
}

// NewMockUpdatingUserRepository creates a MockUpdatingUserRepository whose
// expectations are asserted when the test finishes.
func NewMockUpdatingUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUpdatingUserRepository {
	m := &MockUpdatingUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// UpdatePassword mocks auth.PasswordUpdater.UpdatePassword.
func (m *MockUpdatingUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

var (
	_ auth.UserRepository  = (*MockUserRepository)(nil)
	_ auth.UserRepository  = (*MockUpdatingUserRepository)(nil)
	_ auth.PasswordUpdater = (*MockUpdatingUserRepository)(nil)
)
