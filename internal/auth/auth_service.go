// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service registers users and verifies their credentials.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service that logs through slog.Default.
func NewService(users UserRepository, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, hasher, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		users:  users,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}, nil
}

// dummyPasswordHash is verified against when no active user matches, so an
// unknown email costs the same bcrypt work as a wrong password.
//
//nolint:gosec // G101: not a credential, matches no password.
const dummyPasswordHash = "$2a$12$brU7uJmPKfk0pYPvwkqvgetUxStEaMtbqpYDKc.U.9HnefuGgB5DV"

// CreateUser hashes the password and inserts a new active user with
// trimmed email, username and names. It does not validate req. A unique
// constraint violation surfaces as a Conflict error.
func (s *Service) CreateUser(ctx context.Context, req RegistrationRequest) (*User, error) {
	req = req.normalized()
	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, oops.Code(CodeCrypto).With("operation", "hash password").Wrap(err)
	}

	now := s.now().UTC()
	user := &User{
		ID:           ulid.Make().String(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		FirstName:    optional(req.FirstName),
		LastName:     optional(req.LastName),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if IsCode(err, CodeConflict) {
			return nil, err
		}
		return nil, oops.Code(CodeStorage).
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Register trims req, validates the trimmed values, runs the advisory
// uniqueness checks and creates the user. Validation failures come back as
// ValidationFailed with every violation; taken email or username as Conflict.
func (s *Service) Register(ctx context.Context, req RegistrationRequest) (*User, error) {
	req = req.normalized()
	if violations := ValidateRegistration(req); len(violations) > 0 {
		return nil, violations.Err()
	}

	taken, err := s.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ConflictError("email", nil)
	}

	taken, err = s.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ConflictError("username", nil)
	}

	return s.CreateUser(ctx, req)
}

// Authenticate returns the active user whose email and password match, or
// (nil, nil) when nothing matches. Unknown email, inactive account and wrong
// password are indistinguishable to the caller and take comparable time.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, lookupErr := s.users.GetActiveByEmail(ctx, strings.TrimSpace(email))

	var targetHash string
	var userExists bool
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = dummyPasswordHash
	default:
		return nil, oops.Code(CodeStorage).
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(ctx, password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, nil
		}
		return nil, oops.Code(CodeCrypto).
			With("operation", "verify password").
			With("user_id", user.ID).
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, nil
	}
	return user, nil
}

// Login validates req and authenticates it. A credential mismatch is
// returned as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, error) {
	if violations := ValidateLogin(req); len(violations) > 0 {
		return nil, violations.Err()
	}

	user, err := s.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logger.InfoContext(ctx, "login rejected")
		return nil, ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "login succeeded", "user_id", user.ID)
	return user, nil
}

// EmailExists reports whether email is already registered.
func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	exists, err := s.users.EmailExists(ctx, strings.TrimSpace(email))
	if err != nil {
		return false, oops.Code(CodeStorage).With("operation", "check email").Wrap(err)
	}
	return exists, nil
}

// UsernameExists reports whether username is already taken.
func (s *Service) UsernameExists(ctx context.Context, username string) (bool, error) {
	exists, err := s.users.UsernameExists(ctx, strings.TrimSpace(username))
	if err != nil {
		return false, oops.Code(CodeStorage).With("operation", "check username").Wrap(err)
	}
	return exists, nil
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, oops.Code(CodeStorage).With("operation", "get user by id").With("user_id", id).Wrap(err)
	}
	return user, nil
}
