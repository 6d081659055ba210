// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"
)

// User is a registered account as stored in the users table.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	FirstName    *string
	LastName     *string
	AvatarURL    *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName returns "first last" when both names are set, else whichever
// one is set, else the username.
func (u *User) DisplayName() string {
	first := deref(u.FirstName)
	last := deref(u.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return u.Username
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// optional converts an empty form value into a NULL column value.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// UserRepository persists users. Implementations map unique-constraint
// violations to ConflictError and missing rows to ErrNotFound.
type UserRepository interface {
	// Create inserts a new user row.
	Create(ctx context.Context, user *User) error

	// GetActiveByEmail returns the active user with exactly this email.
	GetActiveByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns the user with this id regardless of status.
	GetByID(ctx context.Context, id string) (*User, error)

	// EmailExists reports whether any user row has this email.
	EmailExists(ctx context.Context, email string) (bool, error)

	// UsernameExists reports whether any user row has this username.
	UsernameExists(ctx context.Context, username string) (bool, error)
}
