// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package session issues and verifies the signed tokens carried in the
// session cookie and resolves them back into an Identity.
package session

import "github.com/holomush/gatehouse/internal/auth"

// Identity is the authenticated user as seen by request handlers. It is
// rebuilt wholesale at each login and never mutated.
type Identity struct {
	ID          string
	Email       string
	Username    string
	DisplayName string
	AvatarURL   string
}

// FromUser builds the Identity for a freshly authenticated user.
func FromUser(u *auth.User) Identity {
	id := Identity{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName(),
	}
	if u.AvatarURL != nil {
		id.AvatarURL = *u.AvatarURL
	}
	return id
}
