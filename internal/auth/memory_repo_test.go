// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"sync"

	"github.com/holomush/gatehouse/internal/auth"
)

// memoryRepo is a map-backed UserRepository enforcing the same unique
// constraints as the users table.
type memoryRepo struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]*auth.User)}
}

func (r *memoryRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return auth.ConflictError("email", nil)
		}
		if u.Username == user.Username {
			return auth.ConflictError("username", nil)
		}
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memoryRepo) GetActiveByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && u.IsActive {
			found := *u
			return &found, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		found := *u
		return &found, nil
	}
	return nil, auth.ErrNotFound
}

func (r *memoryRepo) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}
