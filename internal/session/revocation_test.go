// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestRevocations_ExpireAndSweep(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRevocations(time.Hour)
	defer r.Close()
	r.now = func() time.Time { return now }

	r.Revoke("a", now.Add(time.Minute))
	r.Revoke("b", now.Add(time.Hour))
	r.Revoke("", now.Add(time.Hour))

	assert.True(t, r.IsRevoked("a"))
	assert.True(t, r.IsRevoked("b"))
	assert.False(t, r.IsRevoked("c"))
	assert.Equal(t, 2, r.Len())

	now = now.Add(2 * time.Minute)
	assert.False(t, r.IsRevoked("a"), "entry past its expiry no longer denies")
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())
}

func TestRevocations_BackgroundSweep(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRevocations(5 * time.Millisecond)
	defer r.Close()
	r.Revoke("gone", time.Now().Add(-time.Second))

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRevocations_CloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRevocations(0)
	r.Close()
	r.Close()
}

func TestRevocations_ConcurrentUse(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRevocations(time.Millisecond)
	defer r.Close()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jti := string(rune('a' + i))
			r.Revoke(jti, time.Now().Add(time.Minute))
			_ = r.IsRevoked(jti)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, r.Len())
}
