// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"sync"
	"time"
)

// DefaultSweepInterval is how often expired revocations are dropped.
const DefaultSweepInterval = time.Minute

// Revocations is an in-process denylist of token ids. An entry is kept until
// the token it names would have expired anyway.
//
// A background goroutine sweeps expired entries. Call Close to stop it.
type Revocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRevocations creates a denylist sweeping every interval. A non-positive
// interval selects DefaultSweepInterval.
func NewRevocations(interval time.Duration) *Revocations {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	r := &Revocations{
		entries:  make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	r.wg.Add(1)
	go r.sweepLoop(interval)
	return r
}

// Revoke denies jti until the given time.
func (r *Revocations) Revoke(jti string, until time.Time) {
	if jti == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[jti] = until
}

// IsRevoked reports whether jti is currently denied.
func (r *Revocations) IsRevoked(jti string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.entries[jti]
	return ok && r.now().Before(until)
}

// Len returns the number of tracked entries, expired or not.
func (r *Revocations) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops entries whose tokens have expired and returns how many were
// removed.
func (r *Revocations) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for jti, until := range r.entries {
		if !now.Before(until) {
			delete(r.entries, jti)
			removed++
		}
	}
	return removed
}

func (r *Revocations) sweepLoop(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close stops the sweep goroutine and waits for it to exit. It is safe to
// call more than once.
func (r *Revocations) Close() {
	r.closeOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}
