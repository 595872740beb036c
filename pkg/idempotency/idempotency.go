// Package idempotency provides a short-TTL in-memory cache mapping an
// Idempotency-Key header to the ride id it already created, so a
// retried POST /rides does not start a second dispatch for the same
// logical ride. It sits in front of the HTTP handler, not inside any
// domain service.
package idempotency

import (
	"sync"
	"time"

	"github.com/ridecore/dispatch/pkg/uuid"
)

type entry struct {
	rideID  uuid.UUID
	expires time.Time
}

type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
}

func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{ttl: ttl, entries: make(map[string]entry)}
}

// Lookup returns the ride id already associated with key, if any and
// not expired.
func (s *Store) Lookup(key string) (uuid.UUID, bool) {
	if key == "" {
		return uuid.UUID{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return uuid.UUID{}, false
	}
	if time.Now().After(e.expires) {
		delete(s.entries, key)
		return uuid.UUID{}, false
	}
	return e.rideID, true
}

// Remember associates key with rideID for the store's TTL. A no-op
// when key is empty (idempotency is opt-in).
func (s *Store) Remember(key string, rideID uuid.UUID) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{rideID: rideID, expires: time.Now().Add(s.ttl)}
	s.sweepLocked()
}

// sweepLocked drops expired entries. Called opportunistically on
// writes so the map never grows unbounded between requests.
func (s *Store) sweepLocked() {
	now := time.Now()
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
		}
	}
}
