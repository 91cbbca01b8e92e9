// Package idempotency replays the stored response of a mutating request retried under the same
// Idempotency-Key header, so a client retrying a checkout after a dropped connection is not
// charged twice.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// DefaultTTL is how long a completed response stays replayable.
const DefaultTTL = 24 * time.Hour

// State is the outcome of reserving a key.
type State int

const (
	// StateAcquired means the caller owns the key and must run the request.
	StateAcquired State = iota
	// StateReplay means a completed response is stored and must be replayed.
	StateReplay
	// StateInFlight means another request holds the key.
	StateInFlight
)

// ErrFingerprintMismatch is returned when a key is reused for a different request.
var ErrFingerprintMismatch = errors.New("idempotency: key reused for a different request")

// Record is the persisted state of one key.
type Record struct {
	Fingerprint string
	Completed   bool
	Status      int
	ContentType string
	Body        []byte
	ExpiresAt   time.Time
}

// Store persists reservations and completed responses. Implementations must make Reserve atomic
// per key.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Record, State, error)
	Complete(ctx context.Context, key string, record Record) error
	Release(ctx context.Context, key string) error
}

// documentID hashes the scoped key so arbitrary client input is a safe document id.
func documentID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// resolve decides the reservation outcome for an existing record. An expired record is replaced.
func resolve(existing Record, fingerprint string, now time.Time) (State, bool, error) {
	if !now.Before(existing.ExpiresAt) {
		return StateAcquired, true, nil
	}
	if existing.Fingerprint != fingerprint {
		return 0, false, ErrFingerprintMismatch
	}
	if existing.Completed {
		return StateReplay, false, nil
	}
	return StateInFlight, false, nil
}
