package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Revocations is a set of terminated token IDs. A revoked token is refused
// even though its signature and expiry would still validate. Entries expire
// with the token they revoke, so the set stays bounded by the number of
// sessions terminated within one token lifetime.
type Revocations struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]time.Time
}

// NewRevocations creates an empty set.
func NewRevocations() *Revocations {
	return &Revocations{revoked: make(map[uuid.UUID]time.Time)}
}

// Revoke marks the token ID as terminated until the token's own expiry,
// after which signature validation rejects it anyway.
func (r *Revocations) Revoke(tokenID uuid.UUID, expires time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for id, exp := range r.revoked {
		if exp.Before(now) {
			delete(r.revoked, id)
		}
	}
	r.revoked[tokenID] = expires
}

// Revoked reports whether the token ID has been terminated.
func (r *Revocations) Revoked(tokenID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	expires, ok := r.revoked[tokenID]
	return ok && time.Now().Before(expires)
}
