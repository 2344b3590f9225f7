package credential

import (
	"sync"
)

// Credential identifies one external transcription account. A credential is
// assigned to at most one client session at a time.
type Credential struct {
	// ID is the opaque account token (Deepgram API key)
	ID string

	busy bool
}

// Pool holds a fixed set of credentials with exclusive-use tracking.
// Credentials are created once from configuration and never destroyed;
// only the busy flag changes.
type Pool struct {
	mu          sync.Mutex
	credentials []*Credential
}

// NewPool creates a pool from the configured credential tokens, preserving
// configuration order. Acquire scans in this order.
func NewPool(ids []string) *Pool {
	creds := make([]*Credential, 0, len(ids))
	for _, id := range ids {
		creds = append(creds, &Credential{ID: id})
	}
	return &Pool{credentials: creds}
}

// Acquire returns the first free credential and marks it busy.
// Returns nil when all credentials are busy - that is a capacity signal,
// not an error. Callers must not wait; they reject the request instead.
func (p *Pool) Acquire() *Credential {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, cred := range p.credentials {
		if !cred.busy {
			cred.busy = true
			return cred
		}
	}
	return nil
}

// Release marks a credential as free again. Idempotent: releasing an
// already-free credential is a no-op, which guards against double-release
// on overlapping cleanup paths.
func (p *Pool) Release(cred *Credential) {
	if cred == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	cred.busy = false
}

// Size returns the total number of credentials in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.credentials)
}

// Busy returns the number of credentials currently assigned.
func (p *Pool) Busy() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	busy := 0
	for _, cred := range p.credentials {
		if cred.busy {
			busy++
		}
	}
	return busy
}
