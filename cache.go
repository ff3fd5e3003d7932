package l402

import (
	"context"
	"sync"
	"time"
)

// Credential is a proof of payment for a host: the macaroon issued in the
// challenge plus the preimage obtained by paying its invoice.
type Credential struct {
	Macaroon  string
	Preimage  string
	Host      string
	CreatedAt time.Time
}

// AuthorizationHeader renders the Authorization value presenting this
// credential: "L402 <macaroon>:<preimage>".
func (c *Credential) AuthorizationHeader() string {
	return "L402 " + c.Macaroon + ":" + c.Preimage
}

// PaymentFunc produces a credential by settling a host's challenge.
type PaymentFunc func(ctx context.Context) (*Credential, error)

// paymentFlight is an in-flight payment shared between callers.
type paymentFlight struct {
	cred *Credential
	err  error
	done chan struct{}
}

func (f *paymentFlight) wait(ctx context.Context) (*Credential, error) {
	select {
	case <-f.done:
		return f.cred, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CredentialCache stores credentials keyed by normalized authority and
// coalesces concurrent payments: at most one payment per host is in flight
// at any moment, and every caller for that host shares its outcome.
//
// Entries have no TTL unless one is configured and are evicted only by
// Invalidate, Clear, or lazy expiry. Safe for concurrent use.
type CredentialCache struct {
	mu       sync.Mutex
	creds    map[string]*Credential
	inflight map[string]*paymentFlight
	ttl      time.Duration
	now      func() time.Time
}

// NewCredentialCache returns an empty cache whose credentials never expire.
func NewCredentialCache() *CredentialCache {
	return &CredentialCache{
		creds:    make(map[string]*Credential),
		inflight: make(map[string]*paymentFlight),
		now:      time.Now,
	}
}

func (cc *CredentialCache) setTTL(ttl time.Duration) {
	cc.mu.Lock()
	cc.ttl = ttl
	cc.mu.Unlock()
}

// Get returns the cached credential for host, or nil.
func (cc *CredentialCache) Get(host string) *Credential {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.lookupLocked(host)
}

// Put stores a credential for host, replacing any existing one. A zero
// CreatedAt is stamped with the current time.
func (cc *CredentialCache) Put(host string, cred *Credential) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = cc.now()
	}
	cc.creds[host] = cred
}

// GetOrPay returns host's credential, running pay to obtain one if neither
// a cached credential nor an in-flight payment exists. The second return
// reports whether this call initiated the payment.
//
// The payment runs detached from ctx: cancelling one caller abandons its
// wait but never aborts a payment other callers may be sharing.
func (cc *CredentialCache) GetOrPay(ctx context.Context, host string, pay PaymentFunc) (*Credential, bool, error) {
	cc.mu.Lock()
	if cred := cc.lookupLocked(host); cred != nil {
		cc.mu.Unlock()
		return cred, false, nil
	}
	if f, ok := cc.inflight[host]; ok {
		cc.mu.Unlock()
		cred, err := f.wait(ctx)
		return cred, false, err
	}
	f := &paymentFlight{done: make(chan struct{})}
	cc.inflight[host] = f
	cc.mu.Unlock()

	go func() {
		cred, err := pay(context.WithoutCancel(ctx))
		cc.mu.Lock()
		if err == nil {
			if cred.CreatedAt.IsZero() {
				cred.CreatedAt = cc.now()
			}
			cc.creds[host] = cred
		}
		delete(cc.inflight, host)
		f.cred, f.err = cred, err
		cc.mu.Unlock()
		close(f.done)
	}()

	cred, err := f.wait(ctx)
	return cred, true, err
}

// Invalidate removes host's entry only while it still holds cred, so a
// newer credential paid for by another caller is never clobbered. It
// reports whether an entry was removed.
func (cc *CredentialCache) Invalidate(host string, cred *Credential) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cur, ok := cc.creds[host]; ok && cur == cred {
		delete(cc.creds, host)
		return true
	}
	return false
}

// Clear removes all cached credentials. In-flight payments are unaffected.
func (cc *CredentialCache) Clear() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.creds = make(map[string]*Credential)
}

// Len returns the number of cached credentials.
func (cc *CredentialCache) Len() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return len(cc.creds)
}

func (cc *CredentialCache) lookupLocked(host string) *Credential {
	cred := cc.creds[host]
	if cred == nil {
		return nil
	}
	if cc.ttl > 0 && cc.now().Sub(cred.CreatedAt) >= cc.ttl {
		delete(cc.creds, host)
		return nil
	}
	return cred
}
