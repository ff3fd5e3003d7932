package l402

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Limits configures the spending ceilings enforced by a BudgetController.
// A zero value for any cap disables that dimension, and an empty
// AllowedDomains list allows every domain; the zero Limits therefore
// approves everything.
type Limits struct {
	// MaxPerPayment caps a single payment, in sats.
	MaxPerPayment int64
	// MaxPerHour caps the sliding 1-hour window, in sats.
	MaxPerHour int64
	// MaxPerDay caps the sliding 24-hour window, in sats.
	MaxPerDay int64
	// AllowedDomains, when non-empty, restricts payments to these domains.
	// Matching is case-insensitive.
	AllowedDomains []string
}

// DefaultLimits returns the conservative caps applied by New: 1k sats per
// payment, 10k per hour, 50k per day, any domain.
func DefaultLimits() Limits {
	return Limits{
		MaxPerPayment: 1_000,
		MaxPerHour:    10_000,
		MaxPerDay:     50_000,
	}
}

// Approval is a single-use token returned by Authorize. The reserved amount
// counts against the rolling windows until the approval is committed or
// released, so concurrent authorizations can never share a stale snapshot.
type Approval struct {
	token      uint64
	amountSats int64
	domain     string
}

// AmountSats returns the reserved amount.
func (a *Approval) AmountSats() int64 { return a.amountSats }

// Domain returns the domain the approval was granted for.
func (a *Approval) Domain() string { return a.domain }

type reservation struct {
	amountSats int64
	at         time.Time
}

// BudgetController enforces spending limits over a SpendingLog. Rolling
// sums are recomputed from the log plus in-flight reservations on every
// call; nothing is cached between calls.
//
// The intended flow is Authorize before paying, then exactly one of
// Commit (payment settled, record appended) or Release (payment failed).
type BudgetController struct {
	mu        sync.Mutex
	limits    Limits
	allowed   map[string]struct{}
	log       *SpendingLog
	pending   map[uint64]reservation
	nextToken uint64
	now       func() time.Time
}

// NewBudgetController builds a controller enforcing limits against log.
// A nil log gets a fresh private one.
func NewBudgetController(limits Limits, log *SpendingLog) *BudgetController {
	if log == nil {
		log = NewSpendingLog()
	}
	var allowed map[string]struct{}
	if len(limits.AllowedDomains) > 0 {
		allowed = make(map[string]struct{}, len(limits.AllowedDomains))
		for _, d := range limits.AllowedDomains {
			allowed[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
		}
	}
	return &BudgetController{
		limits:  limits,
		allowed: allowed,
		log:     log,
		pending: make(map[uint64]reservation),
		now:     time.Now,
	}
}

// Limits returns the configured limits.
func (b *BudgetController) Limits() Limits { return b.limits }

// CheckDomain reports whether the allowlist permits paying domain at all.
// It is cheaper than Authorize and needs no invoice amount.
func (b *BudgetController) CheckDomain(domain string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checkDomainLocked(domain, 0)
}

func (b *BudgetController) checkDomainLocked(domain string, invoiceSats int64) error {
	if b.allowed == nil {
		return nil
	}
	if _, ok := b.allowed[strings.ToLower(domain)]; !ok {
		return &BudgetError{Limit: LimitDomain, Domain: domain, InvoiceSats: invoiceSats}
	}
	return nil
}

// Authorize reserves amountSats for a payment to domain. On success the
// returned approval must later be passed to Commit or Release. Rejections
// are *BudgetError values identifying the limit that fired; the allowlist
// is checked first, then the per-payment, hourly, and daily caps.
func (b *BudgetController) Authorize(amountSats int64, domain string) (*Approval, error) {
	if amountSats <= 0 {
		return nil, fmt.Errorf("l402: authorize amount must be positive, got %d", amountSats)
	}
	if domain == "" {
		return nil, errors.New("l402: authorize domain must not be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkDomainLocked(domain, amountSats); err != nil {
		return nil, err
	}

	if b.limits.MaxPerPayment > 0 && amountSats > b.limits.MaxPerPayment {
		return nil, &BudgetError{
			Limit:       LimitPerPayment,
			Domain:      domain,
			LimitSats:   b.limits.MaxPerPayment,
			InvoiceSats: amountSats,
		}
	}

	now := b.now()

	if b.limits.MaxPerHour > 0 {
		cutoff := now.Add(-time.Hour)
		spent := b.log.totalSince(cutoff) + b.pendingSinceLocked(cutoff)
		if spent+amountSats > b.limits.MaxPerHour {
			return nil, &BudgetError{
				Limit:       LimitPerHour,
				Domain:      domain,
				LimitSats:   b.limits.MaxPerHour,
				CurrentSats: spent,
				InvoiceSats: amountSats,
			}
		}
	}

	if b.limits.MaxPerDay > 0 {
		cutoff := now.Add(-24 * time.Hour)
		spent := b.log.totalSince(cutoff) + b.pendingSinceLocked(cutoff)
		if spent+amountSats > b.limits.MaxPerDay {
			return nil, &BudgetError{
				Limit:       LimitPerDay,
				Domain:      domain,
				LimitSats:   b.limits.MaxPerDay,
				CurrentSats: spent,
				InvoiceSats: amountSats,
			}
		}
	}

	token := b.nextToken
	b.nextToken++
	b.pending[token] = reservation{amountSats: amountSats, at: now}
	return &Approval{token: token, amountSats: amountSats, domain: domain}, nil
}

// Commit consumes the approval and appends the settled payment's record in
// one critical section, so no concurrent Authorize can observe the spend
// twice or miss it. Committing a consumed approval returns
// ErrApprovalConsumed; an invalid record leaves the approval held.
func (b *BudgetController) Commit(a *Approval, rec SpendingRecord) error {
	if a == nil {
		return errors.New("l402: commit of nil approval")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pending[a.token]; !ok {
		return ErrApprovalConsumed
	}
	if err := b.log.Record(rec); err != nil {
		return err
	}
	delete(b.pending, a.token)
	return nil
}

// Release abandons an approval after a failed payment. No spend is
// recorded. Releasing a consumed approval is a no-op.
func (b *BudgetController) Release(a *Approval) {
	if a == nil {
		return
	}
	b.mu.Lock()
	delete(b.pending, a.token)
	b.mu.Unlock()
}

// PendingSats returns the total amount currently reserved by in-flight
// authorizations.
func (b *BudgetController) PendingSats() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total int64
	for _, r := range b.pending {
		total += r.amountSats
	}
	return total
}

func (b *BudgetController) pendingSinceLocked(cutoff time.Time) int64 {
	var total int64
	for _, r := range b.pending {
		if !r.at.Before(cutoff) {
			total += r.amountSats
		}
	}
	return total
}
