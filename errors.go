package l402

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios
var (
	// ErrNoWallet is returned when a payment is required but no wallet is configured.
	ErrNoWallet = errors.New("l402: no wallet configured; set STRIKE_API_KEY, OPENNODE_API_KEY, or LND_REST_HOST + LND_MACAROON_HEX, or pass WithWallet")

	// ErrApprovalConsumed is returned when a budget approval is committed or released twice.
	ErrApprovalConsumed = errors.New("l402: budget approval already consumed")

	// ErrBodyNotReplayable is returned when a 402 must be retried but the
	// request body cannot be re-read. Set Request.GetBody to fix.
	ErrBodyNotReplayable = errors.New("l402: request body is not replayable")
)

// LimitKind identifies the budget dimension that rejected a payment.
type LimitKind string

const (
	LimitDomain     LimitKind = "domain"
	LimitPerPayment LimitKind = "per_request"
	LimitPerHour    LimitKind = "per_hour"
	LimitPerDay     LimitKind = "per_day"
)

// ChallengeError reports a 402 response whose payment challenge could not
// be parsed or used.
type ChallengeError struct {
	Reason string
	Header string
}

func (e *ChallengeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("l402: failed to parse challenge: %s", e.Reason)
}

// Is matches any *ChallengeError for errors.Is.
func (e *ChallengeError) Is(target error) bool {
	if e == nil {
		return false
	}
	_, ok := target.(*ChallengeError)
	return ok
}

// BudgetError reports a payment rejected by the budget controller before
// any backend call was made.
type BudgetError struct {
	Limit       LimitKind
	Domain      string
	LimitSats   int64
	CurrentSats int64
	InvoiceSats int64
}

func (e *BudgetError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Limit == LimitDomain {
		return fmt.Sprintf("l402: domain not in allowed list: %s", e.Domain)
	}
	return fmt.Sprintf("l402: budget exceeded: %s limit is %d sats, already spent %d sats, invoice requires %d sats",
		e.Limit, e.LimitSats, e.CurrentSats, e.InvoiceSats)
}

// Is matches a *BudgetError target; a zero Limit on the target matches any kind.
func (e *BudgetError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*BudgetError)
	if !ok {
		return false
	}
	return t.Limit == "" || t.Limit == e.Limit
}

// PaymentError reports a payment the wallet could not complete. The budget
// reservation is released and no spend is committed when it is returned.
type PaymentError struct {
	Backend string
	Invoice string
	Reason  string
	Cause   error
}

func (e *PaymentError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Backend != "" {
		return fmt.Sprintf("l402: payment failed (%s): %s", e.Backend, e.Reason)
	}
	return fmt.Sprintf("l402: payment failed: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *PaymentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *PaymentError for errors.Is.
func (e *PaymentError) Is(target error) bool {
	if e == nil {
		return false
	}
	_, ok := target.(*PaymentError)
	return ok
}

// RetryLimitError reports a host that kept answering freshly paid
// credentials with 402 until the retry ceiling was exhausted.
type RetryLimitError struct {
	Host     string
	Payments int
}

func (e *RetryLimitError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("l402: %s rejected credentials after %d payments; giving up", e.Host, e.Payments)
}

// ValidationError aggregates configuration problems found at construction.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("l402: configuration validation failed: %v", e.Problems)
}

// IsBudgetExceeded reports whether err is a budget rejection of any kind,
// including the domain allowlist.
func IsBudgetExceeded(err error) bool {
	var be *BudgetError
	return errors.As(err, &be)
}

// IsPaymentFailed reports whether err is a failed payment attempt.
func IsPaymentFailed(err error) bool {
	var pe *PaymentError
	return errors.As(err, &pe)
}
