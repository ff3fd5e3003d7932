package l402

import (
	"context"
	"net/http"
)

// Wallet pays Lightning invoices on behalf of the client. Implementations
// must be safe for concurrent use; adapters for common node and custodial
// APIs live in the wallet subpackage.
type Wallet interface {
	// PayInvoice settles a BOLT11 payment request and returns the payment
	// proof. The context bounds the payment attempt, not the invoice.
	PayInvoice(ctx context.Context, invoice string) (*Payment, error)
}

// Payment is the result of a settled Lightning payment.
type Payment struct {
	// Preimage is the hex-encoded proof of payment.
	Preimage string
	// AmountSats is the settled amount as reported by the backend,
	// zero when the backend does not report one.
	AmountSats int64
}

// Middleware wraps the underlying transport for cross-cutting concerns
// such as tracing or header injection.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option represents a configuration option
type Option func(*Client)
