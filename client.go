package l402

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/refined-element/l402-requests/bolt11"
)

// Client is an HTTP client that settles 402 Payment Required responses
// automatically: it parses the payment challenge, authorizes the amount
// against a spending budget, pays the invoice through the configured
// wallet, and retries the request with the proof of payment. It is safe
// for concurrent use and deduplicates payments per host.
type Client struct {
	httpClient      *http.Client
	timeout         time.Duration
	retryCeiling    int
	wallet          Wallet
	limits          Limits
	budget          *BudgetController
	cache           *CredentialCache
	spending        *SpendingLog
	credentialTTL   time.Duration
	middleware      []Middleware
	metrics         *MetricsCollector
	debug           *DebugConfig
	logger          Logger
	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		timeout:      30 * time.Second,
		retryCeiling: 2,
		limits:       DefaultLimits(),
		middleware:   []Middleware{},
		debug:        DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if client.spending == nil {
		client.spending = NewSpendingLog()
	}
	if client.cache == nil {
		client.cache = NewCredentialCache()
	}
	if client.credentialTTL > 0 {
		client.cache.setTTL(client.credentialTTL)
	}
	if client.budget == nil {
		client.budget = NewBudgetController(client.limits, client.spending)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Get performs an HTTP GET with context.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post performs an HTTP POST with the given content type.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(req)
}

// Do executes a prepared *http.Request, paying any payment challenge the
// server answers with. Transport errors are returned unwrapped; payment
// path failures are returned as the typed errors of this package, always
// before another request is sent.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.URL == nil {
		return nil, errors.New("l402: request has no URL")
	}

	start := time.Now()
	domain := domainOf(req.URL)
	method := req.Method

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Starting request", "requestID", requestID, "method", method, "url", req.URL.String())
	}

	if c.metrics != nil {
		c.metrics.RecordRequestStart(method, domain)
	}

	resp, err := c.do(req, requestID)

	if c.metrics != nil {
		c.metrics.RecordRequestEnd(method, domain)
		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		}
		c.metrics.RecordRequest(method, domain, statusCode, time.Since(start))
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		if err != nil {
			c.logger.Debug("Request failed", "requestID", requestID, "error", err.Error())
		} else {
			c.logger.Debug("Request finished", "requestID", requestID, "statusCode", resp.StatusCode, "duration", time.Since(start))
		}
	}

	return resp, err
}

// do drives a single request through the payment state machine: send,
// detect the challenge, authorize, pay (coalesced per host), retry with
// the credential, and invalidate-and-repay up to the retry ceiling when
// the server keeps answering 402.
func (c *Client) do(req *http.Request, requestID string) (*http.Response, error) {
	host := hostKey(req.URL)
	domain := domainOf(req.URL)

	cred := c.cache.Get(host)
	if c.metrics != nil {
		if cred != nil {
			c.metrics.RecordCredentialHit(domain)
		} else {
			c.metrics.RecordCredentialMiss(domain)
		}
	}
	if cred != nil && c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
		c.logger.Debug("Attaching cached credential", "requestID", requestID, "host", host)
	}

	resp, err := c.attemptRequest(req, cred)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError("Transport", domain)
		}
		return nil, err
	}

	usedCred := cred
	cycles := 0

	for {
		if resp.StatusCode != http.StatusPaymentRequired {
			return resp, nil
		}

		if usedCred != nil && c.cache.Invalidate(host, usedCred) {
			if c.metrics != nil {
				c.metrics.RecordCredentialInvalidated(domain)
			}
			if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
				c.logger.Warn("Server rejected credential, invalidating", "requestID", requestID, "host", host)
			}
		}

		challenge, err := FindChallenge(resp)
		if err != nil {
			drainBody(resp)
			if c.metrics != nil {
				c.metrics.RecordError("Challenge", domain)
			}
			return nil, err
		}
		challenge.Host = host

		// A retry resends the body, so refuse before spending anything.
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			drainBody(resp)
			return nil, ErrBodyNotReplayable
		}

		if cycles >= 1+c.retryCeiling {
			drainBody(resp)
			if c.metrics != nil {
				c.metrics.RecordError("RetryLimit", domain)
			}
			return nil, &RetryLimitError{Host: host, Payments: cycles}
		}

		// The allowlist is checked before the invoice is even decoded so a
		// disallowed domain can never influence the flow with its payload.
		if err := c.budget.CheckDomain(domain); err != nil {
			drainBody(resp)
			c.recordBudgetRejection(domain, err, requestID)
			return nil, err
		}

		amountSats, amountErr := bolt11.AmountSats(challenge.Invoice)
		if amountErr != nil || amountSats <= 0 {
			drainBody(resp)
			if c.metrics != nil {
				c.metrics.RecordError("Challenge", domain)
			}
			return nil, &ChallengeError{Reason: challengeAmountReason(amountErr)}
		}

		payCred, owner, err := c.cache.GetOrPay(req.Context(), host, func(ctx context.Context) (*Credential, error) {
			return c.payChallenge(ctx, challenge, amountSats, domain, req.URL.Path, requestID)
		})
		cycles++
		if err != nil {
			drainBody(resp)
			return nil, err
		}
		if !owner {
			if c.metrics != nil {
				c.metrics.RecordPaymentCoalesced(domain)
			}
			if c.debug != nil && c.debug.Enabled && c.debug.LogPayments && c.logger != nil {
				c.logger.Debug("Reusing coalesced payment", "requestID", requestID, "host", host)
			}
		}

		drainBody(resp)
		retry, err := c.attemptRequest(req, payCred)
		if err != nil {
			if c.metrics != nil {
				c.metrics.RecordError("Transport", domain)
			}
			return nil, err
		}
		resp = retry
		usedCred = payCred
	}
}

// payChallenge authorizes, pays, and records a single challenge. It runs
// inside the cache's per-host flight, detached from any one caller.
func (c *Client) payChallenge(ctx context.Context, challenge *Challenge, amountSats int64, domain, path, requestID string) (*Credential, error) {
	approval, err := c.budget.Authorize(amountSats, domain)
	if err != nil {
		c.recordBudgetRejection(domain, err, requestID)
		return nil, err
	}

	if c.wallet == nil {
		c.budget.Release(approval)
		return nil, ErrNoWallet
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogPayments && c.logger != nil {
		c.logger.Info("Paying invoice", "requestID", requestID, "domain", domain, "amountSats", amountSats)
	}

	payment, err := c.wallet.PayInvoice(ctx, challenge.Invoice)
	if err != nil {
		c.budget.Release(approval)
		// Failed attempts stay in the log for auditing; they never count
		// toward spend.
		_ = c.spending.Record(SpendingRecord{
			Domain:     domain,
			Path:       path,
			AmountSats: amountSats,
			Macaroon:   challenge.Macaroon,
			Success:    false,
		})
		if c.metrics != nil {
			c.metrics.RecordPayment(domain, amountSats, false)
			c.metrics.RecordError("Payment", domain)
		}
		if c.debug != nil && c.debug.Enabled && c.debug.LogPayments && c.logger != nil {
			c.logger.Error("Payment failed", "requestID", requestID, "domain", domain, "error", err.Error())
		}
		var pe *PaymentError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &PaymentError{Invoice: challenge.Invoice, Reason: err.Error(), Cause: err}
	}

	rec := SpendingRecord{
		Domain:     domain,
		Path:       path,
		AmountSats: amountSats,
		Preimage:   payment.Preimage,
		Macaroon:   challenge.Macaroon,
		Success:    true,
	}
	if err := c.budget.Commit(approval, rec); err != nil {
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordPayment(domain, amountSats, true)
	}
	if c.debug != nil && c.debug.Enabled && c.debug.LogPayments && c.logger != nil {
		c.logger.Info("Payment settled", "requestID", requestID, "domain", domain, "amountSats", amountSats)
	}

	return &Credential{
		Macaroon: challenge.Macaroon,
		Preimage: payment.Preimage,
		Host:     challenge.Host,
	}, nil
}

// attemptRequest sends one clone of req, presenting cred when set. The
// original request is never mutated; retries re-read the body via GetBody.
func (c *Client) attemptRequest(req *http.Request, cred *Credential) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	if cred != nil {
		clone.Header.Set("Authorization", cred.AuthorizationHeader())
	}
	return c.executeMiddleware(clone)
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

func (c *Client) recordBudgetRejection(domain string, err error, requestID string) {
	var be *BudgetError
	if !errors.As(err, &be) {
		return
	}
	if c.metrics != nil {
		c.metrics.RecordBudgetRejection(domain, be.Limit)
	}
	if c.debug != nil && c.debug.Enabled && c.debug.LogBudget && c.logger != nil {
		c.logger.Warn("Budget rejected payment", "requestID", requestID, "domain", domain, "limit", string(be.Limit))
	}
}

// Async returns an asynchronous view over the same client: identical
// orchestration, shared budget, cache, and spending log.
func (c *Client) Async() *AsyncClient {
	return &AsyncClient{client: c}
}

// SpendingLog exposes the client's payment history.
func (c *Client) SpendingLog() *SpendingLog {
	return c.spending
}

// Budget exposes the client's budget controller.
func (c *Client) Budget() *BudgetController {
	return c.budget
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// challengeAmountReason maps an amount decode failure to a challenge
// rejection reason.
func challengeAmountReason(err error) string {
	switch {
	case errors.Is(err, bolt11.ErrNoAmount):
		return "invoice encodes no amount, cannot authorize a budget"
	case err != nil:
		return "invoice is not a valid payment request"
	default:
		return "invoice amount is below one satoshi"
	}
}

// hostKey normalizes a request URL to the authority credentials are scoped to.
func hostKey(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// domainOf returns the bare hostname used for budget and spending accounting.
func domainOf(u *url.URL) string {
	return strings.ToLower(u.Hostname())
}

// drainBody discards and closes a response body so the connection can be
// reused by the retry.
func drainBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
