// Package wallet provides Lightning payment backends for the l402
// client. Each adapter is a thin REST client for one provider,
// implements l402.Wallet, and returns the payment preimage the L402
// credential is built from. Detect picks a configured adapter from
// environment variables and the config file.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	l402 "github.com/refined-element/l402-requests"
)

// Backend names as reported by Name() and carried in payment errors.
const (
	backendLND      = "lnd"
	backendStrike   = "strike"
	backendOpenNode = "opennode"
)

// defaultTimeout bounds a single payment attempt end to end.
const defaultTimeout = 60 * time.Second

// settings collects the knobs shared by the adapter constructors.
type settings struct {
	baseURL      string
	httpClient   *http.Client
	customClient bool
	tlsCertPath  string
}

// Option configures a wallet adapter.
type Option func(*settings)

// WithBaseURL overrides the provider API endpoint. Useful for tests and
// self-hosted deployments; a trailing slash is stripped.
func WithBaseURL(u string) Option {
	return func(s *settings) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the adapter's HTTP client. The caller then
// owns timeout and TLS configuration.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		s.httpClient = c
		s.customClient = true
	}
}

// WithTLSCert pins the backend's TLS certificate from a PEM file. Only
// LND uses it (self-signed node certs); it is ignored when
// WithHTTPClient is set.
func WithTLSCert(path string) Option {
	return func(s *settings) {
		s.tlsCertPath = path
	}
}

func newSettings(baseURL string, options ...Option) settings {
	s := settings{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, option := range options {
		option(&s)
	}
	return s
}

// payError builds the typed error every adapter failure surfaces as.
func payError(backend, invoice, reason string, cause error) error {
	return &l402.PaymentError{
		Backend: backend,
		Invoice: invoice,
		Reason:  reason,
		Cause:   cause,
	}
}

// doJSON sends one request with an optional JSON body and the given
// headers applied.
func doJSON(ctx context.Context, hc *http.Client, method, url string, header http.Header, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return hc.Do(req)
}

// snippet returns a bounded copy of a response body for error messages.
func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 2048))
	return strings.TrimSpace(string(b))
}
