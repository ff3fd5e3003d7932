package wallet

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	l402 "github.com/refined-element/l402-requests"
)

// LND pays invoices through an LND node's REST API using the router's
// synchronous send endpoint, which streams payment updates until a
// terminal state.
//
// Requires the REST host (e.g. "https://localhost:8080") and a macaroon
// with payment permission in hex form. Nodes with self-signed
// certificates need WithTLSCert pointing at the node's tls.cert.
type LND struct {
	host        string
	macaroonHex string
	httpClient  *http.Client
}

// NewLND builds an LND adapter. It fails only when a pinned TLS
// certificate cannot be loaded.
func NewLND(host, macaroonHex string, options ...Option) (*LND, error) {
	s := newSettings(host, options...)

	if s.tlsCertPath != "" && !s.customClient {
		pem, err := os.ReadFile(s.tlsCertPath)
		if err != nil {
			return nil, fmt.Errorf("read LND TLS cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", s.tlsCertPath)
		}
		s.httpClient = &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{RootCAs: pool},
			},
		}
	}

	return &LND{
		host:        s.baseURL,
		macaroonHex: macaroonHex,
		httpClient:  s.httpClient,
	}, nil
}

// Name identifies the backend.
func (w *LND) Name() string { return backendLND }

// lndPaymentState is one update from the router stream, either nested
// under "result" or flat depending on the proxy in front of the node.
type lndPaymentState struct {
	Status          string `json:"status"`
	PaymentPreimage string `json:"payment_preimage"`
	FailureReason   string `json:"failure_reason"`
	ValueSat        string `json:"value_sat"`
}

// PayInvoice implements l402.Wallet.
func (w *LND) PayInvoice(ctx context.Context, invoice string) (*l402.Payment, error) {
	body := map[string]any{
		"payment_request": invoice,
		"timeout_seconds": 60,
		"fee_limit_sat":   100,
	}
	resp, err := doJSON(ctx, w.httpClient, http.MethodPost, w.host+"/v2/router/send", w.header(), body)
	if err != nil {
		return nil, payError(backendLND, invoice, fmt.Sprintf("LND connection error: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, payError(backendLND, invoice,
			fmt.Sprintf("LND returned %d: %s", resp.StatusCode, snippet(resp.Body)), nil)
	}

	// The endpoint streams newline-delimited JSON updates; the last
	// parseable one carries the terminal payment state.
	var state *lndPaymentState
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if parsed := parseLNDUpdate(line); parsed != nil {
			state = parsed
		}
	}
	if state == nil {
		return nil, payError(backendLND, invoice, "No response from LND router", nil)
	}

	switch state.Status {
	case "SUCCEEDED":
		if state.PaymentPreimage == "" {
			return nil, payError(backendLND, invoice, "LND payment succeeded but no preimage returned", nil)
		}
		return &l402.Payment{
			Preimage:   normalizePreimage(state.PaymentPreimage),
			AmountSats: parseSats(state.ValueSat),
		}, nil
	case "FAILED":
		reason := state.FailureReason
		if reason == "" {
			reason = "unknown"
		}
		return nil, payError(backendLND, invoice, fmt.Sprintf("LND payment failed: %s", reason), nil)
	default:
		return nil, payError(backendLND, invoice, fmt.Sprintf("LND unexpected status: %s", state.Status), nil)
	}
}

func (w *LND) header() http.Header {
	h := http.Header{}
	h.Set("Grpc-Metadata-macaroon", w.macaroonHex)
	return h
}

// parseLNDUpdate decodes one stream line, tolerating both the wrapped
// and the flat result shape. Unparseable lines yield nil.
func parseLNDUpdate(line string) *lndPaymentState {
	var wrapped struct {
		Result *lndPaymentState `json:"result"`
	}
	if err := json.Unmarshal([]byte(line), &wrapped); err == nil && wrapped.Result != nil {
		return wrapped.Result
	}

	var flat lndPaymentState
	if err := json.Unmarshal([]byte(line), &flat); err == nil && flat.Status != "" {
		return &flat
	}
	return nil
}

// normalizePreimage converts LND's base64 preimage encoding to hex,
// passing already-hex values through.
func normalizePreimage(preimage string) string {
	if b, err := base64.StdEncoding.DecodeString(preimage); err == nil {
		return hex.EncodeToString(b)
	}
	return preimage
}

// parseSats reads LND's string-encoded sat amounts, zero when absent.
func parseSats(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
