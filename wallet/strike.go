package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	l402 "github.com/refined-element/l402-requests"
)

// DefaultStrikeURL is the public Strike API endpoint.
const DefaultStrikeURL = "https://api.strike.me"

// Strike pays invoices through the Strike REST API. Strike returns the
// preimage on settled payments, which makes it a good fit for L402.
//
// Payment is a two-step flow: create a lightning payment quote, then
// execute it. The preimage normally arrives in the execute response;
// when it does not, the payment record is fetched once as a fallback.
type Strike struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewStrike builds a Strike adapter around an API key with payment scope.
func NewStrike(apiKey string, options ...Option) *Strike {
	s := newSettings(DefaultStrikeURL, options...)
	return &Strike{
		apiKey:     apiKey,
		baseURL:    s.baseURL,
		httpClient: s.httpClient,
	}
}

// Name identifies the backend.
func (w *Strike) Name() string { return backendStrike }

// strikePayment is the shape shared by the execute response and the
// payment record; preimage spelling varies across API versions.
type strikePayment struct {
	PaymentID      string `json:"paymentId"`
	PaymentQuoteID string `json:"paymentQuoteId"`
	Lightning      struct {
		PreImage string `json:"preImage"`
		Preimage string `json:"preimage"`
	} `json:"lightning"`
	Preimage string `json:"preimage"`
}

func (p *strikePayment) preimage() string {
	switch {
	case p.Lightning.PreImage != "":
		return p.Lightning.PreImage
	case p.Lightning.Preimage != "":
		return p.Lightning.Preimage
	default:
		return p.Preimage
	}
}

// PayInvoice implements l402.Wallet.
func (w *Strike) PayInvoice(ctx context.Context, invoice string) (*l402.Payment, error) {
	quoteID, err := w.createQuote(ctx, invoice)
	if err != nil {
		return nil, err
	}

	payment, err := w.executeQuote(ctx, invoice, quoteID)
	if err != nil {
		return nil, err
	}

	preimage := payment.preimage()
	if preimage == "" {
		// The payment may have settled with the preimage not yet in the
		// execute response; the payment record usually carries it.
		id := payment.PaymentID
		if id == "" {
			id = payment.PaymentQuoteID
		}
		if id != "" {
			preimage = w.fetchPreimage(ctx, id)
		}
	}
	if preimage == "" {
		return nil, payError(backendStrike, invoice,
			"Strike payment succeeded but no preimage returned. This may happen with older Strike API versions.", nil)
	}

	return &l402.Payment{Preimage: preimage}, nil
}

func (w *Strike) createQuote(ctx context.Context, invoice string) (string, error) {
	body := map[string]string{
		"lnInvoice":      invoice,
		"sourceCurrency": "BTC",
	}
	resp, err := doJSON(ctx, w.httpClient, http.MethodPost, w.baseURL+"/v1/payment-quotes/lightning", w.header(), body)
	if err != nil {
		return "", payError(backendStrike, invoice, fmt.Sprintf("Strike connection error: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", payError(backendStrike, invoice,
			fmt.Sprintf("Strike quote failed (%d): %s", resp.StatusCode, snippet(resp.Body)), nil)
	}

	var quote struct {
		PaymentQuoteID string `json:"paymentQuoteId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return "", payError(backendStrike, invoice, fmt.Sprintf("Strike quote unreadable: %v", err), err)
	}
	if quote.PaymentQuoteID == "" {
		return "", payError(backendStrike, invoice, "Strike quote missing paymentQuoteId", nil)
	}
	return quote.PaymentQuoteID, nil
}

func (w *Strike) executeQuote(ctx context.Context, invoice, quoteID string) (*strikePayment, error) {
	resp, err := doJSON(ctx, w.httpClient, http.MethodPatch, w.baseURL+"/v1/payment-quotes/"+quoteID+"/execute", w.header(), nil)
	if err != nil {
		return nil, payError(backendStrike, invoice, fmt.Sprintf("Strike execution error: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, payError(backendStrike, invoice,
			fmt.Sprintf("Strike execution failed (%d): %s", resp.StatusCode, snippet(resp.Body)), nil)
	}

	var payment strikePayment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, payError(backendStrike, invoice, fmt.Sprintf("Strike execution unreadable: %v", err), err)
	}
	return &payment, nil
}

// fetchPreimage is best effort; any failure simply yields an empty string.
func (w *Strike) fetchPreimage(ctx context.Context, paymentID string) string {
	resp, err := doJSON(ctx, w.httpClient, http.MethodGet, w.baseURL+"/v1/payments/"+paymentID, w.header(), nil)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}
	var payment strikePayment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return ""
	}
	if payment.Lightning.PreImage != "" {
		return payment.Lightning.PreImage
	}
	return payment.Lightning.Preimage
}

func (w *Strike) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+w.apiKey)
	return h
}
