package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	l402 "github.com/refined-element/l402-requests"
)

// DefaultOpenNodeURL is the public OpenNode API endpoint.
const DefaultOpenNodeURL = "https://api.opennode.com"

// OpenNode pays invoices through the OpenNode withdrawal API.
//
// OpenNode usually omits the preimage from withdrawal responses. A
// payment without a preimage cannot produce an L402 credential, so this
// adapter reports such payments as failed; prefer Strike or LND.
type OpenNode struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenNode builds an OpenNode adapter around an API key with
// withdrawal permission.
func NewOpenNode(apiKey string, options ...Option) *OpenNode {
	s := newSettings(DefaultOpenNodeURL, options...)
	return &OpenNode{
		apiKey:     apiKey,
		baseURL:    s.baseURL,
		httpClient: s.httpClient,
	}
}

// Name identifies the backend.
func (w *OpenNode) Name() string { return backendOpenNode }

type openNodeWithdrawal struct {
	Preimage        string `json:"preimage"`
	PaymentPreimage string `json:"payment_preimage"`
	Amount          int64  `json:"amount"`
}

// PayInvoice implements l402.Wallet.
func (w *OpenNode) PayInvoice(ctx context.Context, invoice string) (*l402.Payment, error) {
	body := map[string]string{
		"type":    "ln",
		"address": invoice,
	}
	resp, err := doJSON(ctx, w.httpClient, http.MethodPost, w.baseURL+"/v2/withdrawals", w.header(), body)
	if err != nil {
		return nil, payError(backendOpenNode, invoice, fmt.Sprintf("OpenNode connection error: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, payError(backendOpenNode, invoice,
			fmt.Sprintf("OpenNode withdrawal failed (%d): %s", resp.StatusCode, snippet(resp.Body)), nil)
	}

	var withdrawal struct {
		Data *openNodeWithdrawal `json:"data"`
		openNodeWithdrawal
	}
	if err := json.NewDecoder(resp.Body).Decode(&withdrawal); err != nil {
		return nil, payError(backendOpenNode, invoice, fmt.Sprintf("OpenNode response unreadable: %v", err), err)
	}
	// Responses normally wrap the withdrawal in "data"; tolerate the
	// flat shape too.
	result := withdrawal.openNodeWithdrawal
	if withdrawal.Data != nil {
		result = *withdrawal.Data
	}

	preimage := result.Preimage
	if preimage == "" {
		preimage = result.PaymentPreimage
	}
	if preimage == "" {
		return nil, payError(backendOpenNode, invoice,
			"OpenNode payment succeeded but no preimage returned. OpenNode does not support preimage extraction; for L402, use Strike or LND.", nil)
	}

	return &l402.Payment{
		Preimage:   preimage,
		AmountSats: result.Amount,
	}, nil
}

func (w *OpenNode) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", w.apiKey)
	return h
}
