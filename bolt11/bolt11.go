// Package bolt11 extracts the amount encoded in a BOLT11 payment request.
//
// Only the human readable part is parsed: ln{network}{amount}{multiplier}1{data}.
// No signature or tagged-field validation is performed, so the package needs
// no Lightning libraries and accepts invoices from any network.
package bolt11

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNotInvoice is returned for strings that are not BOLT11 payment requests.
	ErrNotInvoice = errors.New("bolt11: not a payment request")

	// ErrNoAmount is returned for any-amount invoices with no encoded amount.
	ErrNoAmount = errors.New("bolt11: no amount encoded")
)

// ln + network + optional amount + optional multiplier + "1" separator
var hrpRe = regexp.MustCompile(`^ln([a-z]+?)(\d+)?([munp])?1`)

const satsPerBTC = 100_000_000

// AmountSats returns the invoice amount in satoshis.
//
// Multipliers m/u/n/p scale the amount by 1e-3 .. 1e-12 BTC; a bare amount
// is whole BTC. Sub-satoshi amounts truncate toward zero, so a pico-scale
// invoice can legitimately decode to 0 sats.
func AmountSats(invoice string) (int64, error) {
	if invoice == "" {
		return 0, ErrNotInvoice
	}

	m := hrpRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(invoice)))
	if m == nil {
		return 0, ErrNotInvoice
	}

	amountStr, multiplier := m[2], m[3]
	if amountStr == "" {
		return 0, ErrNoAmount
	}

	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		return 0, ErrNotInvoice
	}

	switch multiplier {
	case "":
		if amount > math.MaxInt64/satsPerBTC {
			return 0, ErrNotInvoice
		}
		return amount * satsPerBTC, nil
	case "m":
		if amount > math.MaxInt64/(satsPerBTC/1_000) {
			return 0, ErrNotInvoice
		}
		return amount * (satsPerBTC / 1_000), nil
	case "u":
		if amount > math.MaxInt64/(satsPerBTC/1_000_000) {
			return 0, ErrNotInvoice
		}
		return amount * (satsPerBTC / 1_000_000), nil
	case "n":
		return amount / 10, nil
	case "p":
		return amount / 10_000, nil
	}

	return 0, ErrNotInvoice
}
