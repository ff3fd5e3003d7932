package wallet

import (
	"fmt"
	"os"
	"strings"

	l402 "github.com/refined-element/l402-requests"
	"github.com/refined-element/l402-requests/config"
)

// Detect finds a configured Lightning backend from environment
// variables and the config file at config.DefaultPath. Environment
// variables win over config values, and values that are unexpanded
// shell placeholders such as "${STRIKE_API_KEY}" are skipped. The
// default priority is LND > Strike > OpenNode; a wallet priority in the
// config moves that backend to the front.
//
// Returns l402.ErrNoWallet when no backend has credentials.
func Detect() (l402.Wallet, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	return DetectFrom(cfg)
}

// DetectFrom is Detect against an explicit configuration, bypassing the
// config file lookup.
func DetectFrom(cfg *config.Config) (l402.Wallet, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	for _, name := range detectOrder(cfg.Wallet.Priority) {
		w, err := buildBackend(name, cfg)
		if err != nil {
			return nil, err
		}
		if w != nil {
			return w, nil
		}
	}
	return nil, l402.ErrNoWallet
}

// Build constructs one named backend ("lnd", "strike" or "opennode")
// from the environment and config, failing with l402.ErrNoWallet when
// its credentials are missing.
func Build(name string, cfg *config.Config) (l402.Wallet, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	normalized := strings.ToLower(strings.TrimSpace(name))
	switch normalized {
	case backendLND, backendStrike, backendOpenNode:
	default:
		return nil, fmt.Errorf("unknown wallet backend %q", name)
	}

	w, err := buildBackend(normalized, cfg)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("wallet %q has no credentials: %w", normalized, l402.ErrNoWallet)
	}
	return w, nil
}

// detectOrder returns the backend probe order with the preferred
// backend, when it names a known one, moved to the front.
func detectOrder(preferred string) []string {
	all := []string{backendLND, backendStrike, backendOpenNode}
	p := strings.ToLower(strings.TrimSpace(preferred))

	order := make([]string, 0, len(all))
	for _, name := range all {
		if name == p {
			order = append(order, name)
		}
	}
	for _, name := range all {
		if name != p {
			order = append(order, name)
		}
	}
	return order
}

// buildBackend constructs one backend when its credentials resolve,
// (nil, nil) when they do not.
func buildBackend(name string, cfg *config.Config) (l402.Wallet, error) {
	switch name {
	case backendLND:
		host := firstReal(os.Getenv("LND_REST_HOST"), cfg.Wallet.LND.Host)
		macaroon := firstReal(os.Getenv("LND_MACAROON_HEX"), cfg.Wallet.LND.MacaroonHex)
		if host == "" || macaroon == "" {
			return nil, nil
		}
		var options []Option
		if cert := firstReal(os.Getenv("LND_TLS_CERT_PATH"), cfg.Wallet.LND.TLSCertPath); cert != "" {
			options = append(options, WithTLSCert(cert))
		}
		return NewLND(host, macaroon, options...)

	case backendStrike:
		if key := firstReal(os.Getenv("STRIKE_API_KEY"), cfg.Wallet.StrikeAPIKey); key != "" {
			return NewStrike(key), nil
		}

	case backendOpenNode:
		if key := firstReal(os.Getenv("OPENNODE_API_KEY"), cfg.Wallet.OpenNodeAPIKey); key != "" {
			return NewOpenNode(key), nil
		}
	}
	return nil, nil
}

// firstReal returns the first value that is set and not an unexpanded
// placeholder.
func firstReal(values ...string) string {
	for _, v := range values {
		if v != "" && !strings.HasPrefix(v, "${") {
			return v
		}
	}
	return ""
}
