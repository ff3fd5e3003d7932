package wallet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	l402 "github.com/refined-element/l402-requests"
	"github.com/refined-element/l402-requests/config"
)

// clearWalletEnv blanks every credential variable so ambient shell
// state cannot leak into detection tests.
func clearWalletEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LND_REST_HOST", "LND_MACAROON_HEX", "LND_TLS_CERT_PATH",
		"STRIKE_API_KEY", "OPENNODE_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestDetectFromEnvStrike(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("STRIKE_API_KEY", "sk-live-123")

	w, err := DetectFrom(config.Default())
	if err != nil {
		t.Fatalf("DetectFrom failed: %v", err)
	}
	strike, ok := w.(*Strike)
	if !ok {
		t.Fatalf("Expected *Strike, got %T", w)
	}
	if strike.apiKey != "sk-live-123" {
		t.Errorf("Expected env API key, got '%s'", strike.apiKey)
	}
}

func TestDetectPrefersLNDOverStrike(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("LND_REST_HOST", "https://localhost:8080")
	t.Setenv("LND_MACAROON_HEX", "deadbeef")
	t.Setenv("STRIKE_API_KEY", "sk-live-123")

	w, err := DetectFrom(config.Default())
	if err != nil {
		t.Fatalf("DetectFrom failed: %v", err)
	}
	if _, ok := w.(*LND); !ok {
		t.Fatalf("Expected *LND to win default priority, got %T", w)
	}
}

func TestDetectSkipsPlaceholderValues(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("STRIKE_API_KEY", "${STRIKE_API_KEY}")
	t.Setenv("OPENNODE_API_KEY", "on-key-456")

	w, err := DetectFrom(config.Default())
	if err != nil {
		t.Fatalf("DetectFrom failed: %v", err)
	}
	if _, ok := w.(*OpenNode); !ok {
		t.Fatalf("Expected placeholder to be skipped and *OpenNode found, got %T", w)
	}
}

func TestDetectNoWallet(t *testing.T) {
	clearWalletEnv(t)

	_, err := DetectFrom(config.Default())
	if !errors.Is(err, l402.ErrNoWallet) {
		t.Errorf("Expected ErrNoWallet, got %v", err)
	}
}

func TestDetectLNDRequiresHostAndMacaroon(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("LND_REST_HOST", "https://localhost:8080")

	_, err := DetectFrom(config.Default())
	if !errors.Is(err, l402.ErrNoWallet) {
		t.Errorf("Expected ErrNoWallet without macaroon, got %v", err)
	}
}

func TestDetectFromConfigValues(t *testing.T) {
	clearWalletEnv(t)

	cfg := config.Default()
	cfg.Wallet.StrikeAPIKey = "cfg-key"

	w, err := DetectFrom(cfg)
	if err != nil {
		t.Fatalf("DetectFrom failed: %v", err)
	}
	strike, ok := w.(*Strike)
	if !ok {
		t.Fatalf("Expected *Strike from config, got %T", w)
	}
	if strike.apiKey != "cfg-key" {
		t.Errorf("Expected config API key, got '%s'", strike.apiKey)
	}
}

func TestDetectEnvWinsOverConfig(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("STRIKE_API_KEY", "env-key")

	cfg := config.Default()
	cfg.Wallet.StrikeAPIKey = "cfg-key"

	w, err := DetectFrom(cfg)
	if err != nil {
		t.Fatalf("DetectFrom failed: %v", err)
	}
	if w.(*Strike).apiKey != "env-key" {
		t.Errorf("Expected env to win over config, got '%s'", w.(*Strike).apiKey)
	}
}

func TestDetectPriorityFromConfig(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("STRIKE_API_KEY", "sk-live-123")
	t.Setenv("OPENNODE_API_KEY", "on-key-456")

	cfg := config.Default()
	cfg.Wallet.Priority = "opennode"

	w, err := DetectFrom(cfg)
	if err != nil {
		t.Fatalf("DetectFrom failed: %v", err)
	}
	if _, ok := w.(*OpenNode); !ok {
		t.Fatalf("Expected priority to pick *OpenNode, got %T", w)
	}
}

func TestDetectUnknownPriorityIgnored(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("STRIKE_API_KEY", "sk-live-123")

	cfg := config.Default()
	cfg.Wallet.Priority = "nwc"

	w, err := DetectFrom(cfg)
	if err != nil {
		t.Fatalf("DetectFrom failed: %v", err)
	}
	if _, ok := w.(*Strike); !ok {
		t.Fatalf("Expected default order for unknown priority, got %T", w)
	}
}

func TestDetectNilConfig(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("OPENNODE_API_KEY", "on-key-456")

	w, err := DetectFrom(nil)
	if err != nil {
		t.Fatalf("DetectFrom failed: %v", err)
	}
	if _, ok := w.(*OpenNode); !ok {
		t.Fatalf("Expected *OpenNode, got %T", w)
	}
}

func TestDetectReadsConfigFile(t *testing.T) {
	clearWalletEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".l402")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "wallet:\n  opennode_api_key: on-from-file\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := Detect()
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if _, ok := w.(*OpenNode); !ok {
		t.Fatalf("Expected *OpenNode from config file, got %T", w)
	}
}

func TestBuildNamedBackend(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("STRIKE_API_KEY", "sk-live-123")
	t.Setenv("OPENNODE_API_KEY", "on-key-456")

	w, err := Build("opennode", config.Default())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, ok := w.(*OpenNode); !ok {
		t.Fatalf("Expected *OpenNode, got %T", w)
	}
}

func TestBuildUnknownBackend(t *testing.T) {
	clearWalletEnv(t)

	_, err := Build("nwc", config.Default())
	if err == nil || errors.Is(err, l402.ErrNoWallet) {
		t.Errorf("Expected unknown backend error, got %v", err)
	}
}

func TestBuildUnconfiguredBackend(t *testing.T) {
	clearWalletEnv(t)

	_, err := Build("strike", config.Default())
	if !errors.Is(err, l402.ErrNoWallet) {
		t.Errorf("Expected ErrNoWallet for missing credentials, got %v", err)
	}
}

func TestDetectOrder(t *testing.T) {
	tests := []struct {
		preferred string
		first     string
	}{
		{"", "lnd"},
		{"lnd", "lnd"},
		{"strike", "strike"},
		{"OPENNODE", "opennode"},
		{" strike ", "strike"},
		{"bogus", "lnd"},
	}
	for _, test := range tests {
		order := detectOrder(test.preferred)
		if len(order) != 3 {
			t.Errorf("Preferred '%s': expected 3 backends, got %v", test.preferred, order)
		}
		if order[0] != test.first {
			t.Errorf("Preferred '%s': expected '%s' first, got %v", test.preferred, test.first, order)
		}
	}
}
