package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Budget.MaxPerPayment != 1000 {
		t.Errorf("expected 1000 sats per payment, got %d", cfg.Budget.MaxPerPayment)
	}
	if cfg.Budget.MaxPerDay != 50000 {
		t.Errorf("expected 50000 sats per day, got %d", cfg.Budget.MaxPerDay)
	}
	if cfg.Client.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.Client.Timeout)
	}
	if cfg.Client.RetryCeiling != 2 {
		t.Errorf("expected retry ceiling 2, got %d", cfg.Client.RetryCeiling)
	}
	if cfg.Wallet.Priority != "" {
		t.Errorf("expected empty wallet priority, got %q", cfg.Wallet.Priority)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_STRIKE_KEY", "sk-test-123")

	content := `
wallet:
  priority: strike
  strike_api_key: ${TEST_STRIKE_KEY}
  lnd:
    host: https://localhost:8080
    macaroon_hex: deadbeef
budget:
  max_per_payment: 250
  max_per_hour: 2500
  allowed_domains:
    - api.example.com
    - data.example.com
client:
  timeout: 45s
  retry_ceiling: 1
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Wallet.Priority != "strike" {
		t.Errorf("expected strike priority, got %q", cfg.Wallet.Priority)
	}
	if cfg.Wallet.StrikeAPIKey != "sk-test-123" {
		t.Errorf("env var not expanded: got %q", cfg.Wallet.StrikeAPIKey)
	}
	if cfg.Wallet.LND.Host != "https://localhost:8080" {
		t.Errorf("unexpected lnd host %q", cfg.Wallet.LND.Host)
	}
	if cfg.Budget.MaxPerPayment != 250 {
		t.Errorf("expected 250 per payment, got %d", cfg.Budget.MaxPerPayment)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Budget.MaxPerDay != 50000 {
		t.Errorf("expected default 50000 per day, got %d", cfg.Budget.MaxPerDay)
	}
	if len(cfg.Budget.AllowedDomains) != 2 {
		t.Fatalf("expected 2 allowed domains, got %d", len(cfg.Budget.AllowedDomains))
	}
	if cfg.Client.Timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", cfg.Client.Timeout)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("wallet: [not, a, mapping"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoadDefaultWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Budget.MaxPerPayment != 1000 {
		t.Errorf("expected defaults, got per-payment %d", cfg.Budget.MaxPerPayment)
	}
}

func TestLoadDefaultReadsHomeFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".l402")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "budget:\n  max_per_payment: 42\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Budget.MaxPerPayment != 42 {
		t.Errorf("expected 42 from config file, got %d", cfg.Budget.MaxPerPayment)
	}
}

func TestBudgetConfigLimits(t *testing.T) {
	b := BudgetConfig{
		MaxPerPayment:  10,
		MaxPerHour:     20,
		MaxPerDay:      30,
		AllowedDomains: []string{"api.example.com"},
	}
	limits := b.Limits()
	if limits.MaxPerPayment != 10 || limits.MaxPerHour != 20 || limits.MaxPerDay != 30 {
		t.Errorf("limits not carried over: %+v", limits)
	}
	if len(limits.AllowedDomains) != 1 {
		t.Errorf("allowed domains not carried over: %v", limits.AllowedDomains)
	}
}
