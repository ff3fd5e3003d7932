package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	l402 "github.com/refined-element/l402-requests"
	"github.com/refined-element/l402-requests/config"
	"github.com/refined-element/l402-requests/wallet"
)

func newFetchCmd() *cobra.Command {
	var (
		configPath    string
		method        string
		headers       []string
		data          string
		output        string
		walletName    string
		timeout       time.Duration
		retryCeiling  int
		maxPerPayment int64
		maxPerHour    int64
		maxPerDay     int64
		allowDomains  []string
		noBudget      bool
		showSpending  bool
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch a URL, automatically paying any L402 challenge within budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			limits := cfg.Budget.Limits()
			if flags.Changed("max-per-payment") {
				limits.MaxPerPayment = maxPerPayment
			}
			if flags.Changed("max-per-hour") {
				limits.MaxPerHour = maxPerHour
			}
			if flags.Changed("max-per-day") {
				limits.MaxPerDay = maxPerDay
			}
			if len(allowDomains) > 0 {
				limits.AllowedDomains = allowDomains
			}
			if !flags.Changed("timeout") && cfg.Client.Timeout > 0 {
				timeout = cfg.Client.Timeout
			}
			if !flags.Changed("retry-ceiling") {
				retryCeiling = cfg.Client.RetryCeiling
			}

			w, err := resolveWallet(walletName, cfg)
			if err != nil {
				return err
			}

			options := []l402.Option{
				l402.WithTimeout(timeout),
				l402.WithRetryCeiling(retryCeiling),
			}
			if w != nil {
				options = append(options, l402.WithWallet(w))
			}
			if noBudget {
				options = append(options, l402.WithoutBudget())
			} else {
				options = append(options, l402.WithLimits(limits))
			}
			if verbose {
				options = append(options, l402.WithSimpleLogger())
			}

			client := l402.New(options...)
			if err := client.ValidationError(); err != nil {
				return err
			}

			req, err := buildRequest(cmd.Context(), method, args[0], headers, data)
			if err != nil {
				return err
			}

			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				out = f
			}
			if _, err := io.Copy(out, resp.Body); err != nil {
				return err
			}

			if resp.StatusCode >= 400 {
				fmt.Fprintf(os.Stderr, "l402: server answered %s\n", resp.Status)
			}
			if showSpending {
				fmt.Fprint(os.Stderr, formatSpending(client.SpendingLog()))
			}
			return nil
		},
	}

	defaults := config.Default()
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default ~/.l402/config.yaml)")
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header as 'Name: value' (repeatable)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the response body to a file instead of stdout")
	cmd.Flags().StringVar(&walletName, "wallet", "", "wallet backend: lnd, strike or opennode (default auto-detect)")
	cmd.Flags().DurationVar(&timeout, "timeout", defaults.Client.Timeout, "request timeout")
	cmd.Flags().IntVar(&retryCeiling, "retry-ceiling", defaults.Client.RetryCeiling, "extra payment attempts after a rejected credential")
	cmd.Flags().Int64Var(&maxPerPayment, "max-per-payment", defaults.Budget.MaxPerPayment, "largest single payment in sats (0 = unlimited)")
	cmd.Flags().Int64Var(&maxPerHour, "max-per-hour", defaults.Budget.MaxPerHour, "rolling one-hour spend cap in sats (0 = unlimited)")
	cmd.Flags().Int64Var(&maxPerDay, "max-per-day", defaults.Budget.MaxPerDay, "rolling 24-hour spend cap in sats (0 = unlimited)")
	cmd.Flags().StringArrayVar(&allowDomains, "allow-domain", nil, "domain allowed to charge payments (repeatable)")
	cmd.Flags().BoolVar(&noBudget, "no-budget", false, "disable all spending limits")
	cmd.Flags().BoolVar(&showSpending, "show-spending", false, "print a spending summary to stderr after the request")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log the payment flow to stderr")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// resolveWallet builds the named backend, or auto-detects one. A missing
// wallet is not fatal here: free endpoints need none, and a payment
// challenge will surface the error with context.
func resolveWallet(name string, cfg *config.Config) (l402.Wallet, error) {
	if name != "" {
		return wallet.Build(name, cfg)
	}
	w, err := wallet.DetectFrom(cfg)
	if errors.Is(err, l402.ErrNoWallet) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func buildRequest(ctx context.Context, method, url string, headers []string, data string) (*http.Request, error) {
	var body io.Reader
	if data != "" {
		body = strings.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, body)
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q (want 'Name: value')", h)
		}
		req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	if data != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

func formatSpending(log *l402.SpendingLog) string {
	perDomain := log.ByDomain()
	if len(perDomain) == 0 {
		return "No payments made.\n"
	}

	domains := make([]string, 0, len(perDomain))
	for domain := range perDomain {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	payments := make(map[string]int)
	for _, rec := range log.Records() {
		if rec.Success {
			payments[rec.Domain]++
		}
	}

	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "%-30s %10s %10s\n", "DOMAIN", "PAYMENTS", "SATS")
	b.WriteString(strings.Repeat("-", 52) + "\n")

	var totalPayments int
	for _, domain := range domains {
		fmt.Fprintf(&b, "%-30s %10d %10d\n", domain, payments[domain], perDomain[domain])
		totalPayments += payments[domain]
	}
	b.WriteString(strings.Repeat("-", 52) + "\n")
	fmt.Fprintf(&b, "%-30s %10d %10d\n", "TOTAL", totalPayments, log.TotalSpent())
	return b.String()
}
