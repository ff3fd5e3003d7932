// Package l402 provides an HTTP client that pays its own way through
// 402 Payment Required responses:
//
//   - L402/LSAT challenge parsing from WWW-Authenticate headers
//   - Pluggable Lightning wallets (Strike, LND, OpenNode adapters included)
//   - Spending budgets: per-payment, rolling-hour and rolling-day caps,
//     domain allowlist, all checked atomically before any payment
//   - Credential caching per host with payment coalescing (concurrent
//     requests to one host merge into a single payment)
//   - Append-only spending log with aggregate queries and JSON export
//   - Synchronous and future-based asynchronous clients over shared state
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Never pay without an explicit budget approval for that exact amount
//   - Safe concurrent use of a single *Client instance
//   - Extensibility via user supplied middleware, wallet & metrics
//
// Typical usage:
//
//	client := l402.New(
//	    l402.WithWallet(wallet),
//	    l402.WithLimits(l402.Limits{MaxPerPayment: 100, MaxPerHour: 500, MaxPerDay: 2000}),
//	    l402.WithAllowedDomains("api.example.com"),
//	)
//	resp, err := client.Do(req)
//
// A 402 from an allowed domain is paid and retried transparently; the
// caller sees the final response. Budget rejections, malformed challenges,
// failed payments and exhausted retries surface as this package's typed
// errors before any further request is sent. Transport errors pass through
// unwrapped.
package l402
