package l402

import (
	"fmt"
	"net/http"
	"time"
)

// WithWallet sets the payment backend. Without one, requests still work
// until a 402 must actually be paid, at which point ErrNoWallet is returned.
func WithWallet(w Wallet) Option {
	return func(c *Client) {
		c.wallet = w
	}
}

// WithLimits replaces the default budget limits.
func WithLimits(limits Limits) Option {
	return func(c *Client) {
		c.limits = limits
	}
}

// WithoutBudget disables all spending limits. Payments are still logged.
func WithoutBudget() Option {
	return func(c *Client) {
		c.limits = Limits{}
	}
}

// WithAllowedDomains restricts payments to the given domains, keeping the
// other default limits intact.
func WithAllowedDomains(domains ...string) Option {
	return func(c *Client) {
		c.limits.AllowedDomains = domains
	}
}

// WithSpendingLog shares a spending log between clients.
func WithSpendingLog(log *SpendingLog) Option {
	return func(c *Client) {
		c.spending = log
	}
}

// WithCredentialCache shares a credential cache between clients.
func WithCredentialCache(cache *CredentialCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithCredentialTTL expires cached credentials after ttl. Zero, the
// default, keeps credentials until a server rejects them.
func WithCredentialTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.credentialTTL = ttl
	}
}

// WithRetryCeiling bounds how many additional payment cycles a single
// request may attempt after a paid credential is rejected with another 402.
func WithRetryCeiling(n int) Option {
	return func(c *Client) {
		c.retryCeiling = n
	}
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
		// Update timeout if it was set
		if c.timeout != 0 {
			c.httpClient.Timeout = c.timeout
		}
	}
}

// WithMiddleware adds middleware to the client
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a simple console logger
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var problems []string

	// Validate each configuration section
	problems = append(problems, c.validateHTTPClientConfig()...)
	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateBudgetConfig()...)
	problems = append(problems, c.validateCacheConfig()...)
	problems = append(problems, c.validateDebugConfig()...)
	problems = append(problems, c.validateMiddlewareConfig()...)
	problems = append(problems, c.validateExtremeValues()...)

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

// validateHTTPClientConfig validates HTTP client configuration
func (c *Client) validateHTTPClientConfig() []string {
	var problems []string

	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}

	return problems
}

// validateRetryConfig validates retry-related configuration
func (c *Client) validateRetryConfig() []string {
	var problems []string

	if c.retryCeiling < 0 {
		problems = append(problems, "retryCeiling must be non-negative")
	}

	if c.timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}

	return problems
}

// validateBudgetConfig validates spending limit configuration
func (c *Client) validateBudgetConfig() []string {
	var problems []string

	if c.limits.MaxPerPayment < 0 {
		problems = append(problems, "maxPerPayment must be non-negative")
	}
	if c.limits.MaxPerHour < 0 {
		problems = append(problems, "maxPerHour must be non-negative")
	}
	if c.limits.MaxPerDay < 0 {
		problems = append(problems, "maxPerDay must be non-negative")
	}
	for i, d := range c.limits.AllowedDomains {
		if d == "" {
			problems = append(problems, fmt.Sprintf("allowedDomains[%d] cannot be empty", i))
		}
	}

	return problems
}

// validateCacheConfig validates credential cache configuration
func (c *Client) validateCacheConfig() []string {
	var problems []string

	if c.credentialTTL < 0 {
		problems = append(problems, "credentialTTL must be non-negative")
	}

	return problems
}

// validateDebugConfig validates debug configuration
func (c *Client) validateDebugConfig() []string {
	var problems []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			problems = append(problems, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			problems = append(problems, "logger must be set when debug is enabled")
		}
	}

	return problems
}

// validateMiddlewareConfig validates middleware configuration
func (c *Client) validateMiddlewareConfig() []string {
	var problems []string

	for i, middleware := range c.middleware {
		if middleware == nil {
			problems = append(problems, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	return problems
}

// validateExtremeValues validates that configuration values are within reasonable bounds
func (c *Client) validateExtremeValues() []string {
	var problems []string

	if c.retryCeiling > 10 {
		problems = append(problems, "retryCeiling > 10 may cause excessive spending on a misbehaving host")
	}

	if c.timeout > 10*time.Minute {
		problems = append(problems, "timeout > 10m may cause requests to hang for too long")
	}

	if c.limits.MaxPerHour > 0 && c.limits.MaxPerDay > 0 && c.limits.MaxPerDay < c.limits.MaxPerHour {
		problems = append(problems, "maxPerDay below maxPerHour makes the hourly cap unreachable")
	}

	return problems
}
