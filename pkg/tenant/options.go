package tenant

import (
	"errors"
	"net/http"
)

// ErrorHandler renders resolution and gate failures to the client.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// config holds middleware configuration shared by Resolve and
// RequireTenant.
type config struct {
	defaultKey    string
	strict        bool
	requireActive bool
	telemetry     *Telemetry
	errorHandler  ErrorHandler
	skipPaths     []string
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		errorHandler:  DefaultErrorHandler,
		requireActive: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures the tenant middleware.
type Option func(*config)

// WithDefaultTenant sets the fallback tenant key applied when a request
// carries no explicit key. An empty value disables the fallback.
func WithDefaultTenant(key string) Option {
	return func(c *config) {
		c.defaultKey = key
	}
}

// WithStrictMode requires every non-public request to carry a
// resolvable tenant identity.
func WithStrictMode(strict bool) Option {
	return func(c *config) {
		c.strict = strict
	}
}

// WithRequireActive rejects suspended and deleted tenants. Enabled by
// default.
func WithRequireActive(require bool) Option {
	return func(c *config) {
		c.requireActive = require
	}
}

// WithTelemetry sets the recorder for fallback and violation events.
func WithTelemetry(t *Telemetry) Option {
	return func(c *config) {
		c.telemetry = t
	}
}

// WithErrorHandler sets a custom error renderer.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets path prefixes that bypass tenant resolution
// entirely (health checks, metrics scrapes).
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

// DefaultErrorHandler maps resolution-layer errors onto HTTP status
// codes. Raw storage errors are never echoed to the client.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTenantNotFound):
		http.Error(w, "Tenant not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidTenantKey):
		http.Error(w, "Invalid tenant key", http.StatusBadRequest)
	case errors.Is(err, ErrMissingTenant):
		http.Error(w, "Tenant identity is required", http.StatusBadRequest)
	case errors.Is(err, ErrTenantInactive):
		http.Error(w, "Tenant is not active", http.StatusForbidden)
	case errors.Is(err, ErrResolutionTimeout):
		http.Error(w, "Tenant resolution timed out", http.StatusServiceUnavailable)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
