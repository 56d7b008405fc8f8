package tenant

import (
	"errors"
	"fmt"
	"net/http"
)

// DefaultHeaders is the ordered set of headers probed for a tenant key,
// highest priority first.
var DefaultHeaders = []string{"X-Tenant-ID", "X-Tenant", "Tenant-ID"}

// Resolver extracts a candidate tenant key from an HTTP request.
// Returns the empty string when the request carries no key, and an
// error only when extraction itself fails.
type Resolver func(r *http.Request) (string, error)

// NewHeaderResolver returns a resolver that probes the given headers in
// order and returns the first non-empty value. With no arguments it
// uses DefaultHeaders. The ordering is part of the resolution contract:
// future sources (subdomain, path) must be appended, never interleaved.
func NewHeaderResolver(names ...string) Resolver {
	if len(names) == 0 {
		names = DefaultHeaders
	}
	return func(r *http.Request) (string, error) {
		for _, name := range names {
			if v := r.Header.Get(name); v != "" {
				return v, nil
			}
		}
		return "", nil
	}
}

// NewCompositeResolver tries each resolver in order and returns the
// first non-empty key. Extraction errors are collected and reported
// only if no resolver produced a key.
func NewCompositeResolver(resolvers ...Resolver) Resolver {
	return func(r *http.Request) (string, error) {
		var errs []error
		for _, resolve := range resolvers {
			key, err := resolve(r)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if key != "" {
				return key, nil
			}
		}
		if len(errs) > 0 {
			return "", fmt.Errorf("composite resolver: %w", errors.Join(errs...))
		}
		return "", nil
	}
}

// Resolution is the per-request outcome of tenant resolution. It is
// created once by the resolver middleware, consumed by the isolation
// gate and the session binder, and discarded at request end.
//
// Tenant is nil in two distinguishable situations: no key was supplied
// (Key is zero or UsedFallback is set) or a key was supplied that
// matched no tenant — the latter indicates a misconfigured caller and
// is surfaced as an error before the Resolution reaches handlers.
type Resolution struct {
	Key          Key
	Tenant       *Tenant
	UsedFallback bool
	Strict       bool
}

// Resolved reports whether a tenant identity was established.
func (r *Resolution) Resolved() bool {
	return r != nil && r.Tenant != nil
}
