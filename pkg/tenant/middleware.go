package tenant

import (
	"errors"
	"net/http"
	"strings"
)

// Resolve creates middleware that establishes the per-request tenant
// identity: it extracts a candidate key from the request, applies the
// fallback policy when no key is present, resolves the key through the
// directory, and stores the Resolution (and the tenant, when resolved)
// in the request context.
//
// A key that is present but matches no tenant is a client
// configuration error and is never silently replaced by the fallback
// tenant. A missing fallback tenant or a storage timeout in
// non-strict mode leaves the request unresolved; the isolation gate
// decides its fate.
func Resolve(resolver Resolver, directory *Directory, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			raw, err := resolver(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			// The fallback tenant exists for anonymous traffic in
			// non-strict mode and for public routes; applying it on a
			// strict private route would hollow out the isolation
			// gate.
			hadHeader := raw != ""
			usedFallback := false
			if raw == "" && cfg.defaultKey != "" && (!cfg.strict || IsPublic(r.Context())) {
				raw = cfg.defaultKey
				usedFallback = true
				cfg.telemetry.RecordFallback(r.Context(), FallbackEvent{
					Route:     r.URL.Path,
					Method:    r.Method,
					Public:    IsPublic(r.Context()),
					Strict:    cfg.strict,
					HadHeader: hadHeader,
					Key:       raw,
				})
			}

			res := &Resolution{UsedFallback: usedFallback, Strict: cfg.strict}

			if raw != "" {
				key, err := ParseKey(raw)
				switch {
				case err != nil && !usedFallback:
					cfg.errorHandler(w, r, err)
					return
				case err == nil:
					res.Key = key
					tenant, err := directory.Resolve(r.Context(), key)
					if !cfg.admitResolveOutcome(w, r, res, tenant, err) {
						return
					}
				}
				// A malformed configured fallback key leaves the
				// request unresolved instead of failing it.
			}

			ctx := WithResolution(r.Context(), res)
			if res.Tenant != nil {
				ctx = WithTenant(ctx, res.Tenant)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// admitResolveOutcome folds a directory outcome into the resolution,
// rendering an error response when the request must not proceed.
// Returns false when a response has been written.
func (cfg *config) admitResolveOutcome(w http.ResponseWriter, r *http.Request, res *Resolution, t *Tenant, err error) bool {
	switch {
	case err == nil:
		if cfg.requireActive && !t.Active() {
			cfg.errorHandler(w, r, ErrTenantInactive)
			return false
		}
		res.Tenant = t
		return true

	case errors.Is(err, ErrTenantNotFound):
		if res.UsedFallback {
			// The configured fallback tenant does not exist yet.
			// Proceed unresolved; the gate enforces strict mode.
			return true
		}
		cfg.errorHandler(w, r, err)
		return false

	case errors.Is(err, ErrResolutionTimeout):
		if !res.Strict {
			return true
		}
		cfg.errorHandler(w, r, err)
		return false

	default:
		cfg.errorHandler(w, r, err)
		return false
	}
}

// Admit decides whether a request may proceed past the isolation gate.
// Requests with a resolved tenant always pass. Unresolved requests
// pass on public routes and, outside strict mode, on private routes
// too — downstream handlers must then treat the tenant as unresolved.
func Admit(res *Resolution, routeIsPublic bool) error {
	if res == nil {
		return ErrResolutionMissing
	}
	if res.Resolved() || routeIsPublic {
		return nil
	}
	if res.Strict {
		return ErrMissingTenant
	}
	return nil
}

// RequireTenant creates the isolation gate middleware. It must be
// mounted after Resolve: it reads the Resolution that Resolve placed
// in the context and never re-derives the tenant key itself. A request
// that reaches the gate without a Resolution is rejected as a server
// wiring error.
func RequireTenant(opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := ResolutionFromContext(r.Context())
			if !ok {
				cfg.errorHandler(w, r, ErrResolutionMissing)
				return
			}

			public := IsPublic(r.Context())
			if err := Admit(res, public); err != nil {
				cfg.telemetry.RecordViolation(r.Context(), ViolationEvent{
					Route:  r.URL.Path,
					Method: r.Method,
					Public: public,
					Reason: err.Error(),
				})
				cfg.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Public marks every request passing through it as belonging to a
// public route. Mount it on subrouters that must remain reachable
// without a tenant identity even in strict mode.
func Public(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(MarkPublic(r.Context())))
	})
}
