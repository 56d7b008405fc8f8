// Package tenant implements the multi-tenancy context layer: per-request
// tenant resolution, a process-local tenant directory with dual-keyed TTL
// caching, an isolation gate for strict-mode enforcement, and audit
// telemetry for fallback and violation events.
//
// # Architecture
//
// The package is built around four cooperating pieces:
//
//  1. Resolvers extract a candidate tenant key from HTTP requests
//     (headers by default, composable for future sources).
//  2. The Directory caches tenant snapshots under both alias keys
//     (stable id and short code) and loads through to a Provider on
//     miss, coalescing concurrent misses into one storage query.
//  3. Middleware orchestrates resolution, the fallback policy, and
//     context propagation, producing one Resolution per request.
//  4. The isolation gate (RequireTenant / Admit) rejects non-public
//     requests without a resolved identity when strict mode is on.
//
// Ordering is load-bearing: RequireTenant reads the Resolution that
// Resolve placed in the context and must always be mounted after it.
//
// # Usage
//
//	directory := tenant.NewDirectory(provider, tenant.WithTTL(5*time.Minute))
//	defer directory.Close()
//
//	telemetry := tenant.NewTelemetry(log)
//
//	r := chi.NewRouter()
//	r.Use(tenant.Resolve(tenant.NewHeaderResolver(), directory,
//		tenant.WithDefaultTenant("default"),
//		tenant.WithStrictMode(true),
//		tenant.WithTelemetry(telemetry),
//	))
//	r.Use(tenant.RequireTenant(tenant.WithStrictMode(true), tenant.WithTelemetry(telemetry)))
//
//	r.Get("/ponds", func(w http.ResponseWriter, r *http.Request) {
//		t := tenant.MustFromContext(r.Context())
//		// scoped data access through pg.Binder.WithTenantSession(ctx, t.ID, ...)
//	})
//
// Public routes stay reachable without a tenant:
//
//	r.Group(func(pub chi.Router) {
//		pub.Use(tenant.Public)
//		pub.Get("/health", healthHandler)
//	})
//
// # Session binding
//
// Resolution establishes who the request belongs to; the pg package's
// Binder attaches that identity to the exact database connection that
// executes the request's queries, so server-side row-level predicates
// evaluate against the correct tenant even under connection pooling.
package tenant
