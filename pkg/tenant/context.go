package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Private context key types prevent collisions with other packages.
type (
	tenantCtxKey     struct{}
	resolutionCtxKey struct{}
	publicCtxKey     struct{}
)

// WithTenant adds a resolved tenant to the context.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, t)
}

// FromContext retrieves the tenant from the context.
// Returns nil, false if no tenant was resolved.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(tenantCtxKey{}).(*Tenant)
	return t, ok && t != nil
}

// IDFromContext retrieves just the tenant ID from the context.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	t, ok := FromContext(ctx)
	if !ok {
		return uuid.UUID{}, false
	}
	return t.ID, true
}

// MustFromContext retrieves the tenant from the context and panics if
// none is present. Use only in handlers mounted behind RequireTenant.
func MustFromContext(ctx context.Context) *Tenant {
	t, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return t
}

// WithResolution stores the per-request resolution outcome.
func WithResolution(ctx context.Context, res *Resolution) context.Context {
	return context.WithValue(ctx, resolutionCtxKey{}, res)
}

// ResolutionFromContext retrieves the per-request resolution outcome.
// A missing resolution means the resolver middleware never ran for
// this request.
func ResolutionFromContext(ctx context.Context) (*Resolution, bool) {
	res, ok := ctx.Value(resolutionCtxKey{}).(*Resolution)
	return res, ok && res != nil
}

// MarkPublic flags the request as belonging to a public route. The
// isolation gate admits public requests even without a resolved
// tenant.
func MarkPublic(ctx context.Context) context.Context {
	return context.WithValue(ctx, publicCtxKey{}, true)
}

// IsPublic reports whether the request was flagged public by the
// routing layer.
func IsPublic(ctx context.Context) bool {
	public, ok := ctx.Value(publicCtxKey{}).(bool)
	return ok && public
}

// LoggerExtractor returns a logger context extractor that annotates
// every log record with the resolved tenant id.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
