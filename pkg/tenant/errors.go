package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a tenant cannot be found in
	// cache or storage for an explicitly supplied key.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidTenantKey is returned when an inbound tenant key is
	// malformed and cannot be interpreted as an id or a code.
	ErrInvalidTenantKey = errors.New("invalid tenant key")

	// ErrTenantInactive is returned when the resolved tenant is
	// suspended or deleted.
	ErrTenantInactive = errors.New("tenant is not active")

	// ErrMissingTenant is returned when strict mode requires a resolved
	// tenant identity and the request carries none.
	ErrMissingTenant = errors.New("tenant identity is required")

	// ErrNoTenantInContext is returned when a caller requires a tenant
	// in the request context and none is present.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrResolutionMissing is returned by the isolation gate when it
	// runs on a request that never went through the resolver. This is
	// a wiring bug, not a client error.
	ErrResolutionMissing = errors.New("tenant resolution missing from request context")

	// ErrResolutionTimeout is returned when the storage lookup behind a
	// cache miss exceeds its deadline.
	ErrResolutionTimeout = errors.New("tenant resolution timed out")

	// ErrDirectoryClosed is returned when resolving through a closed
	// directory.
	ErrDirectoryClosed = errors.New("tenant directory is closed")
)
