package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant status values as stored in the tenants table.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"
)

// Tenant is an immutable snapshot of a tenant record. It carries the
// minimal information needed for request-scoped resolution and session
// binding. The storage layer owns the record; the directory never
// mutates a snapshot in place.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the tenant may serve requests.
func (t *Tenant) Active() bool {
	return t != nil && t.Status == StatusActive
}

// Provider loads tenant snapshots from persistent storage.
// The split into id and code lookups lets the directory pick the
// lookup order based on the shape of the resolution key.
type Provider interface {
	// FindByID retrieves a tenant by its stable identifier.
	// Returns ErrTenantNotFound if no tenant matches.
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindByCode retrieves a tenant by its short code.
	// The code comparison is case-insensitive; implementations receive
	// the code already lowercased. Returns ErrTenantNotFound if no
	// tenant matches.
	FindByCode(ctx context.Context, code string) (*Tenant, error)
}
