package tenants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aquafarm/platform/pkg/tenant"
)

// ErrInvalidStatus is returned for status values outside the known set.
var ErrInvalidStatus = errors.New("invalid tenant status")

// Publisher broadcasts cache invalidations to peer instances. Nil
// publishers are allowed for single-instance deployments.
type Publisher interface {
	PublishInvalidation(ctx context.Context, key string) error
}

// Store is the persistence surface the service needs. *Repository is
// the production implementation.
type Store interface {
	tenant.Provider
	Create(ctx context.Context, code, name string) (*tenant.Tenant, error)
	List(ctx context.Context) ([]*tenant.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*tenant.Tenant, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
	EnsureDefault(ctx context.Context, code, name string) (*tenant.Tenant, error)
}

// Service wraps the repository with the cache-coherency duties of
// tenant administration: every mutation invalidates the local
// directory (both aliases) and broadcasts the invalidation so peer
// instances cannot serve stale snapshots past their TTL.
type Service struct {
	store     Store
	directory *tenant.Directory
	events    Publisher
	log       *slog.Logger
}

// NewService creates the tenant administration service.
func NewService(store Store, directory *tenant.Directory, events Publisher, log *slog.Logger) *Service {
	return &Service{store: store, directory: directory, events: events, log: log}
}

// Create registers a new tenant. The code must be shaped like a short
// code, never like a stable identifier, so resolution stays
// unambiguous.
func (s *Service) Create(ctx context.Context, code, name string) (*tenant.Tenant, error) {
	key, err := tenant.ParseKey(code)
	if err != nil {
		return nil, err
	}
	if key.IsID() {
		return nil, fmt.Errorf("%w: code must not be a uuid", tenant.ErrInvalidTenantKey)
	}

	t, err := s.store.Create(ctx, key.Code(), name)
	if err != nil {
		return nil, err
	}

	// A fresh code may already sit in peers' caches as a miss-adjacent
	// alias from a renamed tenant; broadcast keeps them honest.
	s.invalidate(ctx, t.Code)
	return t, nil
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.store.FindByID(ctx, id)
}

// List returns all tenants, newest first.
func (s *Service) List(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.store.List(ctx)
}

// Update applies field changes and invalidates every alias the tenant
// was reachable under, old code included, so a rename cannot be masked
// by a stale cache entry.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*tenant.Tenant, error) {
	if params.Status != nil && !validStatus(*params.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *params.Status)
	}
	if params.Code != nil {
		key, err := tenant.ParseKey(*params.Code)
		if err != nil {
			return nil, err
		}
		if key.IsID() {
			return nil, fmt.Errorf("%w: code must not be a uuid", tenant.ErrInvalidTenantKey)
		}
	}

	before, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	t, err := s.store.Update(ctx, id, params)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, before.Code, t.ID.String(), t.Code)
	return t, nil
}

// Delete soft-deletes the tenant and drops its cache aliases.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	t, err := s.store.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	s.invalidate(ctx, t.ID.String(), t.Code)
	return nil
}

// EnsureDefault guarantees the configured fallback tenant exists.
func (s *Service) EnsureDefault(ctx context.Context, code, name string) (*tenant.Tenant, error) {
	return s.store.EnsureDefault(ctx, code, name)
}

// invalidate drops local cache aliases and broadcasts the keys to
// peers. Broadcast failures are logged, never propagated: the local
// invalidation already happened and peers converge at TTL expiry.
func (s *Service) invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if s.directory != nil {
			s.directory.Invalidate(key)
		}
		if s.events == nil {
			continue
		}
		if err := s.events.PublishInvalidation(ctx, key); err != nil && s.log != nil {
			s.log.WarnContext(ctx, "failed to broadcast tenant invalidation",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}
}

func validStatus(s string) bool {
	switch s {
	case tenant.StatusActive, tenant.StatusSuspended, tenant.StatusDeleted:
		return true
	}
	return false
}
