package tenants_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquafarm/platform/pkg/tenant"
	"github.com/aquafarm/platform/svc/tenants"
)

// fakeStore is an in-memory tenants.Store. It doubles as the
// tenant.Provider behind the directory under test, so cache coherency
// is observed end to end.
type fakeStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*tenant.Tenant
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[uuid.UUID]*tenant.Tenant)}
}

func (s *fakeStore) seed(code, status string) *tenant.Tenant {
	now := time.Now().UTC()
	t := &tenant.Tenant{
		ID:        uuid.New(),
		Code:      strings.ToLower(code),
		Name:      code + " Fish Farm",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.records[t.ID] = t
	s.mu.Unlock()
	return t
}

func (s *fakeStore) clone(t *tenant.Tenant) *tenant.Tenant {
	cp := *t
	return &cp
}

func (s *fakeStore) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.records[id]; ok {
		return s.clone(t), nil
	}
	return nil, tenant.ErrTenantNotFound
}

func (s *fakeStore) FindByCode(ctx context.Context, code string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.records {
		if t.Code == strings.ToLower(code) {
			return s.clone(t), nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (s *fakeStore) Create(ctx context.Context, code, name string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.records {
		if t.Code == strings.ToLower(code) {
			return nil, tenants.ErrCodeTaken
		}
	}
	now := time.Now().UTC()
	t := &tenant.Tenant{
		ID:        uuid.New(),
		Code:      strings.ToLower(code),
		Name:      name,
		Status:    tenant.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records[t.ID] = t
	return s.clone(t), nil
}

func (s *fakeStore) List(ctx context.Context) ([]*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*tenant.Tenant, 0, len(s.records))
	for _, t := range s.records {
		out = append(out, s.clone(t))
	}
	return out, nil
}

func (s *fakeStore) Update(ctx context.Context, id uuid.UUID, params tenants.UpdateParams) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.records[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	if params.Code != nil {
		t.Code = strings.ToLower(*params.Code)
	}
	if params.Name != nil {
		t.Name = *params.Name
	}
	if params.Status != nil {
		t.Status = *params.Status
	}
	t.UpdatedAt = time.Now().UTC()
	return s.clone(t), nil
}

func (s *fakeStore) SoftDelete(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	status := tenant.StatusDeleted
	return s.Update(ctx, id, tenants.UpdateParams{Status: &status})
}

func (s *fakeStore) EnsureDefault(ctx context.Context, code, name string) (*tenant.Tenant, error) {
	if t, err := s.FindByCode(ctx, code); err == nil {
		return t, nil
	}
	return s.Create(ctx, code, name)
}

// fakePublisher captures broadcast invalidation keys.
type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *fakePublisher) PublishInvalidation(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	return nil
}

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func newTestService(t *testing.T, store *fakeStore, events tenants.Publisher) (*tenants.Service, *tenant.Directory) {
	t.Helper()
	dir := tenant.NewDirectory(store)
	t.Cleanup(func() { _ = dir.Close() })
	return tenants.NewService(store, dir, events, nil), dir
}

func TestService_Create(t *testing.T) {
	t.Parallel()

	t.Run("code is normalized to lowercase", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t, newFakeStore(), nil)
		created, err := svc.Create(context.Background(), "ACME", "Acme Fish Farm")
		require.NoError(t, err)
		assert.Equal(t, "acme", created.Code)
		assert.Equal(t, tenant.StatusActive, created.Status)
	})

	t.Run("uuid shaped code rejected", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t, newFakeStore(), nil)
		_, err := svc.Create(context.Background(), uuid.NewString(), "Ambiguous")
		assert.ErrorIs(t, err, tenant.ErrInvalidTenantKey)
	})

	t.Run("malformed code rejected", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t, newFakeStore(), nil)
		_, err := svc.Create(context.Background(), "no spaces allowed", "Bad")
		assert.ErrorIs(t, err, tenant.ErrInvalidTenantKey)
	})

	t.Run("duplicate code", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.seed("acme", tenant.StatusActive)
		svc, _ := newTestService(t, store, nil)

		_, err := svc.Create(context.Background(), "acme", "Copycat")
		assert.ErrorIs(t, err, tenants.ErrCodeTaken)
	})
}

func TestService_Update(t *testing.T) {
	t.Parallel()

	t.Run("rename invalidates old and new aliases", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		acme := store.seed("acme", tenant.StatusActive)
		events := &fakePublisher{}
		svc, dir := newTestService(t, store, events)

		// Warm the cache under the old code.
		_, err := dir.Resolve(context.Background(), tenant.MustKey("acme"))
		require.NoError(t, err)
		require.Equal(t, 2, dir.Stats().Size)

		newCode := "atlantis"
		updated, err := svc.Update(context.Background(), acme.ID, tenants.UpdateParams{Code: &newCode})
		require.NoError(t, err)
		assert.Equal(t, "atlantis", updated.Code)

		assert.Equal(t, 0, dir.Stats().Size, "stale aliases dropped")

		// Re-resolution under the new code sees the rename.
		got, err := dir.Resolve(context.Background(), tenant.MustKey("atlantis"))
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)

		published := events.published()
		assert.Contains(t, published, "acme", "peers must drop the old code")
		assert.Contains(t, published, "atlantis")
		assert.Contains(t, published, acme.ID.String())
	})

	t.Run("invalid status rejected before storage", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		acme := store.seed("acme", tenant.StatusActive)
		svc, _ := newTestService(t, store, nil)

		bad := "frozen"
		_, err := svc.Update(context.Background(), acme.ID, tenants.UpdateParams{Status: &bad})
		require.ErrorIs(t, err, tenants.ErrInvalidStatus)

		got, err := store.FindByID(context.Background(), acme.ID)
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusActive, got.Status, "record untouched")
	})

	t.Run("uuid shaped code rejected", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		acme := store.seed("acme", tenant.StatusActive)
		svc, _ := newTestService(t, store, nil)

		bad := uuid.NewString()
		_, err := svc.Update(context.Background(), acme.ID, tenants.UpdateParams{Code: &bad})
		assert.ErrorIs(t, err, tenant.ErrInvalidTenantKey)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t, newFakeStore(), nil)
		name := "Nobody"
		_, err := svc.Update(context.Background(), uuid.New(), tenants.UpdateParams{Name: &name})
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("broadcast failure does not fail the mutation", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		acme := store.seed("acme", tenant.StatusActive)
		events := &fakePublisher{err: errors.New("redis down")}
		svc, _ := newTestService(t, store, events)

		name := "Renamed"
		_, err := svc.Update(context.Background(), acme.ID, tenants.UpdateParams{Name: &name})
		assert.NoError(t, err)
	})
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	acme := store.seed("acme", tenant.StatusActive)
	events := &fakePublisher{}
	svc, dir := newTestService(t, store, events)

	_, err := dir.Resolve(context.Background(), tenant.MustKey("acme"))
	require.NoError(t, err)
	require.Equal(t, 2, dir.Stats().Size)

	require.NoError(t, svc.Delete(context.Background(), acme.ID))

	assert.Equal(t, 0, dir.Stats().Size)
	assert.Contains(t, events.published(), "acme")
	assert.Contains(t, events.published(), acme.ID.String())

	got, err := store.FindByID(context.Background(), acme.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusDeleted, got.Status)
}

func TestService_EnsureDefault(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc, _ := newTestService(t, store, nil)

	first, err := svc.EnsureDefault(context.Background(), "default", "Default Tenant")
	require.NoError(t, err)

	second, err := svc.EnsureDefault(context.Background(), "default", "Default Tenant")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "idempotent")
}
