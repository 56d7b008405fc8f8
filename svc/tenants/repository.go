package tenants

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aquafarm/platform/pkg/pg"
	"github.com/aquafarm/platform/pkg/tenant"
)

// ErrCodeTaken is returned when a tenant code is already claimed.
var ErrCodeTaken = errors.New("tenant code already exists")

const tenantColumns = "id, code, name, status, created_at, updated_at"

// Repository provides tenant persistence over pgx. It implements
// tenant.Provider, making it the storage behind the directory's
// load-through path.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tenant repository over the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindByID implements tenant.Provider.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = $1", id)
	return scanTenant(row)
}

// FindByCode implements tenant.Provider. Codes are stored lowercased,
// but the comparison stays case-insensitive for data written before
// that convention.
func (r *Repository) FindByCode(ctx context.Context, code string) (*tenant.Tenant, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE lower(code) = lower($1)", code)
	return scanTenant(row)
}

// Create inserts a new tenant with status active. The code is
// lowercased on write. Returns ErrCodeTaken when the code is already
// claimed.
func (r *Repository) Create(ctx context.Context, code, name string) (*tenant.Tenant, error) {
	row := r.pool.QueryRow(ctx,
		"INSERT INTO tenants (code, name) VALUES (lower($1), $2) RETURNING "+tenantColumns,
		code, name)
	t, err := scanTenant(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, ErrCodeTaken
		}
		return nil, err
	}
	return t, nil
}

// List returns all tenants, newest first.
func (r *Repository) List(ctx context.Context) ([]*tenant.Tenant, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+tenantColumns+" FROM tenants ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateParams carries optional tenant field changes; nil fields are
// left untouched.
type UpdateParams struct {
	Code   *string
	Name   *string
	Status *string
}

// Update applies the non-nil fields and returns the updated record.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*tenant.Tenant, error) {
	var code *string
	if params.Code != nil {
		lowered := strings.ToLower(*params.Code)
		code = &lowered
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE tenants
		SET code = COALESCE($2, code),
		    name = COALESCE($3, name),
		    status = COALESCE($4, status),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+tenantColumns,
		id, code, params.Name, params.Status)
	t, err := scanTenant(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, ErrCodeTaken
		}
		return nil, err
	}
	return t, nil
}

// SoftDelete marks the tenant deleted without removing its rows, so
// audit history and foreign keys stay intact.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tenants
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+tenantColumns,
		id, tenant.StatusDeleted)
	return scanTenant(row)
}

// EnsureDefault creates the fallback tenant at startup when it does
// not exist yet. Safe under concurrent startups: the insert ignores
// conflicts and the final read returns whoever won.
func (r *Repository) EnsureDefault(ctx context.Context, code, name string) (*tenant.Tenant, error) {
	t, err := r.FindByCode(ctx, code)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, tenant.ErrTenantNotFound) {
		return nil, err
	}

	_, err = r.pool.Exec(ctx,
		"INSERT INTO tenants (code, name) VALUES (lower($1), $2) ON CONFLICT (code) DO NOTHING",
		code, name)
	if err != nil {
		return nil, err
	}
	return r.FindByCode(ctx, code)
}
