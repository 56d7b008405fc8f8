package pg

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aquafarm/platform/pkg/tenant"
)

const (
	// bindQuery attaches the tenant identity to the current transaction.
	// set_config with is_local=true is transaction-scoped, so the GUC
	// reverts when the transaction ends regardless of outcome. Row-level
	// policies reference it via current_setting('app.tenant_id').
	bindQuery = "SELECT set_config('app.tenant_id', $1, true)"

	// resetQuery clears any tenant state left on the raw connection.
	resetQuery = "RESET app.tenant_id"

	resetTimeout = 3 * time.Second
)

// session is the slice of *pgxpool.Conn the binder needs. Narrowed to
// an interface so every exit path can be exercised with fakes.
type session interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Release()
	Hijack() *pgx.Conn
}

// Binder scopes tenant identity to individual database sessions. Each
// unit of work runs inside one transaction on one pooled connection
// with the tenant identity bound to exactly that connection, and the
// connection is guaranteed to be clean before it rejoins the pool —
// on success, error, cancellation, and panic alike.
type Binder struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewBinder creates a session binder over the given pool.
func NewBinder(pool *pgxpool.Pool, log *slog.Logger) *Binder {
	return &Binder{pool: pool, log: log}
}

// WithTenantSession acquires a connection, binds the tenant identity to
// it inside a transaction, runs fn against that transaction, and then
// commits (or rolls back on error). The binding can never outlive the
// unit of work: it is transaction-local, defensively reset on the raw
// connection afterwards, and a connection whose reset fails is
// discarded instead of being returned to the pool.
func (b *Binder) WithTenantSession(ctx context.Context, tenantID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if tenantID == uuid.Nil {
		return errors.Join(ErrSessionBinding, errors.New("zero tenant id"))
	}

	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return errors.Join(ErrSessionBinding, err)
	}

	return b.runBound(ctx, conn, tenantID, fn)
}

// WithTenantFromContext runs fn under the tenant identity resolved for
// the current request. Returns tenant.ErrNoTenantInContext when the
// request has no resolved tenant, so callers can never fall through to
// an unscoped session.
func (b *Binder) WithTenantFromContext(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return tenant.ErrNoTenantInContext
	}
	return b.WithTenantSession(ctx, id, fn)
}

func (b *Binder) runBound(ctx context.Context, sess session, tenantID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx) error) error {
	finished := false
	defer func() {
		if finished {
			return
		}
		// fn panicked: the transaction state of the connection is
		// unknown, so discard it entirely and let the panic continue.
		b.discard(ctx, sess, errors.New("panic during bound session"))
	}()

	workErr := b.runTx(ctx, sess, tenantID, fn)

	// The transaction-local binding is already gone after commit or
	// rollback; RESET is the second line of defense. A connection
	// that cannot prove it is clean never rejoins the pool.
	resetCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetTimeout)
	defer cancel()
	if _, err := sess.Exec(resetCtx, resetQuery); err != nil {
		b.discard(ctx, sess, err)
	} else {
		sess.Release()
	}

	finished = true
	// Cleanup failures are logged above and never mask the outcome of
	// the caller's work.
	return workErr
}

func (b *Binder) runTx(ctx context.Context, sess session, tenantID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := sess.Begin(ctx)
	if err != nil {
		return errors.Join(ErrSessionBinding, err)
	}

	committed := false
	defer func() {
		if !committed {
			// Detached context so rollback still runs after the
			// request context is canceled.
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if _, err := tx.Exec(ctx, bindQuery, tenantID.String()); err != nil {
		return errors.Join(ErrSessionBinding, err)
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrSessionBinding, err)
	}
	committed = true
	return nil
}

// discard removes a possibly-dirty connection from circulation by
// hijacking it out of the pool and closing it.
func (b *Binder) discard(ctx context.Context, sess session, cause error) {
	if conn := sess.Hijack(); conn != nil {
		_ = conn.Close(context.WithoutCancel(ctx))
	}
	if b.log != nil {
		b.log.ErrorContext(ctx, "discarded connection with unverifiable tenant state",
			slog.Any("error", cause),
		)
	}
}
