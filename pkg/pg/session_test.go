package pg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquafarm/platform/pkg/tenant"
)

type fakeTx struct {
	pgx.Tx

	bindErr   error
	commitErr error
	fnPanic   bool

	binds     []string
	commits   int
	rollbacks int
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if len(args) > 0 {
		t.binds = append(t.binds, fmt.Sprint(args[0]))
	}
	return pgconn.CommandTag{}, t.bindErr
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.commits++
	return t.commitErr
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rollbacks++
	return nil
}

type fakeSession struct {
	tx       *fakeTx
	beginErr error
	resetErr error

	resets   []string
	released int
	hijacked int
}

func (s *fakeSession) Begin(ctx context.Context) (pgx.Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return s.tx, nil
}

func (s *fakeSession) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.resets = append(s.resets, sql)
	return pgconn.CommandTag{}, s.resetErr
}

func (s *fakeSession) Release() { s.released++ }

func (s *fakeSession) Hijack() *pgx.Conn {
	s.hijacked++
	return nil
}

func testBinder() *Binder {
	return NewBinder(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBinder_RunBound(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()

	t.Run("binds, commits, resets and releases", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{tx: &fakeTx{}}
		var gotTx pgx.Tx
		err := testBinder().runBound(context.Background(), sess, tenantID, func(ctx context.Context, tx pgx.Tx) error {
			gotTx = tx
			return nil
		})
		require.NoError(t, err)

		assert.Same(t, pgx.Tx(sess.tx), gotTx)
		require.Len(t, sess.tx.binds, 1)
		assert.Equal(t, tenantID.String(), sess.tx.binds[0], "identity bound to this transaction only")
		assert.Equal(t, 1, sess.tx.commits)
		assert.Equal(t, 0, sess.tx.rollbacks)
		assert.Equal(t, []string{resetQuery}, sess.resets)
		assert.Equal(t, 1, sess.released)
		assert.Equal(t, 0, sess.hijacked)
	})

	t.Run("work error rolls back and is never masked", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("pond not found")
		sess := &fakeSession{tx: &fakeTx{}}
		err := testBinder().runBound(context.Background(), sess, tenantID, func(ctx context.Context, tx pgx.Tx) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrSessionBinding)
		assert.Equal(t, 0, sess.tx.commits)
		assert.Equal(t, 1, sess.tx.rollbacks)
		assert.Equal(t, 1, sess.released, "clean connection rejoins the pool")
	})

	t.Run("begin failure", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{beginErr: errors.New("too many clients")}
		err := testBinder().runBound(context.Background(), sess, tenantID, nil)

		assert.ErrorIs(t, err, ErrSessionBinding)
		assert.Equal(t, 1, sess.released)
	})

	t.Run("bind failure rolls back", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{tx: &fakeTx{bindErr: errors.New("parameter rejected")}}
		fnCalled := false
		err := testBinder().runBound(context.Background(), sess, tenantID, func(ctx context.Context, tx pgx.Tx) error {
			fnCalled = true
			return nil
		})

		assert.ErrorIs(t, err, ErrSessionBinding)
		assert.False(t, fnCalled, "work never runs on an unbound transaction")
		assert.Equal(t, 1, sess.tx.rollbacks)
	})

	t.Run("commit failure", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{tx: &fakeTx{commitErr: errors.New("connection reset")}}
		err := testBinder().runBound(context.Background(), sess, tenantID, func(ctx context.Context, tx pgx.Tx) error {
			return nil
		})

		assert.ErrorIs(t, err, ErrSessionBinding)
		assert.Equal(t, 1, sess.tx.rollbacks, "failed commit still rolls back")
	})

	t.Run("reset failure discards the connection", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("pond not found")
		sess := &fakeSession{tx: &fakeTx{}, resetErr: errors.New("connection gone")}
		err := testBinder().runBound(context.Background(), sess, tenantID, func(ctx context.Context, tx pgx.Tx) error {
			return boom
		})

		assert.ErrorIs(t, err, boom, "cleanup failure never masks the work outcome")
		assert.Equal(t, 0, sess.released, "dirty connection must not rejoin the pool")
		assert.Equal(t, 1, sess.hijacked)
	})

	t.Run("panic discards the connection and propagates", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{tx: &fakeTx{}}
		assert.PanicsWithValue(t, "kaboom", func() {
			_ = testBinder().runBound(context.Background(), sess, tenantID, func(ctx context.Context, tx pgx.Tx) error {
				panic("kaboom")
			})
		})

		assert.Equal(t, 0, sess.released)
		assert.Equal(t, 1, sess.hijacked)
	})

	t.Run("canceled request context still cleans up", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		sess := &fakeSession{tx: &fakeTx{}}
		err := testBinder().runBound(ctx, sess, tenantID, func(ctx context.Context, tx pgx.Tx) error {
			cancel()
			return ctx.Err()
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{resetQuery}, sess.resets, "reset runs on a detached context")
		assert.Equal(t, 1, sess.released)
	})
}

func TestBinder_WithTenantSession(t *testing.T) {
	t.Parallel()

	t.Run("zero tenant id rejected before touching the pool", func(t *testing.T) {
		t.Parallel()

		err := testBinder().WithTenantSession(context.Background(), uuid.Nil, nil)
		assert.ErrorIs(t, err, ErrSessionBinding)
	})
}

func TestBinder_WithTenantFromContext(t *testing.T) {
	t.Parallel()

	t.Run("unresolved request never gets a session", func(t *testing.T) {
		t.Parallel()

		err := testBinder().WithTenantFromContext(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
			t.Fatal("work must not run without a tenant")
			return nil
		})
		assert.ErrorIs(t, err, tenant.ErrNoTenantInContext)
	})
}
