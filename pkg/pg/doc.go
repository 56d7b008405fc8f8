// Package pg provides the PostgreSQL layer for the multi-tenant
// backend: connection pooling, schema migrations, health checks, error
// classification, and — most importantly — tenant session binding.
//
// # Architecture
//
// Four cooperating building blocks:
//
//   - Config – a declarative struct populated from environment
//     variables. It controls pool limits, health-check cadence and
//     migration paths.
//
//   - Connect – opens a *pgxpool.Pool based on Config, retrying with
//     back-off until the database becomes available.
//
//   - Migrate – runs goose migrations against the same pool,
//     guaranteeing the schema (including the row-level security
//     helpers) is up to date before the service serves traffic.
//
//   - Binder – scopes a tenant identity to exactly one pooled
//     connection for exactly one transaction, so that row-level
//     security policies referencing current_setting('app.tenant_id')
//     evaluate against the correct tenant. The binding is
//     transaction-local, defensively reset before the connection
//     rejoins the pool, and connections with unverifiable state are
//     discarded rather than reused.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		panic(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//		panic(err)
//	}
//
//	binder := pg.NewBinder(pool, slog.Default())
//	err = binder.WithTenantSession(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "INSERT INTO ponds (name) VALUES ($1)", "pond-7")
//		return err
//	})
//
// # Error Handling
//
// Helpers such as [IsDuplicateKeyError] or [IsForeignKeyViolationError]
// unwrap *pgconn.PgError values and make error classification trivial
// inside business logic. [ErrSessionBinding] marks transient binding
// failures that callers may retry.
package pg
