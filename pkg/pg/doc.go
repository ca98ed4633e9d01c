// Package pg stores feature audit entries in PostgreSQL using pgx/v5.
//
// Connect opens a pool with retries, Migrate applies the embedded goose
// migrations that create the feature_audit_log table, and AuditStorage
// implements audit.Storage with one COPY per batch:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//	    return err
//	}
//
//	writer, closeAudit := audit.NewAsyncWriter(pg.NewAuditStorage(pool), audit.AsyncOptions{})
//
// Configuration is read from PG_* environment variables through Config.
package pg
