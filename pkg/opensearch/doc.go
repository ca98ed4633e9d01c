// Package opensearch stores feature audit entries in an OpenSearch index so
// they can be searched next to other operational logs.
//
// New creates a client and checks the cluster, Healthcheck builds a readiness
// probe and AuditStorage implements audit.Storage with one bulk request per
// batch:
//
//	client, err := opensearch.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//
//	storage := opensearch.NewAuditStorage(client, cfg.AuditIndex)
//	if err := storage.EnsureIndex(ctx); err != nil {
//	    return err
//	}
//
// Errors wrap the package sentinels (ErrConnectionFailed, ErrHealthcheckFailed,
// ErrFailedToStoreEntries, ErrFailedToQueryEntries) and work with errors.Is.
package opensearch
