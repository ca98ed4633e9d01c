// Package mongo stores feature audit entries in MongoDB.
//
// New connects with retries, Healthcheck builds a readiness probe and
// AuditStorage implements audit.Storage with one unordered InsertMany per
// batch. Entries are keyed by their ID, so a retried batch does not create
// duplicates.
//
//	client, err := mongo.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Disconnect(context.Background())
//
//	storage := mongo.NewAuditStorage(client.Database(cfg.Database).Collection(cfg.AuditCollection))
//	if err := storage.EnsureIndexes(ctx); err != nil {
//	    return err
//	}
//
// Configuration is read from MONGODB_* environment variables through Config.
package mongo
