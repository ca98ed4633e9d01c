package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/toggler/pkg/audit"
)

// AuditStorage keeps audit entries in a collection, one document per entry
// keyed by the entry ID. It implements audit.Storage and audit.Reader.
type AuditStorage struct {
	coll *mongo.Collection
}

// NewAuditStorage creates a storage on coll.
func NewAuditStorage(coll *mongo.Collection) *AuditStorage {
	return &AuditStorage{coll: coll}
}

// EnsureIndexes creates the lookup indexes used by Find. It is idempotent.
func (s *AuditStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "feature", Value: 1}, {Key: "environment", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	})
	if err != nil {
		return errors.Join(ErrFailedToCreateIndexes, err)
	}
	return nil
}

// StoreBatch inserts the batch unordered. Entries already stored under the
// same ID are skipped, so retrying a partially written batch is safe.
func (s *AuditStorage) StoreBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := s.coll.InsertMany(ctx, entries, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicates(err) {
		return errors.Join(ErrFailedToStoreEntries, err)
	}
	return nil
}

// Find returns entries matching c ordered by timestamp.
func (s *AuditStorage) Find(ctx context.Context, c audit.Criteria) ([]audit.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	if c.Limit > 0 {
		opts.SetLimit(int64(c.Limit))
	}

	cur, err := s.coll.Find(ctx, filter(c), opts)
	if err != nil {
		return nil, errors.Join(ErrFailedToQueryEntries, err)
	}

	entries := make([]audit.Entry, 0)
	if err := cur.All(ctx, &entries); err != nil {
		return nil, errors.Join(ErrFailedToQueryEntries, err)
	}
	for i := range entries {
		entries[i].Timestamp = entries[i].Timestamp.UTC()
	}
	return entries, nil
}

func filter(c audit.Criteria) bson.D {
	f := bson.D{}
	if c.Feature != "" {
		f = append(f, bson.E{Key: "feature", Value: c.Feature})
	}
	if c.Environment != "" {
		f = append(f, bson.E{Key: "environment", Value: c.Environment.String()})
	}
	if c.Action != "" {
		f = append(f, bson.E{Key: "action", Value: c.Action.String()})
	}
	if c.UserID != "" {
		f = append(f, bson.E{Key: "user_id", Value: c.UserID})
	}

	ts := bson.D{}
	if !c.Since.IsZero() {
		ts = append(ts, bson.E{Key: "$gte", Value: c.Since})
	}
	if !c.Until.IsZero() {
		ts = append(ts, bson.E{Key: "$lt", Value: c.Until})
	}
	if len(ts) > 0 {
		f = append(f, bson.E{Key: "timestamp", Value: ts})
	}
	return f
}

func onlyDuplicates(err error) bool {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if !isDuplicateKeyCode(we.Code) {
			return false
		}
	}
	return true
}

func isDuplicateKeyCode(code int) bool {
	return code == 11000 || code == 11001 || code == 12582
}
