package mongo_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
	"github.com/dmitrymomot/toggler/pkg/mongo"
)

func liveConfig(t *testing.T) mongo.Config {
	t.Helper()
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL not set")
	}
	return mongo.Config{
		ConnectionURL:   url,
		Database:        "toggler_test",
		AuditCollection: "feature_audit_log",
		ConnectTimeout:  5 * time.Second,
		MaxPoolSize:     4,
		MinPoolSize:     0,
		MaxConnIdleTime: time.Minute,
		RetryWrites:     true,
		RetryReads:      true,
		RetryAttempts:   3,
		RetryInterval:   500 * time.Millisecond,
	}
}

func TestNew_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := mongo.New(ctx, mongo.Config{
		ConnectionURL:  "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=100",
		ConnectTimeout: 100 * time.Millisecond,
		MaxPoolSize:    1,
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
	})
	assert.ErrorIs(t, err, mongo.ErrFailedToConnectToMongo)
}

func TestAuditStorage_Live(t *testing.T) {
	cfg := liveConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(context.Background()) }()
	require.NoError(t, mongo.Healthcheck(client)(ctx))

	s := mongo.NewAuditStorage(client.Database(cfg.Database).Collection(cfg.AuditCollection))
	require.NoError(t, s.EnsureIndexes(ctx))
	require.NoError(t, s.EnsureIndexes(ctx))

	feature := "live-" + time.Now().Format("150405.000000000")
	base := time.Now().UTC().Truncate(time.Millisecond)
	entries := make([]audit.Entry, 3)
	for i := range entries {
		entries[i] = audit.NewEntry(feature, environment.Production, audit.ActionAttributesUpdated, "ops", "")
		entries[i].Timestamp = base.Add(time.Duration(i) * time.Second)
	}
	entries[1].UserID = "lead"

	require.NoError(t, s.StoreBatch(ctx, entries))
	require.NoError(t, s.StoreBatch(ctx, entries), "duplicates are skipped")
	require.NoError(t, s.StoreBatch(ctx, nil))

	found, err := s.Find(ctx, audit.Criteria{Feature: feature})
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, entries[0], found[0])

	found, err = s.Find(ctx, audit.Criteria{Feature: feature, UserID: "lead"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, entries[1].ID, found[0].ID)

	found, err = s.Find(ctx, audit.Criteria{Feature: feature, Until: base.Add(2 * time.Second), Limit: 5})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
