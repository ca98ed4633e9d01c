package redis_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
	"github.com/dmitrymomot/toggler/pkg/feature"
	"github.com/dmitrymomot/toggler/pkg/redis"
	"github.com/dmitrymomot/toggler/pkg/toggle"
)

type recordingApplier struct {
	mu      sync.Mutex
	changes []toggle.Change
	err     error
}

func (a *recordingApplier) ApplyChange(ctx context.Context, c toggle.Change) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.changes = append(a.changes, c)
	return a.err
}

func (a *recordingApplier) Changes() []toggle.Change {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]toggle.Change(nil), a.changes...)
}

func unreachableClient() *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestListener_Handle(t *testing.T) {
	t.Parallel()

	applier := &recordingApplier{}
	l, err := redis.NewListener(unreachableClient(), "changes", applier)
	require.NoError(t, err)

	payload := []byte(`{"id":"c1","origin":"node-a","feature":"beta","environment":"Staging","action":"KillSwitchActivated","user_id":"ops","reason":"outage","timestamp":"2025-01-01T00:00:00Z"}`)
	require.NoError(t, l.Handle(context.Background(), payload))

	changes := applier.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "beta", changes[0].Feature)
	assert.Equal(t, environment.Staging, changes[0].Environment)
	assert.Equal(t, audit.ActionKillSwitchActivated, changes[0].Action)
	assert.Equal(t, "node-a", changes[0].Origin)

	err = l.Handle(context.Background(), []byte("not json"))
	assert.ErrorIs(t, err, redis.ErrInvalidMessage)

	applier.err = toggle.ErrInvalidChange
	err = l.Handle(context.Background(), payload)
	assert.ErrorIs(t, err, toggle.ErrInvalidChange)
}

func TestListener_HandleAppliesToEngine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	provider, err := feature.NewMemoryProvider(&feature.Flag{Name: "beta", Enabled: true})
	require.NoError(t, err)
	engine, err := toggle.NewEngine(provider, toggle.WithInstanceID("node-b"))
	require.NoError(t, err)

	l, err := redis.NewListener(unreachableClient(), "changes", engine)
	require.NoError(t, err)

	payload := []byte(`{"origin":"node-a","feature":"beta","environment":"Production","action":"KillSwitchActivated","user_id":"ops"}`)
	require.NoError(t, l.Handle(ctx, payload))

	on, err := engine.IsEnabled(ctx, "beta")
	require.NoError(t, err)
	assert.False(t, on)
}

func TestNewPropagator_EmptyChannel(t *testing.T) {
	t.Parallel()

	_, err := redis.NewPropagator(unreachableClient(), "")
	assert.ErrorIs(t, err, redis.ErrEmptyChannel)

	_, err = redis.NewListener(unreachableClient(), "", &recordingApplier{})
	assert.ErrorIs(t, err, redis.ErrEmptyChannel)
}

func TestPropagator_Unreachable(t *testing.T) {
	t.Parallel()

	p, err := redis.NewPropagator(unreachableClient(), "changes")
	require.NoError(t, err)

	err = p.Propagate(context.Background(), toggle.Change{Feature: "beta"})
	assert.ErrorIs(t, err, redis.ErrPublishFailed)
}

func TestHealthcheck_Unreachable(t *testing.T) {
	t.Parallel()

	err := redis.Healthcheck(unreachableClient())(context.Background())
	assert.ErrorIs(t, err, redis.ErrHealthcheckFailed)
}

func TestConnect_Errors(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "://bad",
		ConnectTimeout: time.Second,
	})
	assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)

	_, err = redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "redis://127.0.0.1:1/0",
		RetryAttempts:  2,
		RetryInterval:  time.Millisecond,
		ConnectTimeout: 2 * time.Second,
	})
	assert.ErrorIs(t, err, redis.ErrRedisNotReady)
}

func TestPubSub_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.Connect(ctx, redis.Config{
		ConnectionURL:  url,
		RetryAttempts:  3,
		RetryInterval:  100 * time.Millisecond,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, redis.Healthcheck(client)(ctx))

	channel := "toggler:test:" + t.Name()
	applier := &recordingApplier{}
	l, err := redis.NewListener(client, channel, applier)
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- l.Run(runCtx) }()

	p, err := redis.NewPropagator(client, channel)
	require.NoError(t, err)

	want := toggle.Change{
		ID:          "c1",
		Origin:      "node-a",
		Feature:     "beta",
		Environment: environment.Production,
		Action:      audit.ActionKillSwitchActivated,
		UserID:      "ops",
		Timestamp:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	// Publish until the subscriber is attached.
	require.Eventually(t, func() bool {
		_ = p.Propagate(ctx, want)
		return len(applier.Changes()) > 0
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, want, applier.Changes()[0])

	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal(errors.New("listener did not stop"))
	}
}
