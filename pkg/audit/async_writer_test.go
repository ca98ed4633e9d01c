package audit_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) StoreBatch(ctx context.Context, entries []audit.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

type countingMetrics struct {
	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

func (m *countingMetrics) AuditWritten(n int) { m.written.Add(int64(n)) }
func (m *countingMetrics) AuditDropped(n int) { m.dropped.Add(int64(n)) }
func (m *countingMetrics) AuditFailed(n int)  { m.failed.Add(int64(n)) }

// slowStorage blocks every write until release is closed.
type slowStorage struct {
	release chan struct{}
	mu      sync.Mutex
	batches [][]audit.Entry
}

func (s *slowStorage) StoreBatch(ctx context.Context, entries []audit.Entry) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]audit.Entry(nil), entries...))
	return nil
}

func newEntry(i int) audit.Entry {
	return audit.NewEntry(fmt.Sprintf("feature-%d", i), environment.Production, audit.ActionKillSwitchActivated, "ops", "")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAsyncWriter_WritesBatches(t *testing.T) {
	t.Parallel()

	storage := audit.NewMemoryStorage()
	metrics := &countingMetrics{}
	writer, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{
		BatchSize: 3,
		Interval:  10 * time.Millisecond,
		Logger:    discardLogger(),
		Metrics:   metrics,
	})

	for i := range 7 {
		require.NoError(t, writer.Log(newEntry(i)))
	}

	assert.Eventually(t, func() bool {
		return storage.Len() == 7
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, closeWriter(context.Background()))
	assert.Equal(t, int64(7), metrics.written.Load())
	assert.Zero(t, metrics.dropped.Load())
}

func TestAsyncWriter_BatchSizeLimit(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	var sizes []int
	var mu sync.Mutex
	storage.On("StoreBatch", mock.Anything, mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()
			sizes = append(sizes, len(args.Get(1).([]audit.Entry)))
		})

	writer, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{
		BatchSize: 2,
		Interval:  time.Hour,
		Logger:    discardLogger(),
	})

	for i := range 5 {
		require.NoError(t, writer.Log(newEntry(i)))
	}

	// Close drains the queue without waiting for the interval.
	require.NoError(t, closeWriter(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, n := range sizes {
		assert.LessOrEqual(t, n, 2)
		total += n
	}
	assert.Equal(t, 5, total)
}

func TestAsyncWriter_NonBlockingWithSlowStorage(t *testing.T) {
	t.Parallel()

	storage := &slowStorage{release: make(chan struct{})}
	writer, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{
		BatchSize:      1,
		Interval:       time.Millisecond,
		StorageTimeout: time.Minute,
		Logger:         discardLogger(),
	})

	start := time.Now()
	for i := range 100 {
		require.NoError(t, writer.Log(newEntry(i)))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond, "Log must not wait on storage")

	close(storage.release)
	require.NoError(t, closeWriter(context.Background()))

	storage.mu.Lock()
	defer storage.mu.Unlock()
	assert.Len(t, storage.batches, 100)
}

func TestAsyncWriter_BufferFull(t *testing.T) {
	t.Parallel()

	storage := &slowStorage{release: make(chan struct{})}
	metrics := &countingMetrics{}
	writer, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{
		QueueSize: 2,
		BatchSize: 1,
		Interval:  time.Hour,
		Logger:    discardLogger(),
		Metrics:   metrics,
	})

	var full int
	for i := range 10 {
		if err := writer.Log(newEntry(i)); errors.Is(err, audit.ErrBufferFull) {
			full++
		}
	}

	assert.Positive(t, full)
	assert.Equal(t, int64(full), metrics.dropped.Load())

	close(storage.release)
	require.NoError(t, closeWriter(context.Background()))
}

func TestAsyncWriter_LogAfterClose(t *testing.T) {
	t.Parallel()

	metrics := &countingMetrics{}
	writer, closeWriter := audit.NewAsyncWriter(audit.NewMemoryStorage(), audit.AsyncOptions{
		Logger:  discardLogger(),
		Metrics: metrics,
	})
	require.NoError(t, closeWriter(context.Background()))
	require.NoError(t, writer.Close(context.Background()), "close is idempotent")

	err := writer.Log(newEntry(1))
	assert.ErrorIs(t, err, audit.ErrWriterClosed)
	assert.Equal(t, int64(1), metrics.dropped.Load())
}

func TestAsyncWriter_InvalidEntry(t *testing.T) {
	t.Parallel()

	writer, closeWriter := audit.NewAsyncWriter(audit.NewMemoryStorage(), audit.AsyncOptions{Logger: discardLogger()})
	defer func() { _ = closeWriter(context.Background()) }()

	err := writer.Log(audit.Entry{Feature: "beta"})
	assert.ErrorIs(t, err, audit.ErrInvalidEntry)
	assert.Zero(t, writer.Pending())
}

func TestAsyncWriter_StorageFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	storage.On("StoreBatch", mock.Anything, mock.Anything).Return(audit.ErrStorageNotAvailable)

	metrics := &countingMetrics{}
	writer, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{
		BatchSize: 10,
		Interval:  5 * time.Millisecond,
		Logger:    discardLogger(),
		Metrics:   metrics,
	})

	require.NoError(t, writer.Log(newEntry(1)))
	require.NoError(t, writer.Log(newEntry(2)))

	assert.Eventually(t, func() bool {
		return metrics.failed.Load() == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, closeWriter(context.Background()))
	storage.AssertCalled(t, "StoreBatch", mock.Anything, mock.Anything)
	assert.Zero(t, metrics.written.Load())
}

func TestAsyncWriter_CloseTimeout(t *testing.T) {
	t.Parallel()

	storage := &slowStorage{release: make(chan struct{})}
	metrics := &countingMetrics{}
	writer, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{
		BatchSize:      1,
		Interval:       time.Hour,
		StorageTimeout: time.Minute,
		Logger:         discardLogger(),
		Metrics:        metrics,
	})

	for i := range 5 {
		require.NoError(t, writer.Log(newEntry(i)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := closeWriter(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAsyncWriter_ConcurrentLogging(t *testing.T) {
	t.Parallel()

	storage := audit.NewMemoryStorage()
	writer, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{
		BatchSize: 50,
		Interval:  time.Millisecond,
		Logger:    discardLogger(),
	})

	const goroutines = 10
	const perGoroutine = 20

	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range perGoroutine {
				assert.NoError(t, writer.Log(newEntry(g*perGoroutine+i)))
			}
		}(g)
	}
	wg.Wait()

	require.NoError(t, closeWriter(context.Background()))
	assert.Equal(t, goroutines*perGoroutine, storage.Len())
}

func TestNewAsyncWriter_NilStorage(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		audit.NewAsyncWriter(nil, audit.AsyncOptions{})
	})
}

func BenchmarkAsyncWriter_Log(b *testing.B) {
	writer, closeWriter := audit.NewAsyncWriter(audit.NewMemoryStorage(), audit.AsyncOptions{
		QueueSize: 1 << 20,
		BatchSize: 500,
		Interval:  time.Millisecond,
		Logger:    discardLogger(),
	})
	defer func() { _ = closeWriter(context.Background()) }()

	entry := newEntry(1)
	for b.Loop() {
		_ = writer.Log(entry)
	}
}
