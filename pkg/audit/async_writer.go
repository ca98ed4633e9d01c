package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/toggler/pkg/logger"
)

// Metrics receives counters from the async writer.
type Metrics interface {
	AuditWritten(n int)
	AuditDropped(n int)
	AuditFailed(n int)
}

// AsyncOptions configures queueing and batching.
type AsyncOptions struct {
	QueueSize      int           // Max entries held in memory; Log drops beyond this
	BatchSize      int           // Max entries per storage write
	Interval       time.Duration // Pause between write cycles, whether or not the batch was full
	StorageTimeout time.Duration // Per-batch storage timeout
	Logger         *slog.Logger
	Metrics        Metrics
}

// AsyncWriter queues entries in memory and writes them to Storage from a
// single background goroutine. Log never waits on storage.
type AsyncWriter struct {
	storage Storage
	queue   chan Entry
	done    chan struct{}
	wg      sync.WaitGroup
	options AsyncOptions

	// cancels in-flight storage writes when Close gives up waiting
	baseCtx context.Context
	abort   context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewAsyncWriter starts the background writer and returns it with its close function.
func NewAsyncWriter(storage Storage, opts AsyncOptions) (*AsyncWriter, func(context.Context) error) {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	if opts.QueueSize <= 0 {
		opts.QueueSize = 10000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	baseCtx, abort := context.WithCancel(context.Background())
	aw := &AsyncWriter{
		storage: storage,
		queue:   make(chan Entry, opts.QueueSize),
		done:    make(chan struct{}),
		options: opts,
		baseCtx: baseCtx,
		abort:   abort,
	}

	aw.wg.Add(1)
	go aw.worker()

	return aw, aw.Close
}

// Log enqueues the entry and returns immediately.
// It returns ErrBufferFull when the queue is at capacity and ErrWriterClosed
// after Close was called; in both cases the entry is dropped.
func (aw *AsyncWriter) Log(entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	aw.mu.RLock()
	defer aw.mu.RUnlock()

	if aw.closed {
		aw.dropped(1)
		return ErrWriterClosed
	}

	select {
	case aw.queue <- entry:
		return nil
	default:
		aw.dropped(1)
		return ErrBufferFull
	}
}

// Pending returns the number of queued entries not yet handed to storage.
func (aw *AsyncWriter) Pending() int {
	return len(aw.queue)
}

func (aw *AsyncWriter) worker() {
	defer aw.wg.Done()

	batch := make([]Entry, 0, aw.options.BatchSize)
	timer := time.NewTimer(aw.options.Interval)
	defer timer.Stop()

	for {
		batch = aw.dequeue(batch[:0])
		aw.flush(batch)

		timer.Reset(aw.options.Interval)
		select {
		case <-timer.C:
		case <-aw.done:
			aw.drain(batch)
			return
		}
	}
}

// drain writes whatever is left in the queue without pausing between batches.
func (aw *AsyncWriter) drain(batch []Entry) {
	for {
		if aw.baseCtx.Err() != nil {
			if n := len(aw.queue); n > 0 {
				aw.options.Logger.Warn("audit writer aborted, dropping queued entries",
					logger.Component("audit"),
					logger.Count("count", n),
				)
				aw.dropped(n)
			}
			return
		}
		batch = aw.dequeue(batch[:0])
		if len(batch) == 0 {
			return
		}
		aw.flush(batch)
	}
}

func (aw *AsyncWriter) dequeue(batch []Entry) []Entry {
	for len(batch) < aw.options.BatchSize {
		select {
		case entry := <-aw.queue:
			batch = append(batch, entry)
		default:
			return batch
		}
	}
	return batch
}

func (aw *AsyncWriter) flush(batch []Entry) {
	if len(batch) == 0 {
		return
	}

	// Storage writes are detached from any caller context.
	ctx, cancel := context.WithTimeout(aw.baseCtx, aw.options.StorageTimeout)
	defer cancel()

	err := aw.storage.StoreBatch(ctx, batch)
	if err == nil {
		if aw.options.Metrics != nil {
			aw.options.Metrics.AuditWritten(len(batch))
		}
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(ErrStorageTimeout, err)
	}
	aw.options.Logger.Warn("failed to write audit batch",
		logger.Component("audit"),
		logger.Count("count", len(batch)),
		logger.Error(err),
	)
	if aw.options.Metrics != nil {
		aw.options.Metrics.AuditFailed(len(batch))
	}
}

func (aw *AsyncWriter) dropped(n int) {
	if aw.options.Metrics != nil {
		aw.options.Metrics.AuditDropped(n)
	}
}

// Close stops accepting entries and waits for the queue to drain.
// The context bounds the wait; when it expires, in-flight writes are cancelled,
// remaining entries are dropped and the context error is returned without
// waiting for the worker to observe the cancellation.
// Calling Close more than once is safe.
func (aw *AsyncWriter) Close(ctx context.Context) error {
	aw.mu.Lock()
	if aw.closed {
		aw.mu.Unlock()
		return nil
	}
	aw.closed = true
	aw.mu.Unlock()

	close(aw.done)

	doneChan := make(chan struct{})
	go func() {
		aw.wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		aw.abort()
		return nil
	case <-ctx.Done():
		aw.abort()
		return ctx.Err()
	}
}
