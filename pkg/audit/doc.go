// Package audit records feature toggle actions without blocking callers.
//
// An Entry is an immutable record: timestamp (UTC), feature, environment,
// action tag, acting user and free-text details. Entries flow through a Logger
// into a Storage destination.
//
// # Async writer
//
// AsyncWriter is the Logger used by the engine. Log validates the entry and
// puts it on an in-memory queue; it never touches storage. A single worker
// goroutine takes up to BatchSize entries, hands them to Storage.StoreBatch in
// one call and then pauses for Interval before the next cycle:
//
//	writer, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{
//		QueueSize: 10000,
//		BatchSize: 5,
//		Interval:  time.Second,
//	})
//	defer closeWriter(shutdownCtx)
//
//	_ = writer.Log(audit.NewEntry("beta", environment.Production,
//		audit.ActionKillSwitchActivated, "ops", "outage"))
//
// When the queue is full, Log drops the entry and returns ErrBufferFull. After
// Close begins, Log drops the entry and returns ErrWriterClosed. Close drains
// the queue without pausing between batches and gives up when its context
// expires. Storage failures are logged and counted, never returned to Log.
//
// # Destinations
//
// MemoryStorage keeps entries in memory and answers Find queries. LogStorage
// writes one structured log record per entry. Database-backed destinations
// live in the pg, mongo and opensearch packages.
package audit
