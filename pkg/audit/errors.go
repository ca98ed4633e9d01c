package audit

import "errors"

var (
	// ErrStorageNotAvailable indicates the storage backend is unavailable
	ErrStorageNotAvailable = errors.New("storage backend is unavailable")

	// ErrInvalidEntry indicates the entry data is invalid
	ErrInvalidEntry = errors.New("invalid audit entry")

	// ErrStorageTimeout indicates a storage operation timed out
	ErrStorageTimeout = errors.New("storage operation timed out")

	// ErrBufferFull indicates the async queue is full and the entry was dropped
	ErrBufferFull = errors.New("async buffer is full")

	// ErrWriterClosed indicates the entry arrived after shutdown began and was dropped
	ErrWriterClosed = errors.New("audit writer is closed")
)
