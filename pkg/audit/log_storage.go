package audit

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/toggler/pkg/logger"
)

// LogStorage writes entries to a structured logger. It is the default
// destination when no database is configured.
type LogStorage struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogStorage creates a storage that emits one log record per entry at Info level.
func NewLogStorage(log *slog.Logger) *LogStorage {
	if log == nil {
		log = slog.Default()
	}
	return &LogStorage{logger: log.With(logger.Component("audit")), level: slog.LevelInfo}
}

// StoreBatch logs every entry.
func (s *LogStorage) StoreBatch(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		s.logger.LogAttrs(ctx, s.level, "audit",
			slog.String("id", e.ID),
			slog.Time("timestamp", e.Timestamp),
			logger.Feature(e.Feature),
			logger.Environment(e.Environment.String()),
			logger.Action(e.Action.String()),
			logger.UserID(e.UserID),
			slog.String("details", e.Details),
		)
	}
	return nil
}
