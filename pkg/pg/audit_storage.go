package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
)

const auditTable = "feature_audit_log"

var auditColumns = []string{"id", "occurred_at", "feature", "environment", "action", "user_id", "details"}

// DB is the subset of *pgxpool.Pool used by AuditStorage.
type DB interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// AuditStorage writes audit entries to the feature_audit_log table created
// by Migrate. It implements audit.Storage and audit.Reader.
type AuditStorage struct {
	db DB
}

// NewAuditStorage creates a storage on top of db.
func NewAuditStorage(db DB) *AuditStorage {
	return &AuditStorage{db: db}
}

// StoreBatch inserts the batch with a single COPY. COPY is atomic: either all
// rows land or none do.
func (s *AuditStorage) StoreBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{auditTable}, auditColumns,
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{
				e.ID,
				e.Timestamp,
				e.Feature,
				e.Environment.String(),
				e.Action.String(),
				e.UserID,
				e.Details,
			}, nil
		}),
	)
	if err != nil {
		return errors.Join(ErrFailedToStoreEntries, err)
	}
	if n != int64(len(entries)) {
		return errors.Join(ErrFailedToStoreEntries, fmt.Errorf("copied %d of %d rows", n, len(entries)))
	}
	return nil
}

// Find returns entries matching c ordered by timestamp.
func (s *AuditStorage) Find(ctx context.Context, c audit.Criteria) ([]audit.Entry, error) {
	query, args := findQuery(c)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrFailedToQueryEntries, err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Entry, error) {
		var (
			e           audit.Entry
			env, action string
		)
		if err := row.Scan(&e.ID, &e.Timestamp, &e.Feature, &env, &action, &e.UserID, &e.Details); err != nil {
			return e, err
		}
		e.Environment = environment.Environment(env)
		e.Action = audit.Action(action)
		e.Timestamp = e.Timestamp.UTC()
		return e, nil
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToQueryEntries, err)
	}
	return entries, nil
}

func findQuery(c audit.Criteria) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if c.Feature != "" {
		add("feature = $%d", c.Feature)
	}
	if c.Environment != "" {
		add("environment = $%d", c.Environment.String())
	}
	if c.Action != "" {
		add("action = $%d", c.Action.String())
	}
	if c.UserID != "" {
		add("user_id = $%d", c.UserID)
	}
	if !c.Since.IsZero() {
		add("occurred_at >= $%d", c.Since)
	}
	if !c.Until.IsZero() {
		add("occurred_at < $%d", c.Until)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(auditColumns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(auditTable)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY occurred_at, id")
	if c.Limit > 0 {
		args = append(args, c.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}
