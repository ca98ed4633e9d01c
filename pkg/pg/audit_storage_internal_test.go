package pg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
)

func TestFindQuery(t *testing.T) {
	t.Parallel()

	const selectAll = "SELECT id, occurred_at, feature, environment, action, user_id, details FROM feature_audit_log"

	t.Run("no criteria", func(t *testing.T) {
		t.Parallel()
		query, args := findQuery(audit.Criteria{})
		assert.Equal(t, selectAll+" ORDER BY occurred_at, id", query)
		assert.Empty(t, args)
	})

	t.Run("all criteria", func(t *testing.T) {
		t.Parallel()
		since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		until := since.Add(time.Hour)
		query, args := findQuery(audit.Criteria{
			Feature:     "beta",
			Environment: environment.Staging,
			Action:      audit.ActionPromotionApproved,
			UserID:      "lead",
			Since:       since,
			Until:       until,
			Limit:       10,
		})
		assert.Equal(t, selectAll+
			" WHERE feature = $1 AND environment = $2 AND action = $3 AND user_id = $4 AND occurred_at >= $5 AND occurred_at < $6"+
			" ORDER BY occurred_at, id LIMIT $7", query)
		assert.Equal(t, []any{"beta", "staging", "PromotionApproved", "lead", since, until, 10}, args)
	})
}
