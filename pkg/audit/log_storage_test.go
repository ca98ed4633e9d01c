package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
)

func TestLogStorage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	storage := audit.NewLogStorage(log)

	entry := audit.NewEntry("beta", environment.Production, audit.ActionKillSwitchActivated, "ops", "outage")
	require.NoError(t, storage.StoreBatch(context.Background(), []audit.Entry{entry}))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "audit", record["msg"])
	assert.Equal(t, "audit", record["component"])
	assert.Equal(t, entry.ID, record["id"])
	assert.Equal(t, "beta", record["feature"])
	assert.Equal(t, "production", record["environment"])
	assert.Equal(t, "KillSwitchActivated", record["action"])
	assert.Equal(t, "ops", record["user_id"])
	assert.Equal(t, "outage", record["details"])
}
