package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/toggler/internal/app"
	"github.com/dmitrymomot/toggler/pkg/config"
	"github.com/dmitrymomot/toggler/pkg/logger"
	"github.com/dmitrymomot/toggler/pkg/toggle"
)

const testFeatures = `
features:
  - name: beta
    enabled: true
    tags: [web]
  - name: checkout-v2
    enabled: false
    tags: [web, payments]
    attributes:
      AllowList: [u1]
    rollout:
      percentage: 0
`

// testFactory builds apps from a features file and extra env vars.
func testFactory(t *testing.T, vars map[string]string) AppFactory {
	t.Helper()

	path := filepath.Join(t.TempDir(), "features.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testFeatures), 0o600))

	env := map[string]string{
		"TOGGLER_FEATURES_FILE": path,
		"AUDIT_DESTINATION":     "memory",
	}
	for k, v := range vars {
		env[k] = v
	}

	return func(ctx context.Context) (*app.App, error) {
		cfg, err := app.LoadConfig(config.WithEnvironment(env))
		if err != nil {
			return nil, err
		}
		return app.New(ctx, cfg, app.WithLogger(logger.Discard()))
	}
}

func execute(t *testing.T, factory AppFactory, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "toggler", cmd.Use)
	assert.Contains(t, cmd.Long, "kill switches")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"check"},
		{"flags"},
		{"killswitch"},
		{"killswitch", "activate"},
		{"killswitch", "deactivate"},
		{"audit"},
		{"listen"},
	}

	for _, path := range commands {
		t.Run(path[len(path)-1], func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	envFileFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFileFlag)
	assert.Equal(t, "", envFileFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, testFactory(t, nil), "--format", "xml", "flags")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestCheckCommand(t *testing.T) {
	factory := testFactory(t, nil)

	out, err := execute(t, factory, "check", "beta")
	require.NoError(t, err)
	assert.Equal(t, "beta is enabled in production (base_state)\n", out)

	out, err = execute(t, factory, "check", "checkout-v2", "--user", "u1", "--env", "dev")
	require.NoError(t, err)
	assert.Equal(t, "checkout-v2 is enabled in development for u1 (allow_list)\n", out)

	out, err = execute(t, factory, "--format", "json", "check", "checkout-v2", "--user", "u2")
	require.NoError(t, err)
	var d toggle.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.False(t, d.Enabled)
	assert.Equal(t, toggle.ReasonBaseState, d.Reason)
	assert.Equal(t, "u2", d.UserID)

	out, err = execute(t, factory, "check", "ghost")
	require.NoError(t, err)
	assert.Contains(t, out, "ghost is disabled in production (not_found)")

	_, err = execute(t, factory, "check", "beta", "--env", "moon")
	assert.Error(t, err)

	_, err = execute(t, factory, "check")
	assert.Error(t, err)
}

func TestFlagsCommand(t *testing.T) {
	factory := testFactory(t, nil)

	out, err := execute(t, factory, "flags")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "beta")
	assert.Contains(t, out, "checkout-v2")
	assert.Contains(t, out, "0%")

	out, err = execute(t, factory, "--format", "json", "flags", "--tag", "payments")
	require.NoError(t, err)
	var flags []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &flags))
	require.Len(t, flags, 1)
	assert.Equal(t, "checkout-v2", flags[0]["name"])
}

func TestKillSwitchCommand(t *testing.T) {
	factory := testFactory(t, nil)

	out, err := execute(t, factory, "killswitch", "activate", "beta", "--user", "ops", "--reason", "outage", "--env", "staging")
	require.NoError(t, err)
	assert.Equal(t, "kill switch for beta in staging activated by ops\n", out)

	out, err = execute(t, factory, "--format", "json", "killswitch", "deactivate", "beta", "--user", "ops")
	require.NoError(t, err)
	var ks toggle.KillSwitch
	require.NoError(t, json.Unmarshal([]byte(out), &ks))
	assert.False(t, ks.Active)
	assert.Equal(t, "ops", ks.DeactivatedBy)

	_, err = execute(t, factory, "killswitch", "activate", "beta")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")
}

func TestAuditCommand(t *testing.T) {
	out, err := execute(t, testFactory(t, nil), "audit", "--feature", "beta", "--since", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "TIME")

	_, err = execute(t, testFactory(t, map[string]string{"AUDIT_DESTINATION": "none"}), "audit")
	assert.ErrorIs(t, err, app.ErrAuditUnavailable)

	_, err = execute(t, testFactory(t, nil), "audit", "--env", "moon")
	assert.Error(t, err)
}

func TestListenCommand_RequiresPropagation(t *testing.T) {
	_, err := execute(t, testFactory(t, nil), "listen")
	assert.ErrorIs(t, err, app.ErrPropagationDisabled)
}

func TestOpsHandler(t *testing.T) {
	a, err := testFactory(t, nil)(context.Background())
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.Engine.IsEnabled(context.Background(), "beta")
	require.NoError(t, err)

	srv := httptest.NewServer(opsHandler(a))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body := new(bytes.Buffer)
	_, _ = body.ReadFrom(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body.String(), "toggler_evaluations_total")

	res, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}
