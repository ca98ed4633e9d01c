package promotion_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
	"github.com/dmitrymomot/toggler/pkg/promotion"
)

// recordingLogger captures audit entries synchronously.
type recordingLogger struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (l *recordingLogger) Log(e audit.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *recordingLogger) actions() []audit.Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]audit.Action, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Action)
	}
	return out
}

func newWorkflow(t *testing.T, opts ...promotion.Option) (*promotion.Workflow, *recordingLogger) {
	t.Helper()
	rec := &recordingLogger{}
	opts = append([]promotion.Option{
		promotion.WithAuditLogger(rec),
		promotion.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return promotion.NewWorkflow(opts...), rec
}

func TestWorkflow_RequestApprove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w, rec := newWorkflow(t)

	req, err := w.Request(ctx, "epsilon", environment.Development, environment.Staging, "dev1")
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, promotion.StatusRequested, req.Status)
	assert.True(t, req.Pending())
	assert.Equal(t, "dev1", req.RequestedBy)

	approved, err := w.Approve(ctx, "epsilon", environment.Development, environment.Staging, "lead1")
	require.NoError(t, err)
	assert.Equal(t, req.ID, approved.ID)
	assert.Equal(t, promotion.StatusApproved, approved.Status)
	assert.Equal(t, "lead1", approved.ResolvedBy)
	assert.False(t, approved.ResolvedAt.IsZero())
	assert.True(t, approved.Status.Terminal())

	assert.Equal(t, []audit.Action{audit.ActionPromotionRequested, audit.ActionPromotionApproved}, rec.actions())
}

func TestWorkflow_RejectThenApproveFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w, rec := newWorkflow(t)

	_, err := w.Request(ctx, "epsilon", environment.Development, environment.Staging, "dev1")
	require.NoError(t, err)

	rejected, err := w.Reject(ctx, "epsilon", environment.Development, environment.Staging, "lead1", "needs more testing")
	require.NoError(t, err)
	assert.Equal(t, promotion.StatusRejected, rejected.Status)
	assert.Equal(t, "needs more testing", rejected.Reason)

	_, err = w.Approve(ctx, "epsilon", environment.Development, environment.Staging, "lead1")
	require.Error(t, err)
	assert.ErrorIs(t, err, promotion.ErrInvalidTransition)
	assert.True(t, promotion.IsInvalidTransition(err))

	var terr *promotion.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, promotion.StatusRejected, terr.From)
	assert.Equal(t, promotion.EventApprove, terr.Event)

	_, err = w.Reject(ctx, "epsilon", environment.Development, environment.Staging, "lead1", "again")
	assert.ErrorIs(t, err, promotion.ErrInvalidTransition)

	assert.Equal(t, []audit.Action{audit.ActionPromotionRequested, audit.ActionPromotionRejected}, rec.actions())
}

func TestWorkflow_Terminality(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w, _ := newWorkflow(t)

	req, err := w.Request(ctx, "f", environment.Testing, environment.Production, "dev")
	require.NoError(t, err)
	_, err = w.ApproveByID(ctx, req.ID, "lead")
	require.NoError(t, err)

	_, err = w.ApproveByID(ctx, req.ID, "lead")
	assert.True(t, promotion.IsInvalidTransition(err))
	_, err = w.RejectByID(ctx, req.ID, "lead", "late")
	assert.True(t, promotion.IsInvalidTransition(err))

	got, ok := w.Get(req.ID)
	require.True(t, ok)
	assert.Equal(t, promotion.StatusApproved, got.Status)
}

func TestWorkflow_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w, _ := newWorkflow(t)

	_, err := w.Request(ctx, "", environment.Development, environment.Staging, "dev")
	assert.ErrorIs(t, err, promotion.ErrInvalidRequest)

	_, err = w.Request(ctx, "f", environment.Staging, environment.Staging, "dev")
	assert.ErrorIs(t, err, promotion.ErrSameEnvironment)

	_, err = w.Request(ctx, "f", environment.Environment("moon"), environment.Staging, "dev")
	assert.ErrorIs(t, err, promotion.ErrInvalidEnvironment)

	_, err = w.Request(ctx, "f", environment.Development, environment.Staging, "")
	assert.ErrorIs(t, err, promotion.ErrInvalidRequest)

	_, err = w.Approve(ctx, "f", environment.Development, environment.Staging, "lead")
	assert.ErrorIs(t, err, promotion.ErrRequestNotFound)

	_, err = w.ApproveByID(ctx, "missing", "lead")
	assert.ErrorIs(t, err, promotion.ErrRequestNotFound)

	req, err := w.Request(ctx, "f", environment.Development, environment.Staging, "dev")
	require.NoError(t, err)

	_, err = w.RejectByID(ctx, req.ID, "lead", "")
	assert.ErrorIs(t, err, promotion.ErrReasonRequired)

	_, err = w.ApproveByID(ctx, req.ID, "")
	assert.ErrorIs(t, err, promotion.ErrInvalidRequest)

	got, ok := w.Get(req.ID)
	require.True(t, ok)
	assert.True(t, got.Pending())
}

func TestWorkflow_OnePendingPerRoute(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w, _ := newWorkflow(t)

	first, err := w.Request(ctx, "f", environment.Development, environment.Staging, "dev")
	require.NoError(t, err)

	_, err = w.Request(ctx, "f", environment.Development, environment.Staging, "dev")
	assert.ErrorIs(t, err, promotion.ErrAlreadyPending)

	// A different route is independent.
	_, err = w.Request(ctx, "f", environment.Staging, environment.Production, "dev")
	require.NoError(t, err)

	_, err = w.RejectByID(ctx, first.ID, "lead", "not yet")
	require.NoError(t, err)

	second, err := w.Request(ctx, "f", environment.Development, environment.Staging, "dev")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	latest, ok := w.Latest("f", environment.Development, environment.Staging)
	require.True(t, ok)
	assert.Equal(t, second.ID, latest.ID)

	approved, err := w.Approve(ctx, "f", environment.Development, environment.Staging, "lead")
	require.NoError(t, err)
	assert.Equal(t, second.ID, approved.ID)
}

func TestWorkflow_Queries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w, _ := newWorkflow(t)

	a, err := w.Request(ctx, "a", environment.Development, environment.Testing, "dev")
	require.NoError(t, err)
	b, err := w.Request(ctx, "b", environment.Development, environment.Testing, "dev")
	require.NoError(t, err)
	_, err = w.ApproveByID(ctx, a.ID, "lead")
	require.NoError(t, err)

	pending := w.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)

	all := w.List("")
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)

	onlyA := w.List("a")
	require.Len(t, onlyA, 1)
	assert.Equal(t, promotion.StatusApproved, onlyA[0].Status)

	assert.Empty(t, w.List("missing"))
	_, ok := w.Get("missing")
	assert.False(t, ok)
	_, ok = w.Latest("missing", environment.Development, environment.Testing)
	assert.False(t, ok)
}

func TestWorkflow_Applier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls atomic.Int32
	fail := atomic.Bool{}
	fail.Store(true)
	applier := promotion.ApplierFunc(func(ctx context.Context, r promotion.Request) error {
		calls.Add(1)
		assert.Equal(t, promotion.StatusRequested, r.Status)
		if fail.Load() {
			return errors.New("target store offline")
		}
		return nil
	})

	w, rec := newWorkflow(t, promotion.WithApplier(applier))

	req, err := w.Request(ctx, "f", environment.Staging, environment.Production, "dev")
	require.NoError(t, err)

	_, err = w.ApproveByID(ctx, req.ID, "lead")
	assert.ErrorIs(t, err, promotion.ErrApplyFailed)
	got, _ := w.Get(req.ID)
	assert.True(t, got.Pending(), "failed apply keeps the request pending")

	fail.Store(false)
	approved, err := w.ApproveByID(ctx, req.ID, "lead")
	require.NoError(t, err)
	assert.Equal(t, promotion.StatusApproved, approved.Status)
	assert.Equal(t, int32(2), calls.Load())

	// Rejection never invokes the applier.
	req2, err := w.Request(ctx, "g", environment.Staging, environment.Production, "dev")
	require.NoError(t, err)
	_, err = w.RejectByID(ctx, req2.ID, "lead", "no")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	assert.Equal(t, []audit.Action{
		audit.ActionPromotionRequested,
		audit.ActionPromotionApproved,
		audit.ActionPromotionRequested,
		audit.ActionPromotionRejected,
	}, rec.actions())
}

func TestWorkflow_Observer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var mu sync.Mutex
	var seen []audit.Action
	w, _ := newWorkflow(t, promotion.WithObserver(func(ctx context.Context, r promotion.Request, action audit.Action) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, action)
	}))

	_, err := w.Request(ctx, "f", environment.Development, environment.Staging, "dev")
	require.NoError(t, err)
	_, err = w.Approve(ctx, "f", environment.Development, environment.Staging, "lead")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []audit.Action{audit.ActionPromotionRequested, audit.ActionPromotionApproved}, seen)
}

func TestWorkflow_ConcurrentApprove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w, rec := newWorkflow(t, promotion.WithClock(func() time.Time {
		return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}))

	req, err := w.Request(ctx, "f", environment.Development, environment.Staging, "dev")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var ok, invalid atomic.Int32
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.ApproveByID(ctx, req.ID, "lead")
			switch {
			case err == nil:
				ok.Add(1)
			case promotion.IsInvalidTransition(err):
				invalid.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(19), invalid.Load())
	assert.Len(t, rec.actions(), 2)
}
