package promotion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
	"github.com/dmitrymomot/toggler/pkg/logger"
)

// Applier copies a feature's state into the target environment once a
// promotion is approved. An error keeps the request pending.
type Applier interface {
	Apply(ctx context.Context, r Request) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(ctx context.Context, r Request) error

func (f ApplierFunc) Apply(ctx context.Context, r Request) error { return f(ctx, r) }

// Observer is called after every successful state change.
type Observer func(ctx context.Context, r Request, action audit.Action)

// Workflow manages promotion requests in memory. Requests are addressed by
// ID or by their (feature, from, to) route, which resolves to the latest
// request created for that route.
type Workflow struct {
	mu       sync.RWMutex
	requests map[string]*Request
	latest   map[routeKey]string
	order    []string

	audit    audit.Logger
	applier  Applier
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithAuditLogger sets the audit sink for request, approve and reject actions.
func WithAuditLogger(l audit.Logger) Option {
	return func(w *Workflow) { w.audit = l }
}

// WithApplier sets the collaborator invoked on approval.
func WithApplier(a Applier) Option {
	return func(w *Workflow) { w.applier = a }
}

// WithObserver sets a hook called after every state change.
func WithObserver(o Observer) Option {
	return func(w *Workflow) { w.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWorkflow creates an empty workflow.
func NewWorkflow(opts ...Option) *Workflow {
	w := &Workflow{
		requests: make(map[string]*Request),
		latest:   make(map[routeKey]string),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.Component("promotion"))
	return w
}

// Request opens a promotion of feature from one environment to another.
// Only one request per route may be pending at a time.
func (w *Workflow) Request(ctx context.Context, feature string, from, to environment.Environment, userID string) (Request, error) {
	if err := validateRoute(feature, from, to); err != nil {
		return Request{}, err
	}
	if userID == "" {
		return Request{}, errors.Join(ErrInvalidRequest, errors.New("requesting user is required"))
	}

	r := &Request{
		ID:          uuid.NewString(),
		Feature:     feature,
		From:        from,
		To:          to,
		RequestedBy: userID,
		RequestedAt: w.now().UTC(),
		Status:      StatusRequested,
	}

	w.mu.Lock()
	key := r.route()
	if id, ok := w.latest[key]; ok && w.requests[id].Pending() {
		w.mu.Unlock()
		return Request{}, fmt.Errorf("%w: %s", ErrAlreadyPending, id)
	}
	w.requests[r.ID] = r
	w.latest[key] = r.ID
	w.order = append(w.order, r.ID)
	snapshot := *r
	w.mu.Unlock()

	w.record(ctx, snapshot, audit.ActionPromotionRequested, userID,
		fmt.Sprintf("promotion %s -> %s requested", from, to))
	return snapshot, nil
}

// Approve resolves the latest request for the route as approved.
func (w *Workflow) Approve(ctx context.Context, feature string, from, to environment.Environment, userID string) (Request, error) {
	id, err := w.lookup(feature, from, to)
	if err != nil {
		return Request{}, err
	}
	return w.ApproveByID(ctx, id, userID)
}

// Reject resolves the latest request for the route as rejected. A reason is required.
func (w *Workflow) Reject(ctx context.Context, feature string, from, to environment.Environment, userID, reason string) (Request, error) {
	id, err := w.lookup(feature, from, to)
	if err != nil {
		return Request{}, err
	}
	return w.RejectByID(ctx, id, userID, reason)
}

// ApproveByID approves a request. When an Applier is configured it runs
// before the status changes and its failure leaves the request pending.
func (w *Workflow) ApproveByID(ctx context.Context, id, userID string) (Request, error) {
	return w.fire(ctx, id, EventApprove, userID, "")
}

// RejectByID rejects a request with a mandatory reason.
func (w *Workflow) RejectByID(ctx context.Context, id, userID, reason string) (Request, error) {
	if reason == "" {
		return Request{}, ErrReasonRequired
	}
	return w.fire(ctx, id, EventReject, userID, reason)
}

func (w *Workflow) fire(ctx context.Context, id string, event Event, userID, reason string) (Request, error) {
	if userID == "" {
		return Request{}, errors.Join(ErrInvalidRequest, errors.New("resolving user is required"))
	}

	// The lock is held across the applier so concurrent approvals of the
	// same request cannot both run it.
	w.mu.Lock()
	r, ok := w.requests[id]
	if !ok {
		w.mu.Unlock()
		return Request{}, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}

	to, ok := next(r.Status, event)
	if !ok {
		w.mu.Unlock()
		return Request{}, &TransitionError{RequestID: id, From: r.Status, Event: event}
	}

	if event == EventApprove && w.applier != nil {
		if err := w.applier.Apply(ctx, *r); err != nil {
			w.mu.Unlock()
			return Request{}, errors.Join(ErrApplyFailed, err)
		}
	}

	r.Status = to
	r.ResolvedBy = userID
	r.ResolvedAt = w.now().UTC()
	r.Reason = reason
	snapshot := *r
	w.mu.Unlock()

	action := audit.ActionPromotionApproved
	details := fmt.Sprintf("promotion %s -> %s approved", snapshot.From, snapshot.To)
	if event == EventReject {
		action = audit.ActionPromotionRejected
		details = fmt.Sprintf("promotion %s -> %s rejected: %s", snapshot.From, snapshot.To, reason)
	}
	w.record(ctx, snapshot, action, userID, details)
	return snapshot, nil
}

// Get returns a request by ID.
func (w *Workflow) Get(id string) (Request, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	r, ok := w.requests[id]
	if !ok {
		return Request{}, false
	}
	return *r, true
}

// Latest returns the most recent request for a route.
func (w *Workflow) Latest(feature string, from, to environment.Environment) (Request, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	id, ok := w.latest[routeKey{feature: feature, from: from, to: to}]
	if !ok {
		return Request{}, false
	}
	return *w.requests[id], true
}

// Pending returns all pending requests in creation order.
func (w *Workflow) Pending() []Request {
	return w.filter(func(r *Request) bool { return r.Pending() })
}

// List returns every request for feature in creation order. An empty feature lists all.
func (w *Workflow) List(feature string) []Request {
	return w.filter(func(r *Request) bool { return feature == "" || r.Feature == feature })
}

func (w *Workflow) filter(keep func(r *Request) bool) []Request {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]Request, 0)
	for _, id := range w.order {
		if r := w.requests[id]; keep(r) {
			result = append(result, *r)
		}
	}
	return result
}

func (w *Workflow) lookup(feature string, from, to environment.Environment) (string, error) {
	if err := validateRoute(feature, from, to); err != nil {
		return "", err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	id, ok := w.latest[routeKey{feature: feature, from: from, to: to}]
	if !ok {
		return "", fmt.Errorf("%w: %s %s -> %s", ErrRequestNotFound, feature, from, to)
	}
	return id, nil
}

func (w *Workflow) record(ctx context.Context, r Request, action audit.Action, userID, details string) {
	log := w.logger.With(
		logger.Feature(r.Feature),
		logger.Action(action.String()),
		logger.UserID(userID),
		slog.String("request_id", r.ID),
	)
	log.InfoContext(ctx, "promotion state changed",
		slog.String("from", r.From.String()),
		slog.String("to", r.To.String()),
		slog.String("status", string(r.Status)),
	)

	if w.audit != nil {
		entry := audit.NewEntry(r.Feature, r.To, action, userID, details)
		if err := w.audit.Log(entry); err != nil {
			log.WarnContext(ctx, "failed to enqueue audit entry", logger.Error(err))
		}
	}
	if w.observer != nil {
		w.observer(ctx, r, action)
	}
}

func validateRoute(feature string, from, to environment.Environment) error {
	if feature == "" {
		return errors.Join(ErrInvalidRequest, errors.New("feature name is required"))
	}
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: %q -> %q", ErrInvalidEnvironment, from, to)
	}
	if from == to {
		return ErrSameEnvironment
	}
	return nil
}
