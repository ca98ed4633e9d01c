package toggle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
	"github.com/dmitrymomot/toggler/pkg/feature"
	"github.com/dmitrymomot/toggler/pkg/logger"
	"github.com/dmitrymomot/toggler/pkg/promotion"
)

// ActivateKillSwitch forces the feature off in env for every caller.
// It overwrites any prior record, drops all cached decisions, writes one
// audit entry and propagates the change. Audit and propagation failures
// are logged only.
func (e *Engine) ActivateKillSwitch(ctx context.Context, name string, env environment.Environment, reason, userID string) error {
	if err := validate(name, env); err != nil {
		return err
	}

	e.registry.Activate(name, env, reason, userID)
	e.invalidate()
	e.reportKillSwitches()

	e.record(ctx, "kill switch activated", name, env, audit.ActionKillSwitchActivated, userID, reason)
	e.propagate(Change{
		Feature:     name,
		Environment: env,
		Action:      audit.ActionKillSwitchActivated,
		UserID:      userID,
		Reason:      reason,
	})
	return nil
}

// DeactivateKillSwitch turns the kill switch off. Deactivating an inactive or
// unknown switch is not an error and is still audited.
func (e *Engine) DeactivateKillSwitch(ctx context.Context, name string, env environment.Environment, userID string) error {
	if err := validate(name, env); err != nil {
		return err
	}

	_, wasActive := e.registry.Deactivate(name, env, userID)
	e.invalidate()
	e.reportKillSwitches()

	details := ""
	if !wasActive {
		details = "kill switch was not active"
	}
	e.record(ctx, "kill switch deactivated", name, env, audit.ActionKillSwitchDeactivated, userID, details)
	e.propagate(Change{
		Feature:     name,
		Environment: env,
		Action:      audit.ActionKillSwitchDeactivated,
		UserID:      userID,
	})
	return nil
}

// SetFeatureState changes a feature's base enabled flag.
func (e *Engine) SetFeatureState(ctx context.Context, name string, enabled bool, userID string) error {
	return e.updateFlag(ctx, name, userID, audit.ActionFeatureStateChanged,
		fmt.Sprintf("enabled=%t", enabled),
		func(f *feature.Flag) { f.Enabled = enabled },
	)
}

// UpdateAttributes replaces a feature's attribute map.
func (e *Engine) UpdateAttributes(ctx context.Context, name string, attrs feature.Attributes, userID string) error {
	if err := attrs.Validate(); err != nil {
		return errors.Join(feature.ErrInvalidFlag, err)
	}
	return e.updateFlag(ctx, name, userID, audit.ActionAttributesUpdated,
		fmt.Sprintf("%d attributes", len(attrs)),
		func(f *feature.Flag) { f.Attributes = attrs.Clone() },
	)
}

// SetRolloutOptions replaces a feature's rollout options. Nil removes them.
func (e *Engine) SetRolloutOptions(ctx context.Context, name string, opts *feature.RolloutOptions, userID string) error {
	details := "rollout removed"
	var rollout *feature.RolloutOptions
	if opts != nil {
		if err := opts.Validate(); err != nil {
			return errors.Join(feature.ErrInvalidFlag, err)
		}
		clone := opts.Clone()
		rollout = &clone
		details = fmt.Sprintf("percentage=%d", clone.EffectivePercentage())
	}
	return e.updateFlag(ctx, name, userID, audit.ActionRolloutUpdated, details,
		func(f *feature.Flag) { f.Rollout = rollout },
	)
}

func (e *Engine) updateFlag(ctx context.Context, name, userID string, action audit.Action, details string, mutate func(*feature.Flag)) error {
	if name == "" {
		return ErrInvalidFeature
	}

	e.mutateMu.Lock()
	flag, err := e.provider.GetFlag(ctx, name)
	if err != nil {
		e.mutateMu.Unlock()
		return sourceError(err)
	}
	mutate(flag)
	err = e.provider.UpdateFlag(ctx, flag)
	e.mutateMu.Unlock()
	if err != nil {
		return sourceError(err)
	}
	e.invalidate()

	e.record(ctx, "feature updated", name, e.env, action, userID, details)
	e.propagate(Change{
		Feature:     name,
		Environment: e.env,
		Action:      action,
		UserID:      userID,
		Reason:      details,
	})
	return nil
}

// sourceError wraps provider failures other than a missing flag.
func sourceError(err error) error {
	if errors.Is(err, feature.ErrFlagNotFound) {
		return err
	}
	return errors.Join(ErrSourceUnavailable, err)
}

// RequestPromotion opens a promotion for an existing feature.
func (e *Engine) RequestPromotion(ctx context.Context, name string, from, to environment.Environment, userID string) (promotion.Request, error) {
	if _, err := e.Flag(ctx, name); err != nil {
		return promotion.Request{}, err
	}
	return e.workflow.Request(ctx, name, from, to, userID)
}

// ApprovePromotion approves the latest promotion request for the route.
func (e *Engine) ApprovePromotion(ctx context.Context, name string, from, to environment.Environment, userID string) (promotion.Request, error) {
	r, err := e.workflow.Approve(ctx, name, from, to, userID)
	if err != nil {
		return r, err
	}
	// The applier may have changed base state.
	e.invalidate()
	return r, nil
}

// RejectPromotion rejects the latest promotion request for the route.
func (e *Engine) RejectPromotion(ctx context.Context, name string, from, to environment.Environment, userID, reason string) (promotion.Request, error) {
	return e.workflow.Reject(ctx, name, from, to, userID, reason)
}

func (e *Engine) onPromotion(ctx context.Context, r promotion.Request, action audit.Action) {
	userID := r.RequestedBy
	if r.ResolvedBy != "" {
		userID = r.ResolvedBy
	}
	e.propagate(Change{
		Feature:     r.Feature,
		Environment: r.To,
		Action:      action,
		UserID:      userID,
		Reason:      r.Reason,
	})
}

// ApplyChange mirrors a change published by another instance. It updates the
// local registry and cache only; nothing is audited or propagated again.
// Changes carrying this engine's own origin are ignored.
func (e *Engine) ApplyChange(ctx context.Context, c Change) error {
	if c.Origin != "" && c.Origin == e.instanceID {
		return nil
	}
	if err := validate(c.Feature, c.Environment); err != nil {
		return errors.Join(ErrInvalidChange, err)
	}

	switch c.Action {
	case audit.ActionKillSwitchActivated:
		e.registry.Put(KillSwitch{
			Feature:     c.Feature,
			Environment: c.Environment,
			Active:      true,
			Reason:      c.Reason,
			ActivatedBy: c.UserID,
			ActivatedAt: c.Timestamp,
		})
	case audit.ActionKillSwitchDeactivated:
		if ks, ok := e.registry.Get(c.Feature, c.Environment); ok {
			ks.Active = false
			ks.DeactivatedBy = c.UserID
			ks.DeactivatedAt = c.Timestamp
			e.registry.Put(ks)
		}
	case audit.ActionFeatureStateChanged,
		audit.ActionAttributesUpdated,
		audit.ActionRolloutUpdated,
		audit.ActionPromotionApproved:
	case audit.ActionPromotionRequested, audit.ActionPromotionRejected:
		// No local state depends on these.
		return nil
	default:
		return errors.Join(ErrInvalidChange, fmt.Errorf("unknown action %q", c.Action))
	}

	e.invalidate()
	e.reportKillSwitches()
	e.logger.InfoContext(ctx, "applied remote change",
		logger.Feature(c.Feature),
		logger.Environment(c.Environment.String()),
		logger.Action(c.Action.String()),
		logger.UserID(c.UserID),
		slog.String("origin", c.Origin),
	)
	return nil
}

// Close waits for in-flight propagations, bounded by ctx. Changes made after
// Close has been called are no longer propagated.
func (e *Engine) Close(ctx context.Context) error {
	e.closeMu.Lock()
	e.closed = true
	e.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) record(ctx context.Context, msg, name string, env environment.Environment, action audit.Action, userID, details string) {
	log := e.logger.With(
		logger.Feature(name),
		logger.Environment(env.String()),
		logger.Action(action.String()),
		logger.UserID(userID),
	)
	log.InfoContext(ctx, msg, slog.String("details", details))

	if e.audit == nil {
		return
	}
	if err := e.audit.Log(audit.NewEntry(name, env, action, userID, details)); err != nil {
		log.WarnContext(ctx, "failed to enqueue audit entry", logger.Error(err))
	}
}

// propagate runs the propagator in the background so callers never wait on it.
func (e *Engine) propagate(c Change) {
	if e.propagator == nil {
		return
	}

	c.ID = uuid.NewString()
	c.Origin = e.instanceID
	c.Timestamp = e.now().UTC()

	e.closeMu.RLock()
	if e.closed {
		e.closeMu.RUnlock()
		e.logger.Warn("engine closed, change not propagated",
			logger.Feature(c.Feature),
			logger.Action(c.Action.String()),
		)
		return
	}
	e.inflight.Add(1)
	e.closeMu.RUnlock()

	go func() {
		defer e.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.propagationTimeout)
		defer cancel()

		if err := e.propagator.Propagate(ctx, c); err != nil {
			e.logger.Warn("failed to propagate change",
				logger.Feature(c.Feature),
				logger.Environment(c.Environment.String()),
				logger.Action(c.Action.String()),
				logger.Error(err),
			)
		}
	}()
}

func (e *Engine) reportKillSwitches() {
	if e.metrics != nil {
		e.metrics.ActiveKillSwitches(e.registry.ActiveCount())
	}
}
