package toggle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/cache"
	"github.com/dmitrymomot/toggler/pkg/environment"
	"github.com/dmitrymomot/toggler/pkg/feature"
	"github.com/dmitrymomot/toggler/pkg/logger"
	"github.com/dmitrymomot/toggler/pkg/promotion"
)

// Reason explains which rule produced a decision.
type Reason string

const (
	ReasonCached         Reason = "cached"
	ReasonKillSwitch     Reason = "kill_switch"
	ReasonBaseState      Reason = "base_state"
	ReasonNotFound       Reason = "not_found"
	ReasonAttrKillSwitch Reason = "attribute_kill_switch"
	ReasonAttrDisabled   Reason = "attribute_disabled"
	ReasonAllowList      Reason = "allow_list"
	ReasonDenyList       Reason = "deny_list"
	ReasonSpecificUser   Reason = "specific_user"
	ReasonUserGroup      Reason = "user_group"
	ReasonRollout        Reason = "rollout"
)

// Decision is the outcome of an evaluation.
type Decision struct {
	Feature     string                  `json:"feature"`
	Environment environment.Environment `json:"environment"`
	UserID      string                  `json:"user_id,omitempty"`
	Enabled     bool                    `json:"enabled"`
	Reason      Reason                  `json:"reason"`
}

// cachedDecision is only valid while generation matches the engine's.
// Invalidation bumps the generation, so a value computed before a mutation
// and stored after it is never served.
type cachedDecision struct {
	enabled    bool
	generation uint64
}

// Engine evaluates features and owns the kill switch registry and the
// decision cache. It is safe for concurrent use.
type Engine struct {
	provider   feature.Provider
	registry   *Registry
	decisions  *cache.TTLCache[Key, cachedDecision]
	generation atomic.Uint64
	workflow   *promotion.Workflow

	env                environment.Environment
	cacheEnabled       bool
	cacheTTL           time.Duration
	cacheCapacity      int
	audit              audit.Logger
	propagator         Propagator
	propagationTimeout time.Duration
	applier            promotion.Applier
	logger             *slog.Logger
	metrics            Metrics
	instanceID         string
	now                func() time.Time

	// mutateMu serializes read-modify-write cycles on the provider.
	mutateMu sync.Mutex

	closeMu  sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// NewEngine creates an engine on top of a base-state provider.
func NewEngine(provider feature.Provider, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}

	e := &Engine{
		provider:           provider,
		env:                environment.Production,
		cacheEnabled:       true,
		cacheTTL:           30 * time.Second,
		cacheCapacity:      10000,
		propagationTimeout: 5 * time.Second,
		logger:             slog.Default(),
		instanceID:         uuid.NewString(),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if !e.env.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEnvironment, e.env)
	}

	e.logger = e.logger.With(logger.Component("toggle"))
	e.registry = NewRegistry(e.now)
	if e.cacheEnabled {
		e.decisions = cache.NewTTLCache[Key, cachedDecision](e.cacheCapacity, cache.WithClock(e.now))
	}

	wfOpts := []promotion.Option{
		promotion.WithObserver(e.onPromotion),
		promotion.WithLogger(e.logger),
		promotion.WithClock(e.now),
	}
	if e.audit != nil {
		wfOpts = append(wfOpts, promotion.WithAuditLogger(e.audit))
	}
	if e.applier != nil {
		wfOpts = append(wfOpts, promotion.WithApplier(e.applier))
	}
	e.workflow = promotion.NewWorkflow(wfOpts...)

	return e, nil
}

// Environment returns the default environment.
func (e *Engine) Environment() environment.Environment { return e.env }

// InstanceID returns the origin stamped on propagated changes.
func (e *Engine) InstanceID() string { return e.instanceID }

// Promotions exposes the promotion workflow for queries.
func (e *Engine) Promotions() *promotion.Workflow { return e.workflow }

// IsEnabled evaluates a feature in the default environment.
func (e *Engine) IsEnabled(ctx context.Context, name string) (bool, error) {
	return e.IsEnabledIn(ctx, name, e.env)
}

// IsEnabledIn evaluates a feature in env. Unknown features are disabled;
// provider failures are returned wrapped in ErrSourceUnavailable.
func (e *Engine) IsEnabledIn(ctx context.Context, name string, env environment.Environment) (bool, error) {
	d, err := e.Evaluate(ctx, name, env)
	return d.Enabled, err
}

// IsEnabledForUser evaluates a feature for a user in the default environment.
func (e *Engine) IsEnabledForUser(ctx context.Context, name string, user feature.User) (bool, error) {
	return e.IsEnabledForUserIn(ctx, name, user, e.env)
}

// IsEnabledForUserIn evaluates a feature for a user in env.
func (e *Engine) IsEnabledForUserIn(ctx context.Context, name string, user feature.User, env environment.Environment) (bool, error) {
	d, err := e.EvaluateForUser(ctx, name, user, env)
	return d.Enabled, err
}

// Evaluate is IsEnabledIn returning the full decision.
//
// Order: cache, kill switch, base state. Kill switch and base state results
// are cached for the configured TTL; errors are not.
func (e *Engine) Evaluate(ctx context.Context, name string, env environment.Environment) (Decision, error) {
	if err := validate(name, env); err != nil {
		return Decision{}, err
	}

	d := Decision{Feature: name, Environment: env}
	key := Key{Feature: name, Environment: env}
	gen := e.generation.Load()

	if e.decisions != nil {
		if cached, ok := e.decisions.Get(key); ok && cached.generation == gen {
			e.cacheHit()
			d.Enabled = cached.enabled
			d.Reason = ReasonCached
			e.observe(d)
			return d, nil
		}
		e.cacheMiss()
	}

	if e.registry.IsActive(name, env) {
		d.Reason = ReasonKillSwitch
	} else {
		enabled, err := e.provider.IsEnabled(ctx, name)
		switch {
		case errors.Is(err, feature.ErrFlagNotFound):
			d.Reason = ReasonNotFound
		case err != nil:
			return Decision{}, errors.Join(ErrSourceUnavailable, err)
		default:
			d.Enabled = enabled
			d.Reason = ReasonBaseState
		}
	}

	if e.decisions != nil {
		e.decisions.Set(key, cachedDecision{enabled: d.Enabled, generation: gen}, e.cacheTTL)
	}
	e.observe(d)
	return d, nil
}

// EvaluateForUser is IsEnabledForUserIn returning the full decision.
//
// The first matching rule wins:
//
//  0. active kill switch for (feature, env)
//  1. KillSwitch attribute is true
//  2. Enabled attribute is false
//  3. user on AllowList
//  4. user on DenyList
//  5. user in RolloutOptions.SpecificUsers
//  6. user segment or group in RolloutOptions.SpecificUserGroups
//  7. user bucket below RolloutOptions percentage
//  8. Evaluate(feature, env)
//
// Steps 5 to 7 only apply when the flag has rollout options. Rules keyed on the
// user id (3, 4, 5, 7) are skipped for an empty id.
func (e *Engine) EvaluateForUser(ctx context.Context, name string, user feature.User, env environment.Environment) (Decision, error) {
	if err := validate(name, env); err != nil {
		return Decision{}, err
	}

	d := Decision{Feature: name, Environment: env, UserID: user.ID}

	if e.registry.IsActive(name, env) {
		d.Reason = ReasonKillSwitch
		e.observe(d)
		return d, nil
	}

	flag, err := e.provider.GetFlag(ctx, name)
	if err != nil && !errors.Is(err, feature.ErrFlagNotFound) {
		return Decision{}, errors.Join(ErrSourceUnavailable, err)
	}

	if flag != nil {
		if enabled, reason, ok := matchUser(flag, user); ok {
			d.Enabled = enabled
			d.Reason = reason
			e.observe(d)
			return d, nil
		}
	}

	base, err := e.Evaluate(ctx, name, env)
	if err != nil {
		return Decision{}, err
	}
	base.UserID = user.ID
	return base, nil
}

func matchUser(flag *feature.Flag, user feature.User) (bool, Reason, bool) {
	attrs := flag.Attributes
	if killed, ok := attrs.KillSwitch(); ok && killed {
		return false, ReasonAttrKillSwitch, true
	}
	if enabled, ok := attrs.Enabled(); ok && !enabled {
		return false, ReasonAttrDisabled, true
	}
	if user.ID != "" {
		if attrs.Allows(user.ID) {
			return true, ReasonAllowList, true
		}
		if attrs.Denies(user.ID) {
			return false, ReasonDenyList, true
		}
	}

	rollout := flag.Rollout
	if rollout == nil {
		return false, "", false
	}
	if rollout.TargetsUser(user.ID) {
		return true, ReasonSpecificUser, true
	}
	if rollout.TargetsGroup(user) {
		return true, ReasonUserGroup, true
	}
	if user.ID != "" && feature.InRollout(user.ID, flag.Name, rollout.EffectivePercentage()) {
		return true, ReasonRollout, true
	}
	return false, "", false
}

// IsKillSwitchActive reports the kill switch state in the default environment.
func (e *Engine) IsKillSwitchActive(name string) bool {
	return e.IsKillSwitchActiveIn(name, e.env)
}

// IsKillSwitchActiveIn reports the kill switch state in env.
func (e *Engine) IsKillSwitchActiveIn(name string, env environment.Environment) bool {
	return e.registry.IsActive(name, env)
}

// KillSwitch returns the kill switch record for (name, env).
func (e *Engine) KillSwitch(name string, env environment.Environment) (KillSwitch, bool) {
	return e.registry.Get(name, env)
}

// KillSwitches lists every kill switch record, active or not.
func (e *Engine) KillSwitches() []KillSwitch {
	return e.registry.List()
}

// FeatureAttributes returns a copy of a feature's attributes.
// ok is false when the feature does not exist.
func (e *Engine) FeatureAttributes(ctx context.Context, name string) (feature.Attributes, bool, error) {
	flag, err := e.Flag(ctx, name)
	switch {
	case errors.Is(err, feature.ErrFlagNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	if flag.Attributes == nil {
		return feature.Attributes{}, true, nil
	}
	return flag.Attributes, true, nil
}

// Flag returns a copy of a feature's full configuration.
func (e *Engine) Flag(ctx context.Context, name string) (*feature.Flag, error) {
	if name == "" {
		return nil, ErrInvalidFeature
	}
	flag, err := e.provider.GetFlag(ctx, name)
	switch {
	case errors.Is(err, feature.ErrFlagNotFound):
		return nil, err
	case err != nil:
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	return flag, nil
}

// ListFeatures returns the names of every known feature.
func (e *Engine) ListFeatures(ctx context.Context) ([]string, error) {
	names, err := e.provider.ListFlagNames(ctx)
	if err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	return names, nil
}

// InvalidateCache drops every cached decision.
func (e *Engine) InvalidateCache() {
	e.invalidate()
}

func (e *Engine) invalidate() {
	e.generation.Add(1)
	if e.decisions != nil {
		e.decisions.InvalidateAll()
	}
}

func (e *Engine) observe(d Decision) {
	if e.metrics != nil {
		e.metrics.Evaluation(d.Enabled, d.Reason)
	}
}

func (e *Engine) cacheHit() {
	if e.metrics != nil {
		e.metrics.CacheHit()
	}
}

func (e *Engine) cacheMiss() {
	if e.metrics != nil {
		e.metrics.CacheMiss()
	}
}

func validate(name string, env environment.Environment) error {
	if name == "" {
		return ErrInvalidFeature
	}
	if !env.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEnvironment, env)
	}
	return nil
}
