package toggle

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
	"github.com/dmitrymomot/toggler/pkg/promotion"
)

// Metrics receives evaluation and cache counters.
type Metrics interface {
	Evaluation(enabled bool, reason Reason)
	CacheHit()
	CacheMiss()
	ActiveKillSwitches(n int)
}

// Option configures an Engine.
type Option func(*Engine)

// WithEnvironment sets the default environment used by IsEnabled and IsEnabledForUser.
func WithEnvironment(env environment.Environment) Option {
	return func(e *Engine) { e.env = env }
}

// WithCache toggles the decision cache. Enabled by default.
func WithCache(enabled bool) Option {
	return func(e *Engine) { e.cacheEnabled = enabled }
}

// WithCacheTTL sets how long a decision stays fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.cacheTTL = ttl
		}
	}
}

// WithCacheCapacity bounds the number of cached decisions.
func WithCacheCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cacheCapacity = n
		}
	}
}

// WithAuditLogger sets the audit sink. Defaults to discarding entries.
func WithAuditLogger(l audit.Logger) Option {
	return func(e *Engine) { e.audit = l }
}

// WithPropagator sets the change propagator.
func WithPropagator(p Propagator) Option {
	return func(e *Engine) { e.propagator = p }
}

// WithPropagationTimeout bounds every propagation call.
func WithPropagationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.propagationTimeout = d
		}
	}
}

// WithPromotionApplier sets the collaborator invoked when a promotion is approved.
func WithPromotionApplier(a promotion.Applier) Option {
	return func(e *Engine) { e.applier = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithInstanceID names this engine in propagated changes so it can ignore its own echoes.
func WithInstanceID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.instanceID = id
		}
	}
}

// WithClock replaces time.Now for cache expiry, kill switch and change timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
