// Package toggle evaluates feature flags and manages their runtime overrides.
//
// Engine combines a feature.Provider (base state, attributes, rollout options)
// with a kill switch Registry and a TTL decision cache:
//
//	engine, err := toggle.NewEngine(provider,
//		toggle.WithEnvironment(environment.Production),
//		toggle.WithCacheTTL(30*time.Second),
//		toggle.WithAuditLogger(auditWriter),
//		toggle.WithPropagator(redisPropagator),
//	)
//
//	on, err := engine.IsEnabled(ctx, "beta")
//	on, err = engine.IsEnabledForUser(ctx, "beta", feature.User{ID: "u1", Segment: "staff"})
//
// Plain evaluation checks the cache, then the kill switch, then the base state,
// caching the answer. User-scoped evaluation walks attribute rules (KillSwitch,
// Enabled, AllowList, DenyList) and rollout options (specific users, groups,
// percentage bucket) before falling back to plain evaluation. An active kill
// switch always wins.
//
// A feature the provider does not know evaluates to false. Any other provider
// error is returned wrapped in ErrSourceUnavailable and nothing is cached.
//
// Every mutation (kill switch, base state, attributes, rollout options,
// promotion approval) invalidates the whole decision cache, writes one audit
// entry and hands a Change to the Propagator in the background. Audit and
// propagation failures are logged and never returned. Another instance applies
// a received Change with ApplyChange.
//
// Kill switches and cached decisions live in memory only and are lost on restart.
package toggle
