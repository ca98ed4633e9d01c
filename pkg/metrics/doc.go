// Package metrics exposes toggle evaluation and audit pipeline counters to
// Prometheus.
//
// A Collector satisfies both toggle.Metrics and audit.Metrics, so one value
// is passed to the engine and to the audit writer:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//
//	writer, closeAudit := audit.NewAsyncWriter(storage, audit.AsyncOptions{Metrics: m})
//	engine, err := toggle.NewEngine(provider,
//	    toggle.WithAuditLogger(writer),
//	    toggle.WithMetrics(m),
//	)
//
// Metrics are registered on the given registerer. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics handler.
package metrics
