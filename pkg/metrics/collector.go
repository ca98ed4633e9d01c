package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/toggler/pkg/toggle"
)

const namespace = "toggler"

// Collector records engine and audit metrics.
type Collector struct {
	evaluations  *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	auditEntries *prometheus.CounterVec
	killSwitches prometheus.Gauge
}

// New creates a Collector and registers its metrics on reg.
// It panics if a metric with the same name is already registered.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Feature evaluations by outcome and deciding rule.",
		}, []string{"enabled", "reason"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_cache_lookups_total",
			Help:      "Decision cache lookups by result.",
		}, []string{"result"}),
		auditEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Audit entries by delivery status.",
		}, []string{"status"}),
		killSwitches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_kill_switches",
			Help:      "Number of kill switches currently active in this instance.",
		}),
	}
}

// Evaluation counts one evaluation result.
func (c *Collector) Evaluation(enabled bool, reason toggle.Reason) {
	c.evaluations.WithLabelValues(strconv.FormatBool(enabled), string(reason)).Inc()
}

func (c *Collector) CacheHit()  { c.cacheLookups.WithLabelValues("hit").Inc() }
func (c *Collector) CacheMiss() { c.cacheLookups.WithLabelValues("miss").Inc() }

// ActiveKillSwitches sets the kill switch gauge.
func (c *Collector) ActiveKillSwitches(n int) {
	c.killSwitches.Set(float64(n))
}

// AuditWritten counts entries persisted by the audit storage.
func (c *Collector) AuditWritten(n int) { c.addAudit("written", n) }

// AuditDropped counts entries rejected because the queue was full or closed.
func (c *Collector) AuditDropped(n int) { c.addAudit("dropped", n) }

// AuditFailed counts entries lost to storage errors.
func (c *Collector) AuditFailed(n int) { c.addAudit("failed", n) }

func (c *Collector) addAudit(status string, n int) {
	if n <= 0 {
		return
	}
	c.auditEntries.WithLabelValues(status).Add(float64(n))
}
