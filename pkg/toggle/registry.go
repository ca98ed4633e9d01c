package toggle

import (
	"cmp"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/toggler/pkg/environment"
)

// Key identifies a kill switch.
type Key struct {
	Feature     string
	Environment environment.Environment
}

// KillSwitch is the record kept for a (feature, environment) pair.
type KillSwitch struct {
	Feature       string                  `json:"feature"`
	Environment   environment.Environment `json:"environment"`
	Active        bool                    `json:"active"`
	Reason        string                  `json:"reason,omitempty"`
	ActivatedBy   string                  `json:"activated_by,omitempty"`
	ActivatedAt   time.Time               `json:"activated_at,omitzero"`
	DeactivatedBy string                  `json:"deactivated_by,omitempty"`
	DeactivatedAt time.Time               `json:"deactivated_at,omitzero"`
}

// Key returns the registry key of the record.
func (k KillSwitch) Key() Key {
	return Key{Feature: k.Feature, Environment: k.Environment}
}

// Registry holds at most one kill switch record per key. A missing record
// means inactive.
type Registry struct {
	mu      sync.RWMutex
	records map[Key]KillSwitch
	now     func() time.Time
}

// NewRegistry creates an empty registry. A nil clock defaults to time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		records: make(map[Key]KillSwitch),
		now:     now,
	}
}

// IsActive reports whether the kill switch for the key is on.
func (r *Registry) IsActive(feature string, env environment.Environment) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[Key{Feature: feature, Environment: env}].Active
}

// Activate overwrites any prior record for the key with an active one.
func (r *Registry) Activate(feature string, env environment.Environment, reason, userID string) KillSwitch {
	ks := KillSwitch{
		Feature:     feature,
		Environment: env,
		Active:      true,
		Reason:      reason,
		ActivatedBy: userID,
		ActivatedAt: r.now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[ks.Key()] = ks
	return ks
}

// Deactivate turns the kill switch off, keeping the activation details for
// inspection. It returns the resulting record and whether it was active before.
// A key without a record is left untouched.
func (r *Registry) Deactivate(feature string, env environment.Environment, userID string) (KillSwitch, bool) {
	key := Key{Feature: feature, Environment: env}

	r.mu.Lock()
	defer r.mu.Unlock()

	ks, ok := r.records[key]
	if !ok {
		return KillSwitch{Feature: feature, Environment: env}, false
	}
	wasActive := ks.Active
	ks.Active = false
	ks.DeactivatedBy = userID
	ks.DeactivatedAt = r.now().UTC()
	r.records[key] = ks
	return ks, wasActive
}

// Put stores a record as is. Used to mirror changes from other instances.
func (r *Registry) Put(ks KillSwitch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[ks.Key()] = ks
}

// Get returns the record for the key.
func (r *Registry) Get(feature string, env environment.Environment) (KillSwitch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ks, ok := r.records[Key{Feature: feature, Environment: env}]
	return ks, ok
}

// List returns every record sorted by feature, then environment rank.
func (r *Registry) List() []KillSwitch {
	r.mu.RLock()
	out := slices.Collect(maps.Values(r.records))
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b KillSwitch) int {
		return cmp.Or(
			cmp.Compare(a.Feature, b.Feature),
			cmp.Compare(a.Environment.Rank(), b.Environment.Rank()),
		)
	})
	return out
}

// ActiveCount returns the number of active kill switches.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, ks := range r.records {
		if ks.Active {
			n++
		}
	}
	return n
}
