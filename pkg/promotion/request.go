package promotion

import (
	"time"

	"github.com/dmitrymomot/toggler/pkg/environment"
)

// Status is the lifecycle state of a promotion request.
type Status string

const (
	StatusRequested Status = "requested"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Event moves a request between statuses.
type Event string

const (
	EventApprove Event = "approve"
	EventReject  Event = "reject"
)

// transitions is keyed by [from][event].
var transitions = map[Status]map[Event]Status{
	StatusRequested: {
		EventApprove: StatusApproved,
		EventReject:  StatusRejected,
	},
}

func next(from Status, event Event) (Status, bool) {
	to, ok := transitions[from][event]
	return to, ok
}

// Terminal reports whether no further event is accepted in s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Request is a snapshot of a promotion request.
type Request struct {
	ID          string                  `json:"id"`
	Feature     string                  `json:"feature"`
	From        environment.Environment `json:"from"`
	To          environment.Environment `json:"to"`
	RequestedBy string                  `json:"requested_by"`
	RequestedAt time.Time               `json:"requested_at"`
	Status      Status                  `json:"status"`
	ResolvedBy  string                  `json:"resolved_by,omitempty"`
	ResolvedAt  time.Time               `json:"resolved_at,omitzero"`
	Reason      string                  `json:"reason,omitempty"`
}

// Pending reports whether the request still awaits a decision.
func (r Request) Pending() bool {
	return r.Status == StatusRequested
}

type routeKey struct {
	feature string
	from    environment.Environment
	to      environment.Environment
}

func (r Request) route() routeKey {
	return routeKey{feature: r.Feature, from: r.From, to: r.To}
}
