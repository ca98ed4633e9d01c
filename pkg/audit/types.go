package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/toggler/pkg/environment"
)

// Action tags an audit entry.
type Action string

const (
	ActionKillSwitchActivated   Action = "KillSwitchActivated"
	ActionKillSwitchDeactivated Action = "KillSwitchDeactivated"
	ActionPromotionRequested    Action = "PromotionRequested"
	ActionPromotionApproved     Action = "PromotionApproved"
	ActionPromotionRejected     Action = "PromotionRejected"
	ActionFeatureStateChanged   Action = "FeatureStateChanged"
	ActionAttributesUpdated     Action = "AttributesUpdated"
	ActionRolloutUpdated        Action = "RolloutOptionsUpdated"
)

func (a Action) String() string { return string(a) }

// Entry is a single immutable audit record.
type Entry struct {
	ID          string                  `json:"id" bson:"_id"`
	Timestamp   time.Time               `json:"timestamp" bson:"timestamp"`
	Feature     string                  `json:"feature" bson:"feature"`
	Environment environment.Environment `json:"environment" bson:"environment"`
	Action      Action                  `json:"action" bson:"action"`
	UserID      string                  `json:"user_id" bson:"user_id"`
	Details     string                  `json:"details,omitempty" bson:"details,omitempty"`
}

// NewEntry creates an entry stamped with a fresh ID and the current UTC time.
func NewEntry(feature string, env environment.Environment, action Action, userID, details string) Entry {
	return Entry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Feature:     feature,
		Environment: env,
		Action:      action,
		UserID:      userID,
		Details:     details,
	}
}

// Validate checks if the entry has all required fields
func (e Entry) Validate() error {
	switch {
	case e.ID == "":
		return errors.Join(ErrInvalidEntry, errors.New("id is required"))
	case e.Feature == "":
		return errors.Join(ErrInvalidEntry, errors.New("feature is required"))
	case e.Action == "":
		return errors.Join(ErrInvalidEntry, errors.New("action is required"))
	case e.Timestamp.IsZero():
		return errors.Join(ErrInvalidEntry, errors.New("timestamp is required"))
	}
	return nil
}

// Logger accepts entries without blocking the caller.
type Logger interface {
	Log(entry Entry) error
}

// Storage persists entries in batches. Implementations should optimize for
// bulk inserts and treat a batch as all-or-nothing.
type Storage interface {
	StoreBatch(ctx context.Context, entries []Entry) error
}

// Reader looks up stored entries.
type Reader interface {
	Find(ctx context.Context, criteria Criteria) ([]Entry, error)
}

// Criteria filters entries. Zero fields match everything.
// Results are ordered by timestamp, oldest first.
type Criteria struct {
	Feature     string
	Environment environment.Environment
	Action      Action
	UserID      string
	Since       time.Time
	Until       time.Time
	Limit       int
}

// Match reports whether e satisfies the criteria, ignoring Limit.
func (c Criteria) Match(e Entry) bool {
	switch {
	case c.Feature != "" && e.Feature != c.Feature:
		return false
	case c.Environment != "" && e.Environment != c.Environment:
		return false
	case c.Action != "" && e.Action != c.Action:
		return false
	case c.UserID != "" && e.UserID != c.UserID:
		return false
	case !c.Since.IsZero() && e.Timestamp.Before(c.Since):
		return false
	case !c.Until.IsZero() && !e.Timestamp.Before(c.Until):
		return false
	}
	return true
}
