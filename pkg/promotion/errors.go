package promotion

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition  = errors.New("invalid promotion transition")
	ErrRequestNotFound    = errors.New("promotion request not found")
	ErrAlreadyPending     = errors.New("promotion request already pending")
	ErrSameEnvironment    = errors.New("source and target environments must differ")
	ErrInvalidEnvironment = errors.New("invalid promotion environment")
	ErrInvalidRequest     = errors.New("invalid promotion request")
	ErrReasonRequired     = errors.New("rejection reason is required")
	ErrApplyFailed        = errors.New("failed to apply promotion")
)

// TransitionError is returned when an event is fired at a request whose status
// has no transition for it, e.g. approving an already rejected request.
type TransitionError struct {
	RequestID string
	From      Status
	Event     Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("no transition from status '%s' for event '%s' (request %s)", e.From, e.Event, e.RequestID)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsInvalidTransition reports whether err is a TransitionError.
func IsInvalidTransition(err error) bool {
	var e *TransitionError
	return errors.As(err, &e)
}
