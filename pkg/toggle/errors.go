package toggle

import "errors"

var (
	// ErrInvalidFeature is returned for an empty feature name.
	ErrInvalidFeature = errors.New("feature name is required")

	// ErrInvalidEnvironment is returned for an environment outside the closed set.
	ErrInvalidEnvironment = errors.New("invalid environment")

	// ErrSourceUnavailable wraps failures of the base-state provider.
	ErrSourceUnavailable = errors.New("feature source unavailable")

	// ErrInvalidChange is returned by ApplyChange for malformed changes.
	ErrInvalidChange = errors.New("invalid change")
)

// ErrNilProvider is returned by NewEngine when no provider is given.
var ErrNilProvider = errors.New("feature provider cannot be nil")
