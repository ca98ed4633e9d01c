package feature

import "errors"

// Predefined errors for the feature package.
var (
	// ErrFlagNotFound indicates that the requested feature flag was not found.
	ErrFlagNotFound = errors.New("feature flag not found")

	// ErrInvalidFlag indicates that the provided flag parameters are invalid.
	ErrInvalidFlag = errors.New("invalid feature flag parameters")

	// ErrAttributeType indicates an attribute value was read as the wrong kind.
	ErrAttributeType = errors.New("feature attribute has unexpected type")

	// ErrInvalidValue indicates an attribute value could not be decoded.
	ErrInvalidValue = errors.New("invalid feature attribute value")

	// ErrInvalidRollout indicates rollout options are out of range.
	ErrInvalidRollout = errors.New("invalid feature rollout options")

	// ErrLoadingFile indicates the feature definitions file could not be read or decoded.
	ErrLoadingFile = errors.New("failed to load feature definitions")
)
