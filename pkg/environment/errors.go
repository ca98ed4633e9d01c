package environment

import "errors"

// ErrUnknownEnvironment is returned when a value is outside the closed set of environments.
var ErrUnknownEnvironment = errors.New("unknown environment")
