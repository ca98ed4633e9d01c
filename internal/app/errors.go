package app

import "errors"

var (
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrPropagationDisabled = errors.New("change propagation is disabled")
	ErrAuditUnavailable    = errors.New("audit destination cannot be queried")
)
