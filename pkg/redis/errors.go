package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
	ErrEmptyChannel                 = errors.New("empty redis channel name")
	ErrPublishFailed                = errors.New("failed to publish toggle change")
	ErrSubscribeFailed              = errors.New("failed to subscribe to toggle changes")
	ErrInvalidMessage               = errors.New("invalid toggle change message")
)
