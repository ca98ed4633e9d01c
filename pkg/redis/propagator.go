package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/toggler/pkg/toggle"
)

// Propagator publishes toggle changes as JSON on a Redis pub/sub channel.
// It implements toggle.Propagator.
type Propagator struct {
	client  redis.UniversalClient
	channel string
}

// NewPropagator creates a propagator publishing on channel.
func NewPropagator(client redis.UniversalClient, channel string) (*Propagator, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}
	return &Propagator{client: client, channel: channel}, nil
}

// Propagate publishes the change. Pub/sub delivery is at most once: instances
// that are not subscribed at the time of publishing miss the change.
func (p *Propagator) Propagate(ctx context.Context, change toggle.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}
