package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/toggler/pkg/logger"
	"github.com/dmitrymomot/toggler/pkg/toggle"
)

// ChangeApplier applies a change received from another instance.
// *toggle.Engine implements it.
type ChangeApplier interface {
	ApplyChange(ctx context.Context, change toggle.Change) error
}

// Listener subscribes to the changes channel and hands every message to a
// ChangeApplier.
type Listener struct {
	client  redis.UniversalClient
	channel string
	applier ChangeApplier
	logger  *slog.Logger
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithLogger sets the listener logger.
func WithLogger(l *slog.Logger) ListenerOption {
	return func(li *Listener) {
		if l != nil {
			li.logger = l
		}
	}
}

// NewListener creates a listener for channel.
func NewListener(client redis.UniversalClient, channel string, applier ChangeApplier, opts ...ListenerOption) (*Listener, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}
	l := &Listener{
		client:  client,
		channel: channel,
		applier: applier,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(logger.Component("redis.listener"))
	return l, nil
}

// Run blocks, applying changes until ctx is cancelled. Malformed messages and
// rejected changes are logged and skipped. It returns nil on cancellation.
func (l *Listener) Run(ctx context.Context) error {
	sub := l.client.Subscribe(ctx, l.channel)
	defer func() { _ = sub.Close() }()

	// Wait for the subscription confirmation so a broken connection fails fast.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Join(ErrSubscribeFailed, err)
	}
	l.logger.InfoContext(ctx, "listening for toggle changes", slog.String("channel", l.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := l.Handle(ctx, []byte(msg.Payload)); err != nil {
				l.logger.WarnContext(ctx, "skipped toggle change", logger.Error(err))
			}
		}
	}
}

// Handle decodes one message payload and applies it.
func (l *Listener) Handle(ctx context.Context, payload []byte) error {
	var change toggle.Change
	if err := json.Unmarshal(payload, &change); err != nil {
		return errors.Join(ErrInvalidMessage, err)
	}
	return l.applier.ApplyChange(ctx, change)
}
