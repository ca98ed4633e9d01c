package environment

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithContext adds environment to context
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext retrieves environment from context.
// The second value is false when the context carries no valid environment.
func FromContext(ctx context.Context) (Environment, bool) {
	if ctx == nil {
		return "", false
	}
	env, ok := ctx.Value(contextKey{}).(Environment)
	return env, ok && env.Valid()
}

// LoggerExtractor returns a logger context extractor that adds the
// environment carried by the context under the "env" key.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if env, ok := FromContext(ctx); ok {
			return slog.String("env", env.String()), true
		}
		return slog.Attr{}, false
	}
}
