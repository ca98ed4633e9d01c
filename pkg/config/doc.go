// Package config loads configuration structs from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tag parsing):
//
//	type Config struct {
//		Environment environment.Environment `env:"TOGGLER_ENVIRONMENT" envDefault:"production"`
//		CacheTTL    time.Duration           `env:"TOGGLER_CACHE_TTL" envDefault:"30s"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Any field type implementing encoding.TextUnmarshaler (environment.Environment
// for instance) is decoded through it. WithPrefix namespaces a reused struct,
// WithEnvironment parses from an explicit map, which keeps tests hermetic.
//
// Errors wrap ErrParsingConfig, ErrLoadingEnvFile or ErrNilPointer and can be
// checked with errors.Is.
package config
