package app

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrymomot/toggler/pkg/config"
	"github.com/dmitrymomot/toggler/pkg/environment"
	"github.com/dmitrymomot/toggler/pkg/httpserver"
)

// Audit destinations.
const (
	AuditNone       = "none"
	AuditLog        = "log"
	AuditMemory     = "memory"
	AuditPostgres   = "postgres"
	AuditMongo      = "mongo"
	AuditOpenSearch = "opensearch"
)

// Propagation modes.
const (
	PropagationNone  = "none"
	PropagationRedis = "redis"
)

var (
	auditDestinations = []string{AuditNone, AuditLog, AuditMemory, AuditPostgres, AuditMongo, AuditOpenSearch}
	propagationModes  = []string{PropagationNone, PropagationRedis}
)

// Config is the process configuration. Backend specific settings (REDIS_*,
// PG_*, MONGODB_*, OPENSEARCH_*) are loaded only when the backend is selected.
type Config struct {
	ServiceName        string                  `env:"TOGGLER_SERVICE_NAME" envDefault:"toggler"`
	Environment        environment.Environment `env:"TOGGLER_ENVIRONMENT" envDefault:"production"`
	InstanceID         string                  `env:"TOGGLER_INSTANCE_ID"` // Random when empty
	FeaturesFile       string                  `env:"TOGGLER_FEATURES_FILE"`
	CacheEnabled       bool                    `env:"TOGGLER_CACHE_ENABLED" envDefault:"true"`
	CacheTTL           time.Duration           `env:"TOGGLER_CACHE_TTL" envDefault:"30s"`
	CacheCapacity      int                     `env:"TOGGLER_CACHE_CAPACITY" envDefault:"10000"`
	Propagation        string                  `env:"PROPAGATION" envDefault:"none"`
	PropagationTimeout time.Duration           `env:"PROPAGATION_TIMEOUT" envDefault:"5s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Audit AuditConfig
	Ops   httpserver.Config
}

// AuditConfig controls the audit pipeline.
type AuditConfig struct {
	Destination     string        `env:"AUDIT_DESTINATION" envDefault:"log"`
	QueueSize       int           `env:"AUDIT_QUEUE_SIZE" envDefault:"10000"`
	BatchSize       int           `env:"AUDIT_BATCH_SIZE" envDefault:"5"`
	Interval        time.Duration `env:"AUDIT_INTERVAL" envDefault:"1s"`
	StorageTimeout  time.Duration `env:"AUDIT_STORAGE_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"AUDIT_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// LoadConfig reads Config from the environment and validates it.
func LoadConfig(opts ...config.Option) (Config, error) {
	var cfg Config
	if err := config.Load(&cfg, opts...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerations and ranges the env parser cannot.
func (c Config) Validate() error {
	var errs []error
	if !c.Environment.Valid() {
		errs = append(errs, fmt.Errorf("TOGGLER_ENVIRONMENT: unknown environment %q", c.Environment))
	}
	if !slices.Contains(auditDestinations, c.Audit.Destination) {
		errs = append(errs, fmt.Errorf("AUDIT_DESTINATION: %q is not one of %v", c.Audit.Destination, auditDestinations))
	}
	if !slices.Contains(propagationModes, c.Propagation) {
		errs = append(errs, fmt.Errorf("PROPAGATION: %q is not one of %v", c.Propagation, propagationModes))
	}
	if c.CacheEnabled && c.CacheTTL <= 0 {
		errs = append(errs, errors.New("TOGGLER_CACHE_TTL must be positive when caching is enabled"))
	}
	if c.CacheEnabled && c.CacheCapacity <= 0 {
		errs = append(errs, errors.New("TOGGLER_CACHE_CAPACITY must be positive when caching is enabled"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
