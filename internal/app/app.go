package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/config"
	"github.com/dmitrymomot/toggler/pkg/environment"
	"github.com/dmitrymomot/toggler/pkg/feature"
	"github.com/dmitrymomot/toggler/pkg/logger"
	"github.com/dmitrymomot/toggler/pkg/metrics"
	"github.com/dmitrymomot/toggler/pkg/mongo"
	"github.com/dmitrymomot/toggler/pkg/opensearch"
	"github.com/dmitrymomot/toggler/pkg/pg"
	"github.com/dmitrymomot/toggler/pkg/redis"
	"github.com/dmitrymomot/toggler/pkg/toggle"
)

// App wires the engine to its provider, audit destination and propagation
// transport.
type App struct {
	Config   Config
	Logger   *slog.Logger
	Engine   *toggle.Engine
	Provider *feature.MemoryProvider
	Registry *prometheus.Registry

	auditReader  audit.Reader
	redisClient  *goredis.Client
	redisChannel string
	checks       map[string]func(context.Context) error
	closers      []func(context.Context) error
}

// Option configures New.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	configOpts []config.Option
}

// WithLogger replaces the logger built from LOG_LEVEL and LOG_FORMAT.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConfigOptions passes options to every backend config load.
func WithConfigOptions(opts ...config.Option) Option {
	return func(o *options) { o.configOpts = opts }
}

// New builds the application. On error everything opened so far is closed.
func New(ctx context.Context, cfg Config, opts ...Option) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
		checks:   make(map[string]func(context.Context) error),
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if a.Logger = o.logger; a.Logger == nil {
		if a.Logger, err = newLogger(cfg); err != nil {
			return nil, err
		}
	}

	if a.Provider, err = loadProvider(cfg.FeaturesFile); err != nil {
		return nil, err
	}

	collector := metrics.New(a.Registry)
	engineOpts := []toggle.Option{
		toggle.WithEnvironment(cfg.Environment),
		toggle.WithCache(cfg.CacheEnabled),
		toggle.WithCacheTTL(cfg.CacheTTL),
		toggle.WithCacheCapacity(cfg.CacheCapacity),
		toggle.WithPropagationTimeout(cfg.PropagationTimeout),
		toggle.WithLogger(a.Logger),
		toggle.WithMetrics(collector),
	}
	if cfg.InstanceID != "" {
		engineOpts = append(engineOpts, toggle.WithInstanceID(cfg.InstanceID))
	}

	storage, err := a.openAuditStorage(ctx, o.configOpts)
	if err != nil {
		return nil, err
	}
	if storage != nil {
		writer, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{
			QueueSize:      cfg.Audit.QueueSize,
			BatchSize:      cfg.Audit.BatchSize,
			Interval:       cfg.Audit.Interval,
			StorageTimeout: cfg.Audit.StorageTimeout,
			Logger:         a.Logger,
			Metrics:        collector,
		})
		// Registered after the backend closers so it runs before them.
		a.closers = append(a.closers, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.Audit.ShutdownTimeout)
			defer cancel()
			return closeWriter(ctx)
		})
		engineOpts = append(engineOpts, toggle.WithAuditLogger(writer))
	}

	if cfg.Propagation == PropagationRedis {
		prop, err := a.openRedis(ctx, o.configOpts)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, toggle.WithPropagator(prop))
	}

	if a.Engine, err = toggle.NewEngine(a.Provider, engineOpts...); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Engine.Close)

	names, _ := a.Provider.ListFlagNames(ctx)
	a.Logger.InfoContext(ctx, "toggler ready",
		logger.Environment(cfg.Environment.String()),
		logger.Count("features", len(names)),
		slog.String("audit", cfg.Audit.Destination),
		slog.String("propagation", cfg.Propagation),
		slog.String("instance_id", a.Engine.InstanceID()),
	)
	return a, nil
}

func newLogger(cfg Config) (*slog.Logger, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return logger.New(
		logger.WithLevel(level),
		logger.WithFormat(format),
		logger.WithAttr(logger.Service(cfg.ServiceName)),
		logger.WithContextExtractors(environment.LoggerExtractor()),
	), nil
}

func loadProvider(path string) (*feature.MemoryProvider, error) {
	if path == "" {
		return feature.NewMemoryProvider()
	}
	flags, err := feature.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return feature.NewMemoryProvider(flags...)
}

func (a *App) openAuditStorage(ctx context.Context, configOpts []config.Option) (audit.Storage, error) {
	switch a.Config.Audit.Destination {
	case AuditLog:
		return audit.NewLogStorage(a.Logger), nil

	case AuditMemory:
		s := audit.NewMemoryStorage()
		a.auditReader = s
		return s, nil

	case AuditPostgres:
		var cfg pg.Config
		if err := config.Load(&cfg, configOpts...); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		a.checks["postgres"] = pg.Healthcheck(pool)
		if err := pg.Migrate(ctx, pool, cfg, a.Logger); err != nil {
			return nil, err
		}
		s := pg.NewAuditStorage(pool)
		a.auditReader = s
		return s, nil

	case AuditMongo:
		var cfg mongo.Config
		if err := config.Load(&cfg, configOpts...); err != nil {
			return nil, err
		}
		client, err := mongo.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		a.checks["mongo"] = mongo.Healthcheck(client)
		s := mongo.NewAuditStorage(client.Database(cfg.Database).Collection(cfg.AuditCollection))
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		a.auditReader = s
		return s, nil

	case AuditOpenSearch:
		var cfg opensearch.Config
		if err := config.Load(&cfg, configOpts...); err != nil {
			return nil, err
		}
		client, err := opensearch.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.checks["opensearch"] = opensearch.Healthcheck(client)
		s := opensearch.NewAuditStorage(client, cfg.AuditIndex)
		if err := s.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		a.auditReader = s
		return s, nil
	}

	return nil, nil
}

func (a *App) openRedis(ctx context.Context, configOpts []config.Option) (*redis.Propagator, error) {
	var cfg redis.Config
	if err := config.Load(&cfg, configOpts...); err != nil {
		return nil, err
	}
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	a.checks["redis"] = redis.Healthcheck(client)
	a.redisClient = client
	a.redisChannel = cfg.Channel

	return redis.NewPropagator(client, cfg.Channel)
}

// Listener returns a listener applying changes from other instances to the
// engine. It fails with ErrPropagationDisabled unless PROPAGATION=redis.
func (a *App) Listener() (*redis.Listener, error) {
	if a.redisClient == nil {
		return nil, ErrPropagationDisabled
	}
	return redis.NewListener(a.redisClient, a.redisChannel, a.Engine, redis.WithLogger(a.Logger))
}

// FindAudit queries the audit destination when it supports reads.
func (a *App) FindAudit(ctx context.Context, c audit.Criteria) ([]audit.Entry, error) {
	if a.auditReader == nil {
		return nil, fmt.Errorf("%w: %s", ErrAuditUnavailable, a.Config.Audit.Destination)
	}
	return a.auditReader.Find(ctx, c)
}

// Healthcheck runs every backend probe.
func (a *App) Healthcheck(ctx context.Context) error {
	var errs []error
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close shuts components down in reverse order of creation: the engine waits
// for propagations, the audit writer drains, then backends disconnect.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
