package cli

import (
	"context"
	"time"

	"github.com/turtacn/FloraTraits/internal/application/extraction"
	"github.com/turtacn/FloraTraits/internal/config"
	"github.com/turtacn/FloraTraits/internal/infrastructure/database/postgres"
	"github.com/turtacn/FloraTraits/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/FloraTraits/internal/infrastructure/database/redis"
	"github.com/turtacn/FloraTraits/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FloraTraits/internal/infrastructure/search/opensearch"
	"github.com/turtacn/FloraTraits/internal/infrastructure/storage/minio"
	"github.com/turtacn/FloraTraits/internal/intelligence/pipeline"
	"github.com/turtacn/FloraTraits/internal/interfaces/http/handlers"
)

// Runtime is the extraction service wired to whichever backends the
// configuration enables.
type Runtime struct {
	Config    *config.Config
	Logger    logging.Logger
	Pipeline  *pipeline.Pipeline
	Service   *extraction.Service
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.ExtractionMetrics
	Redis     *redis.Client
	Producer  *kafka.Producer
	Documents *minio.DocumentStore

	checkers []handlers.HealthChecker
	closers  []func() error
}

type runtimeOptions struct {
	// publishResults adds the Kafka producer as a result sink.
	publishResults bool
	// offline skips every backend; only the pipeline runs.
	offline bool
}

// NewRuntime builds the runtime. On error, everything opened so far is
// closed.
func NewRuntime(ctx context.Context, cfg *config.Config, log logging.Logger, ro runtimeOptions) (*Runtime, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	rt := &Runtime{Config: cfg, Logger: log}
	if err := rt.build(ctx, ro); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) build(ctx context.Context, ro runtimeOptions) error {
	cfg, log := rt.Config, rt.Logger

	var err error
	rt.Pipeline, err = pipeline.New(pipeline.OptionsFrom(cfg.Pipeline), log)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		rt.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            cfg.Metrics.Subsystem,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, log)
		if err != nil {
			return err
		}
		rt.Metrics = prometheus.NewExtractionMetrics(rt.Collector)
	}

	limits := extraction.LimitsFrom(cfg.Pipeline)
	var opts []extraction.Option
	if rt.Metrics != nil {
		opts = append(opts, extraction.WithMetrics(rt.Metrics))
	}
	if !ro.offline {
		more, err := rt.connect(ctx, ro, &limits)
		if err != nil {
			return err
		}
		opts = append(opts, more...)
	}

	rt.Service = extraction.NewService(rt.Pipeline, limits, log, opts...)
	return nil
}

func (rt *Runtime) connect(ctx context.Context, ro runtimeOptions, limits *extraction.Limits) ([]extraction.Option, error) {
	cfg, log := rt.Config, rt.Logger
	var opts []extraction.Option

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		rt.Redis = client
		rt.closers = append(rt.closers, client.Close)
		rt.checkers = append(rt.checkers, handlers.CheckFunc("redis", client.Ping))
		limits.CacheTTL = cfg.Redis.DefaultTTL
		opts = append(opts, extraction.WithCache(redis.NewRedisCache(client, log,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL))))
	}

	if cfg.Database.Enabled {
		if cfg.Database.AutoMigrate {
			if err := withMigrator(cfg.Database, log, (*postgres.Migrator).Up); err != nil {
				return nil, err
			}
		}
		conn, err := postgres.NewConnection(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, conn.Close)
		rt.checkers = append(rt.checkers, handlers.CheckFunc("postgres", conn.HealthCheck))
		opts = append(opts, extraction.WithRepository(repositories.NewPostgresExtractionRepo(conn, log)))
	}

	if cfg.MinIO.Enabled {
		client, err := minio.NewClient(cfg.MinIO, log)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		rt.checkers = append(rt.checkers, handlers.CheckFunc("minio", client.HealthCheck))
		rt.Documents = minio.NewDocumentStore(client, int64(limits.MaxTextBytes))
		opts = append(opts, extraction.WithTextSource(rt.Documents), extraction.WithSinks(rt.Documents))
	}

	if cfg.Search.Enabled {
		client, err := opensearch.NewClient(cfg.Search, log)
		if err != nil {
			return nil, err
		}
		rt.checkers = append(rt.checkers, handlers.CheckFunc("opensearch", client.Ping))
		indexer := opensearch.NewRecordIndexer(client)
		ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := indexer.EnsureIndex(ictx); err != nil {
			log.Warn("could not ensure search index; indexing will be retried per record", logging.Err(err))
		}
		cancel()
		opts = append(opts, extraction.WithSinks(indexer), extraction.WithSearcher(opensearch.NewRecordSearcher(client)))
	}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			return nil, err
		}
		rt.Producer = producer
		rt.closers = append(rt.closers, producer.Close)
		if ro.publishResults {
			opts = append(opts, extraction.WithSinks(extraction.NewEventSink(producer, cfg.Kafka.ResultsTopic)))
		}
	}
	return opts, nil
}

// HealthCheckers lists the readiness checks of the connected backends.
func (rt *Runtime) HealthCheckers() []handlers.HealthChecker { return rt.checkers }

// Close releases every backend in reverse order of opening.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && rt.Logger != nil {
			rt.Logger.Warn("close failed", logging.Err(err))
		}
	}
	rt.closers = nil
}

// withMigrator runs fn on a dedicated connection; the migrator closes it.
func withMigrator(cfg config.DatabaseConfig, log logging.Logger, fn func(*postgres.Migrator) error) error {
	conn, err := postgres.NewConnection(cfg, log)
	if err != nil {
		return err
	}
	m, err := postgres.NewMigrator(conn)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return fn(m)
}
