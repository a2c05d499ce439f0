package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/FloraTraits/internal/application/extraction"
	"github.com/turtacn/FloraTraits/internal/infrastructure/database/redis"
	"github.com/turtacn/FloraTraits/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/FloraTraits/internal/interfaces/http"
	"github.com/turtacn/FloraTraits/internal/interfaces/http/handlers"
	"github.com/turtacn/FloraTraits/internal/interfaces/http/middleware"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

type workerOptions struct {
	lockTTL     time.Duration
	metricsPort int
}

// NewWorkerCmd consumes extraction jobs from Kafka.
func NewWorkerCmd() *cobra.Command {
	o := &workerOptions{}
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume extraction jobs from the jobs topic",
		Long: "Reads extraction.requested events from kafka.jobs_topic, runs the pipeline\n" +
			"and publishes extraction.completed or extraction.failed events to\n" +
			"kafka.results_topic. With Redis enabled, redelivered jobs are claimed once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd, o)
		},
	}
	f := cmd.Flags()
	f.DurationVar(&o.lockTTL, "lock-ttl", 10*time.Minute, "how long a claimed job stays locked")
	f.IntVar(&o.metricsPort, "metrics-port", 0, "serve /healthz, /readyz and metrics on this port; 0 disables")
	return cmd
}

func runWorker(cmd *cobra.Command, o *workerOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, log := cliCtx.Config, cliCtx.Logger
	if !cfg.Kafka.Enabled {
		return errors.New(errors.ErrCodeServiceUnavailable, "worker needs kafka.enabled=true")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := NewRuntime(ctx, cfg, log, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	var lock extraction.Locker
	if rt.Redis != nil {
		lock = redis.NewJobLock(rt.Redis, o.lockTTL, log)
	}
	worker := extraction.NewWorker(rt.Service, lock, rt.Producer, cfg.Kafka.ResultsTopic, log)

	consumer, err := kafka.NewConsumer(cfg.Kafka, []string{cfg.Kafka.JobsTopic}, rt.Producer, log)
	if err != nil {
		return err
	}
	consumer.Subscribe(cfg.Kafka.JobsTopic, worker.Handle)

	var healthSrv *httpserver.Server
	if o.metricsPort > 0 {
		healthSrv = newHealthServer(rt, o.metricsPort)
		go func() {
			if err := healthSrv.Start(); err != nil {
				log.Error("health server failed", logging.Err(err))
			}
		}()
	}

	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Close()
		return err
	}
	log.Info("worker started",
		logging.String("jobs_topic", cfg.Kafka.JobsTopic),
		logging.String("results_topic", cfg.Kafka.ResultsTopic),
		logging.String("group_id", cfg.Kafka.GroupID),
		logging.Bool("dedup", lock != nil))

	<-ctx.Done()

	if healthSrv != nil {
		if err := healthSrv.Stop(context.Background()); err != nil {
			log.Warn("health server shutdown", logging.Err(err))
		}
	}
	if err := consumer.Close(); err != nil {
		log.Warn("consumer close", logging.Err(err))
	}
	processed, failed, dead := consumer.Stats()
	log.Info("worker stopped",
		logging.Int64("processed", processed),
		logging.Int64("failed", failed),
		logging.Int64("dead_lettered", dead))
	return nil
}

// newHealthServer serves health and metrics only; jobs arrive over Kafka.
func newHealthServer(rt *Runtime, port int) *httpserver.Server {
	setGinMode(rt.Config.Server.Mode)
	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(Version, rt.Pipeline.Fingerprint(), rt.HealthCheckers()...),
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           rt.Logger,
		MetricsCollector: rt.Collector,
		Metrics:          rt.Metrics,
		MetricsPath:      rt.Config.Metrics.Path,
	})
	sc := rt.Config.Server
	sc.Port = port
	return httpserver.NewServer(sc, router, rt.Logger.Named(fmt.Sprintf("health:%d", port)))
}
