package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/glimte/svc-compliance/internal/admin"
	"github.com/glimte/svc-compliance/internal/config"
	"github.com/glimte/svc-compliance/internal/health"
	"github.com/glimte/svc-compliance/internal/metrics"
	"github.com/glimte/svc-compliance/internal/notify"
	"github.com/glimte/svc-compliance/internal/rabbitmq"
	"github.com/glimte/svc-compliance/internal/region"
	"github.com/glimte/svc-compliance/internal/server"
)

// app is the wired gateway. Every field is set once by newApp.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	pool     *rabbitmq.Pool
	grpc     *server.GRPCServer
	admin    *admin.Server
}

// newApp performs the startup sequence: resolve the jurisdiction, open the
// pool and declare the topology (broker mode only), then build the
// publisher, strategy and servers. Any error is fatal to the process.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, dial rabbitmq.Dialer) (*app, error) {
	code, err := region.ParseCode(cfg.Region.Code)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	checks := health.NewRegistry()
	checks.SetMetadata("region", code.String())
	checks.SetMetadata("version", version)
	checks.Register(health.NewRegionChecker(code))
	checks.Register(health.NewGoroutineChecker(5000, 20000))

	var publisher rabbitmq.EventPublisher
	switch cfg.AMQP.PublishMode {
	case config.PublishModeNoop:
		logger.Warn("publishing disabled, cargo events are dropped")
		publisher = rabbitmq.NewNoopPublisher(logger)

	default:
		brokerMetrics := metrics.NewBrokerMetricsWithRegistry(a.registry)

		a.pool, err = openPool(ctx, cfg, logger, dial, rabbitmq.WithAcquireObserver(brokerMetrics.ObserveAcquire))
		if err != nil {
			return nil, err
		}
		metrics.RegisterPoolStats(a.registry, a.pool.Stats)
		checks.Register(health.NewBrokerChecker(a.pool))

		if err := declareTopology(ctx, a.pool, cfg, logger); err != nil {
			a.close()
			return nil, err
		}

		policy, err := rabbitmq.ParseAbsentChannelPolicy(cfg.AMQP.AbsentChannel)
		if err != nil {
			a.close()
			return nil, err
		}
		publisher = rabbitmq.NewPublisher(a.pool,
			rabbitmq.WithConfirmTimeout(cfg.AMQP.ConfirmTimeout),
			rabbitmq.WithAbsentChannelPolicy(policy),
			rabbitmq.WithPublisherLogger(logger),
			rabbitmq.WithPublishObserver(brokerMetrics.ObservePublish))
	}

	notifier := notify.NewCargoNotifier(publisher, cfg.Topology(), notify.WithLogger(logger))
	dispatcher, err := region.NewDispatcher(code.String(), region.Deps{Notifier: notifier, Logger: logger})
	if err != nil {
		a.close()
		return nil, err
	}

	svc := server.NewComplianceServer(dispatcher,
		server.WithLogger(logger),
		server.WithRequestRecorder(metrics.NewRequestMetricsWithRegistry(a.registry)))
	a.grpc = server.NewGRPCServer(svc,
		server.WithGRPCLogger(logger),
		server.WithShutdownTimeout(cfg.GRPC.ShutdownTimeout))
	// the broker check may wait for a slot and then dial
	a.admin = admin.New(checks,
		admin.WithGatherer(a.registry),
		admin.WithReadinessTimeout(cfg.AMQP.Pool.AcquireTimeout+cfg.AMQP.ConnectTimeout),
		admin.WithLogger(logger))

	return a, nil
}

// run serves until ctx is done or either server fails. adminLis may be nil.
func (a *app) run(ctx context.Context, grpcLis, adminLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.grpc.Serve(gctx, grpcLis)
	})
	if adminLis != nil {
		g.Go(func() error {
			return a.admin.Serve(gctx, adminLis, a.cfg.GRPC.ShutdownTimeout)
		})
	}

	a.grpc.MarkServing()
	a.logger.Info("compliance gateway ready", "region", a.cfg.Region.Code)

	return g.Wait()
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func openPool(ctx context.Context, cfg *config.Config, logger *slog.Logger, dial rabbitmq.Dialer, extra ...rabbitmq.PoolOption) (*rabbitmq.Pool, error) {
	if dial == nil {
		dial = rabbitmq.DialAMQP(cfg.AMQP.ConnectTimeout)
	}
	options := append([]rabbitmq.PoolOption{
		rabbitmq.WithMaxSize(cfg.AMQP.Pool.MaxSize),
		rabbitmq.WithMinSize(cfg.AMQP.Pool.MinSize),
		rabbitmq.WithAcquireTimeout(cfg.AMQP.Pool.AcquireTimeout),
		rabbitmq.WithDialer(dial),
		rabbitmq.WithPoolLogger(logger),
	}, extra...)

	pool, err := rabbitmq.NewPool(ctx, cfg.AMQP.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to open broker pool: %w", err)
	}
	return pool, nil
}

func declareTopology(ctx context.Context, pool *rabbitmq.Pool, cfg *config.Config, logger *slog.Logger) error {
	manager := rabbitmq.NewTopologyManager(pool, cfg.Topology(), rabbitmq.WithTopologyLogger(logger))
	report, err := manager.DeclareTopology(ctx)
	if err != nil {
		return fmt.Errorf("failed to declare topology: %w", err)
	}
	for _, warning := range report.Warnings {
		logger.Warn("topology declared with warnings", "error", warning)
	}
	return nil
}
