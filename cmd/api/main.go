package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "orderflow/docs"
	"orderflow/pkg/api"
	"orderflow/pkg/config"
	"orderflow/pkg/events"
	"orderflow/pkg/keylock"
	"orderflow/pkg/logger"
	"orderflow/pkg/metrics"
	"orderflow/pkg/order"
	"orderflow/pkg/order/memory"
	pg "orderflow/pkg/order/postgres"
	"orderflow/pkg/order/sqlite"
	"orderflow/pkg/otel"
)

// @title OrderFlow API
// @version 1.0
// @description API for managing orders and their items
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, "orderflow", otel.GetTraceID)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "shutdown", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	otelCfg := otel.Config{ServiceName: "orderflow", Host: cfg.OTelHost, Probability: cfg.OTelSampleRatio}
	if cfg.OTelStdout {
		otelCfg.Stdout = os.Stdout
	}
	tp, shutdownTracing, err := otel.InitTracing(log, otelCfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn(context.Background(), "shutdown tracing", "error", err)
		}
	}()

	gw, err := openGateway(ctx, cfg)
	if err != nil {
		return err
	}
	defer gw.Close()
	log.Info(ctx, "order store ready", "store", cfg.Store)

	locker, closeLocker := newLocker(ctx, cfg, log)
	defer closeLocker()

	publisher := newPublisher(cfg, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn(context.Background(), "close publisher", "error", err)
		}
	}()

	m := metrics.New()
	svc := order.NewService(gw,
		order.WithLocker(locker),
		order.WithPublisher(publisher),
		order.WithLogger(log),
		order.WithMetrics(m),
	)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.New(api.Config{
			Service: svc,
			Log:     log,
			Tracer:  tp.Tracer("orderflow"),
			Metrics: m,
		}).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down", "timeout", cfg.ShutdownTimeout.String())
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func openGateway(ctx context.Context, cfg config.Config) (order.Gateway, error) {
	switch cfg.Store {
	case config.StorePostgres:
		store, err := pg.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, nil
	default:
		return memory.New(), nil
	}
}

// newLocker uses Redis when REDIS_ADDR is set so that several replicas
// serialize mutations of the same order. It falls back to in-process locks
// when Redis is unreachable.
func newLocker(ctx context.Context, cfg config.Config, log *logger.Logger) (keylock.Locker, func()) {
	if cfg.RedisAddr == "" {
		return keylock.NewKeyed(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn(ctx, "redis unavailable, using in-process locks", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return keylock.NewKeyed(), func() {}
	}
	log.Info(ctx, "redis order locks enabled", "addr", cfg.RedisAddr)
	return keylock.NewRedis(client, keylock.WithTTL(cfg.LockTTL)), func() { _ = client.Close() }
}

func newPublisher(cfg config.Config, log *logger.Logger) events.Publisher {
	k, err := events.NewKafka(events.NewClient(cfg.KafkaBrokers), cfg.KafkaTopic)
	if err != nil {
		log.Info(context.Background(), "event publishing disabled", "reason", err)
		return events.Nop{}
	}
	log.Info(context.Background(), "publishing events to kafka", "topic", cfg.KafkaTopic)
	return k
}
