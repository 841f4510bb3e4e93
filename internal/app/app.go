// Package app собирает сервис кассы: хранилища, сервисы, gRPC и REST серверы, фоновые воркеры.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/pos/internal/health"
	"github.com/vladislavdragonenkov/pos/internal/metrics"
	"github.com/vladislavdragonenkov/pos/internal/seed"
	"github.com/vladislavdragonenkov/pos/internal/service/catalog"
	grpcsvc "github.com/vladislavdragonenkov/pos/internal/service/grpc"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pos/internal/service/sales"
	"github.com/vladislavdragonenkov/pos/internal/transport/rest"
	"github.com/vladislavdragonenkov/pos/internal/version"
)

const gracefulStopTimeout = 5 * time.Second

// Run поднимает сервис и блокируется до отмены ctx или падения gRPC сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	salesSvc := sales.NewService(deps.uow,
		sales.WithLogger(logger.WithField("component", "sales")),
		sales.WithMetrics(metrics.NewSalesMetricsWithRegisterer(prometheus.DefaultRegisterer)),
		sales.WithLocation(loc),
	)
	catalogSvc := catalog.NewService(deps.uow,
		catalog.WithLogger(logger.WithField("component", "catalog")),
		catalog.WithLowStockThreshold(cfg.LowStockThreshold),
	)
	guard := idempotency.NewGuard(deps.idempotencyRepo, idempotency.WithGuardLogger(logger.WithField("component", "idempotency")))

	if cfg.SeedSampleData {
		if _, err := seed.Run(ctx, deps.uow, catalogSvc, logger.WithField("component", "seed")); err != nil {
			return fmt.Errorf("seed sample data: %w", err)
		}
	}

	kafkaProducer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		kafkaProducer = nil
	}
	defer closeKafkaProducer(kafkaProducer, logger)

	publisher, dlq := outboxPublishers(kafkaProducer, cfg.KafkaTopic, logger)
	outboxCancel, outboxDone := startOutboxWorker(ctx, cfg, deps.outboxRepo, publisher, dlq, logger)
	defer shutdownOutboxWorker(outboxCancel, outboxDone, logger)

	cleanupCancel, cleanupDone := startCleanupWorker(ctx, cfg, deps.idempotencyRepo, logger)
	defer waitWorker("idempotency cleanup", cleanupCancel, cleanupDone, logger)

	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))

	salesService := grpcsvc.NewSalesService(salesSvc, catalogSvc, guard, logger.WithField("layer", "grpc"))
	grpcsvc.RegisterSalesServer(grpcServer, salesService)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcMetrics.InitializeMetrics(grpcServer)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxChecker(deps.outboxRepo, cfg.OutboxMaxAge))
	if deps.redisChecker != nil {
		healthHandler.RegisterChecker("redis", deps.redisChecker)
	}

	restHandler := rest.NewHandler(salesSvc, catalogSvc, guard, logger.WithField("layer", "rest"))
	router, err := restHandler.Router(rest.Config{RateLimit: cfg.RateLimit, Location: loc})
	if err != nil {
		return fmt.Errorf("build rest router: %w", err)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	apiSrv := startAPIServer(cfg.HTTPAddr, router, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC server listening on %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping servers")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// stopGRPC ждёт завершения активных вызовов, но не дольше gracefulStopTimeout.
func stopGRPC(srv *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(gracefulStopTimeout):
		logger.Warn("graceful stop timed out, forcing grpc server stop")
		srv.Stop()
	}
}

// startAPIServer запускает REST API. Пустой адрес отключает HTTP API.
func startAPIServer(addr string, handler http.Handler, logger *log.Entry) *http.Server {
	if addr == "" {
		return nil
	}
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("REST API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("rest server failed")
		}
	}()
	return srv
}

// startMetricsServer запускает /metrics и health-эндпоинты.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("metrics on %s/metrics, health on /healthz /livez /readyz", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulStopTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
