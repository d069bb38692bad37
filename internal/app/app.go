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
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/customer-management/internal/health"
	"github.com/vladislavdragonenkov/customer-management/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/customer-management/internal/metrics"
	"github.com/vladislavdragonenkov/customer-management/internal/service/catalog"
	grpcsvc "github.com/vladislavdragonenkov/customer-management/internal/service/grpc"
	"github.com/vladislavdragonenkov/customer-management/internal/service/orders"
	"github.com/vladislavdragonenkov/customer-management/internal/service/outbox"
	"github.com/vladislavdragonenkov/customer-management/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/customer-management/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает HTTP API, gRPC и сервер метрик и блокируется до отмены ctx
// или падения одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.closeFn(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	importMetrics := metrics.NewImportMetrics()
	orderService := orders.NewService(deps.store,
		orders.WithLogger(logger.WithField("layer", "orders")),
		orders.WithMetrics(importMetrics),
	)
	customerService := catalog.NewCustomerService(deps.store, logger.WithField("layer", "customers"))
	productService := catalog.NewProductService(deps.store, logger.WithField("layer", "products"))

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)

	// Без брокеров события остаются в outbox до следующего запуска с Kafka:
	// недоступная Kafka не мешает старту, сервис работает без публикации.
	kafkaProducer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.WithError(err).Debug("outbox worker is not started")
	}
	var (
		outboxCancel context.CancelFunc
		outboxDone   chan struct{}
	)
	if kafkaProducer != nil {
		outboxCancel, outboxDone = startOutboxWorker(ctx, cfg, deps, kafkaProducer, logger)
		healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxChecker(deps.outboxRepo, cfg.OutboxMaxPendingAge))
	}

	grpcServer, healthServer := newGRPCServer(orderService, logger)
	apiServer := &http.Server{
		Handler: httpapi.NewRouter(httpapi.Services{
			Orders:    orderService,
			Customers: customerService,
			Products:  productService,
		}, logger.WithField("layer", "http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownAll(logger, metricsSrv, nil, outboxCancel, outboxDone, kafkaProducer)
		return fmt.Errorf("listen grpc: %w", err)
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		shutdownAll(logger, metricsSrv, nil, outboxCancel, outboxDone, kafkaProducer)
		return fmt.Errorf("listen http: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC сервер слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("HTTP API слушает %s", httpLis.Addr())
		if err := apiServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, logger)
		shutdownAll(logger, metricsSrv, apiServer, outboxCancel, outboxDone, kafkaProducer)
		return ctx.Err()
	case err := <-errCh:
		grpcServer.Stop()
		shutdownAll(logger, metricsSrv, apiServer, outboxCancel, outboxDone, kafkaProducer)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// newGRPCServer собирает gRPC-сервер с prometheus-интерсепторами и health-сервисом.
func newGRPCServer(importer grpcsvc.OrderImporter, logger *log.Entry) (*grpc.Server, *health.Server) {
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

	grpcLogger := logger.WithField("layer", "grpc")
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcMetrics.UnaryServerInterceptor(),
		grpcsvc.LoggingInterceptor(grpcLogger),
	))
	grpcsvc.RegisterOrderImportServer(server, grpcsvc.NewImportService(importer, grpcLogger))
	grpcMetrics.InitializeMetrics(server)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server, healthServer
}

// startOutboxWorker запускает публикацию outbox в Kafka. done закрывается после выхода воркера.
func startOutboxWorker(
	ctx context.Context,
	cfg Config,
	deps *runtimeDependencies,
	producer *kafka.Producer,
	logger *log.Entry,
) (context.CancelFunc, chan struct{}) {
	worker := outbox.NewWorker(
		deps.outboxRepo,
		kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		outbox.Settings{
			PollInterval: cfg.OutboxPollInterval,
			BatchSize:    cfg.OutboxBatchSize,
			MaxAttempts:  cfg.OutboxMaxAttempts,
			RetryDelay:   cfg.OutboxRetryDelay,
		},
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithDeadLetter(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
	)

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()
	logger.Info("outbox worker запущен")
	return cancel, done
}

// shutdownOutboxWorker останавливает воркер и ждёт его выхода не дольше shutdownTimeout.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("outbox worker не остановился за отведённое время")
	}
}

func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// shutdownAll останавливает всё, что не привязано к gRPC-серверу. Воркер
// останавливается до producer'а, чтобы не публиковать в закрытый клиент.
func shutdownAll(
	logger *log.Entry,
	metricsSrv, apiSrv *http.Server,
	outboxCancel context.CancelFunc,
	outboxDone <-chan struct{},
	producer *kafka.Producer,
) {
	shutdownHTTP(apiSrv, logger)
	shutdownHTTP(metricsSrv, logger)
	shutdownOutboxWorker(outboxCancel, outboxDone, logger)
	closeKafkaProducer(producer, logger)
}
