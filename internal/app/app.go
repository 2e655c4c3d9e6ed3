package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/AdanSoria/Project-Shop/internal/health"
	"github.com/AdanSoria/Project-Shop/internal/metrics"
	"github.com/AdanSoria/Project-Shop/internal/service/cart"
	"github.com/AdanSoria/Project-Shop/internal/service/checkout"
	"github.com/AdanSoria/Project-Shop/internal/service/idempotency"
	"github.com/AdanSoria/Project-Shop/internal/service/orders"
	"github.com/AdanSoria/Project-Shop/internal/service/settlement"
	httptransport "github.com/AdanSoria/Project-Shop/internal/transport/http"
	"github.com/AdanSoria/Project-Shop/internal/version"
)

// Run поднимает API, ops-серверы и фоновые воркеры и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	producer, err := initKafkaProducer(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without order events")
	}
	defer closeKafka(producer, logger)

	shopMetrics := metrics.NewShopMetrics()

	settlementOpts := []settlement.Option{
		settlement.WithNotifier(deps.Notifier),
		settlement.WithMetrics(shopMetrics),
		settlement.WithLogger(logger),
	}
	if producer != nil {
		settlementOpts = append(settlementOpts, settlement.WithOutbox(deps.Outbox))
	}
	settlementSvc := settlement.NewService(deps.Provider, settlement.Stores{
		Carts:    deps.CartStore,
		Products: deps.Products,
		Users:    deps.Users,
		Orders:   deps.Orders,
		Ledger:   deps.Ledger,
	}, settlement.Config{
		Currency:        cfg.Currency,
		LedgerTTL:       cfg.SettlementLedgerTTL,
		ProcessingLease: cfg.SettlementProcessingLease,
	}, settlementOpts...)

	handlers := httptransport.NewHandlers(
		deps.Products,
		cart.NewService(deps.Carts, deps.Products, logger),
		checkout.NewService(deps.CartStore, deps.Products, deps.Provider, checkout.Config{
			Currency:    cfg.Currency,
			FrontendURL: cfg.FrontendURL,
		}, shopMetrics, logger),
		orders.NewService(deps.Orders),
		settlementSvc,
		cfg.RequestTimeout,
		logger,
	)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Handlers: handlers,
		Auth:     httptransport.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		Metrics:  shopMetrics,
		Logger:   logger,
		Timeout:  cfg.RequestTimeout * 3,
	})

	healthHandler := healthcheck.NewHandler(version.Version())
	deps.RegisterHealth(healthHandler)

	grpcServer, grpcHealth := newOpsGRPCServer(logger)

	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen api %s: %w", cfg.HTTPAddr, err)
	}
	metricsLis, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		_ = apiLis.Close()
		return fmt.Errorf("listen metrics %s: %w", cfg.MetricsAddr, err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = apiLis.Close()
		_ = metricsLis.Close()
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}

	apiSrv := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}
	metricsSrv := &http.Server{Handler: newOpsMux(healthHandler), ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 3)
	serve := func(name string, fn func() error) {
		go func() {
			if err := fn(); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("%s server: %w", name, err)
			}
		}()
	}
	serve("api", func() error { return apiSrv.Serve(apiLis) })
	serve("metrics", func() error { return metricsSrv.Serve(metricsLis) })
	serve("grpc", func() error { return grpcServer.Serve(grpcLis) })

	logger.WithFields(log.Fields{
		"http_addr":    apiLis.Addr().String(),
		"metrics_addr": metricsLis.Addr().String(),
		"grpc_addr":    grpcLis.Addr().String(),
		"storage":      cfg.StorageDriver,
	}).Info("shop api started")

	workersCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	startWorker := func(run func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			run(workersCtx)
		}()
	}
	startWorker(idempotency.NewCleanupWorker(deps.Ledger,
		idempotency.WithLogger(logger),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	).Run)
	if producer != nil {
		startWorker(newOutboxWorker(cfg, deps.Outbox, producer, logger).Run)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис")
		runErr = ctx.Err()
	case runErr = <-errCh:
		logger.WithError(runErr).Error("server failed, shutting down")
	}

	grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
	stopGRPC(grpcServer, cfg.ShutdownTimeout, logger)

	stopWorkers()
	workers.Wait()
	settlementSvc.Wait()

	shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
	return runErr
}

// newOpsGRPCServer собирает gRPC-сервер со стандартным health и reflection.
func newOpsGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)
	grpcMetrics.InitializeMetrics(server)

	return server, healthServer
}

// newOpsMux отдаёт /metrics и health checks.
func newOpsMux(healthHandler *healthcheck.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	return mux
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

func stopGRPC(server *grpc.Server, timeout time.Duration, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}
