package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/config"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/ingestion"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/channels"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/crawler"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/nexus"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/jetstream"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/observer"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/server"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/storage"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/tasklock"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/taskqueue"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/usecase"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/utils"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	logger.Log.Info("Starting Onboarding Orchestrator",
		zap.String("environment", cfg.Environment),
		zap.String("nats_url", cfg.NATS.URL),
		zap.String("domain", cfg.Domain),
	)

	// Initialize repositories
	postgresRepo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Initialize JetStream client
	jsClient, err := initJetStreamClient(cfg.NATS.URL)
	if err != nil {
		logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
	}

	// Create repository adapters for the service
	onboardingRepo := storage.NewOnboardingRepoAdapter(postgresRepo)
	tenantRepo := storage.NewTenantRepoAdapter(postgresRepo)

	// Distributed task lock on a JetStream KV bucket
	lockCtx, lockCancel := context.WithTimeout(context.Background(), 30*time.Second)
	taskLock, err := tasklock.NewNatsKVLock(lockCtx, jsClient, tasklock.DefaultBucket, cfg.Onboarding.TaskLockTTL)
	lockCancel()
	if err != nil {
		logger.Log.Fatal("Failed to initialize task lock bucket", zap.Error(err))
	}

	// Background task publisher
	publisher := taskqueue.NewJetStreamPublisher(jsClient)

	// Workflow service with its collaborator clients
	service := usecase.NewService(usecase.Deps{
		OnboardingRepo: onboardingRepo,
		TenantRepo:     tenantRepo,
		Publisher:      publisher,
		Lock:           taskLock,
		Crawler:        crawler.NewHTTPClient(cfg.Crawler),
		Channels:       channels.NewHTTPClient(cfg.Channels),
		Nexus:          nexus.NewHTTPClient(cfg.Nexus),
	}, cfg.Domain, cfg.Onboarding)

	if err := service.StartWorkerPool(cfg.WorkerPools.PostCrawl); err != nil {
		logger.Log.Fatal("Failed to start post-crawl worker pool", zap.Error(err))
	}

	// Background task consumer (link waiter + pipeline dispatch)
	taskConsumer := taskqueue.NewConsumer(jsClient, service, cfg.NATS.TaskQueue, cfg.Onboarding)
	if err := taskConsumer.Setup(); err != nil {
		logger.Log.Fatal("Failed to set up task queue consumer", zap.Error(err))
	}

	// Tenant directory events consumer
	tenantConsumer := ingestion.NewConsumer(jsClient, tenantRepo, service, cfg.NATS.Tenants)
	if err := tenantConsumer.Setup(); err != nil {
		logger.Log.Fatal("Failed to set up tenant events consumer", zap.Error(err))
	}

	// HTTP API
	readiness := map[string]server.ReadinessChecker{
		"postgres": func(ctx context.Context) error {
			_, err := onboardingRepo.FindByAccountID(ctx, "readiness-probe")
			if err != nil && !apperrors.IsNotFoundError(err) {
				return err
			}
			return nil
		},
		"nats": func(ctx context.Context) error {
			if conn := jsClient.NatsConn(); conn == nil || !conn.IsConnected() {
				return fmt.Errorf("nats connection is down")
			}
			return nil
		},
	}
	httpServer := server.NewServer(cfg.Server.Port, service, metricsEnabled, readiness)

	if err := taskConsumer.Start(); err != nil {
		logger.Log.Fatal("Failed to start task queue consumer", zap.Error(err))
	}
	if err := tenantConsumer.Start(); err != nil {
		logger.Log.Fatal("Failed to start tenant events consumer", zap.Error(err))
	}

	utils.SafeGo(func() {
		if err := httpServer.Start(); err != nil {
			logger.Log.Fatal("HTTP server failed", zap.Error(err))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[panic] HTTP server goroutine panicked",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
	})

	logger.Log.Info("Onboarding Orchestrator started",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics", metricsEnabled))

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	var wg sync.WaitGroup
	wg.Add(4)

	// Stop consumers first so no new work arrives
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping consumers")
		start := time.Now()
		taskConsumer.Stop()
		tenantConsumer.Stop()
		logger.Log.Info("[shutdown] Consumers stopped", zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping consumers",
			zap.Any("panic", r), zap.ByteString("stack", stack))
		wg.Done()
	})

	// Stop the HTTP server
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping HTTP server")
		start := time.Now()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping HTTP server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] HTTP server stopped", zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping HTTP server",
			zap.Any("panic", r), zap.ByteString("stack", stack))
		wg.Done()
	})

	// Stop the worker pool
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping post-crawl worker pool")
		start := time.Now()
		service.Close()
		logger.Log.Info("[shutdown] Worker pool stopped", zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping worker pool",
			zap.Any("panic", r), zap.ByteString("stack", stack))
		wg.Done()
	})

	// Close connections last
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		start := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed", zap.Duration("duration", time.Since(start)))
		}

		logger.Log.Info("[shutdown] Closing JetStream connection")
		jsStart := time.Now()
		jsClient.Close()
		logger.Log.Info("[shutdown] JetStream connection closed", zap.Duration("duration", time.Since(jsStart)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing connections",
			zap.Any("panic", r), zap.ByteString("stack", stack))
		wg.Done()
	})

	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Onboarding Orchestrator shutdown complete")
}

// Initialize PostgreSQL repository
func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}

// initJetStreamClient initializes the JetStream client
func initJetStreamClient(url string) (*jetstream.Client, error) {
	client, err := jetstream.NewClient(url)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream client: %w", err)
	}
	return client, nil
}
