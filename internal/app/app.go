package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/edupay/remit-orders/internal/api"
	"github.com/edupay/remit-orders/internal/api/middleware"
	"github.com/edupay/remit-orders/internal/config"
	"github.com/edupay/remit-orders/internal/db"
	"github.com/edupay/remit-orders/internal/docgen"
	"github.com/edupay/remit-orders/internal/domain"
	"github.com/edupay/remit-orders/internal/gateway"
	"github.com/edupay/remit-orders/internal/observability"
	"github.com/edupay/remit-orders/internal/ratecache"
	"github.com/edupay/remit-orders/internal/repository"
	"github.com/edupay/remit-orders/internal/service"
	"github.com/edupay/remit-orders/internal/storage"
	"github.com/edupay/remit-orders/internal/worker"
)

// Run bootstraps the HTTP server and background sweepers, blocking
// until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	objectStore, err := storage.NewDirStore(cfg.StorageRoot)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}

	repo := repository.NewRepository(pool)
	rates := ratecache.New(redisClient, cfg.RateFeedTTL)

	feePolicy := domain.FeePolicy{ChargeOUR: cfg.BankFeeOUR, ChargeBEN: cfg.BankFeeBEN}
	taxRules := domain.NewConfiguredTaxRules(cfg.GSTPercent, cfg.TCSPercent, cfg.TaxRulesVersion)

	partner := docgen.PartnerBank{
		Name:          cfg.PartnerBankName,
		AccountName:   cfg.PartnerAccountName,
		AccountNumber: cfg.PartnerAccountNumber,
		IFSC:          cfg.PartnerIFSC,
	}
	docGenerator := docgen.NewPDFGenerator(objectStore)

	orderSvc := service.NewOrderService(repo, feePolicy, taxRules, rates)
	workflowSvc := service.NewWorkflowService(repo, orderSvc, docGenerator, partner, cfg.UploadBaseURL)
	beneficiarySvc := service.NewBeneficiaryService(repo)
	uploadSvc := service.NewUploadService(repo, objectStore)

	rateFeed := worker.NewRateFeedWorker(gateway.NewMockRateFeed(), rates).
		WithInterval(cfg.RateFeedTTL / 2)
	stopRateFeed := rateFeed.Run(ctx)

	rateExpiry := worker.NewRateExpiryWorker(orderSvc, cfg.RateValidity).
		WithPollInterval(cfg.RateSweepInterval).
		WithBatchSize(cfg.RateSweepBatchSize)
	stopRateExpiry := rateExpiry.Run(ctx)

	cleanup := worker.NewCleanupWorker(uploadSvc, cfg.UploadRetention).
		WithInterval(cfg.CleanupInterval).
		WithBatchSize(cfg.CleanupBatchSize)
	stopCleanup := cleanup.Run(ctx)

	router := api.NewRouter(cfg, logger, pool, redisClient, orderSvc, workflowSvc, beneficiarySvc)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping background workers")
	stopRateFeed()
	stopRateExpiry()
	stopCleanup()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
