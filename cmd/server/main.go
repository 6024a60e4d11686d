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

	"github.com/gamalabdu/trash-billing/internal/config"
	"github.com/gamalabdu/trash-billing/internal/logging"
	appMiddleware "github.com/gamalabdu/trash-billing/internal/middleware"
	"github.com/gamalabdu/trash-billing/internal/repository"
	"github.com/gamalabdu/trash-billing/internal/server"
	"github.com/gamalabdu/trash-billing/internal/service"
	"github.com/gamalabdu/trash-billing/pkg/payment"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config (.env is read inside config.Load for local development)
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}

	logger := logging.New(cfg.LogLevel, cfg.IsProduction(), os.Stdout)
	logrus.SetFormatter(logger.Formatter)
	logrus.SetLevel(logger.GetLevel())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := newGateway(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("payment gateway error")
	}

	cache, closeCache := newCatalogCache(ctx, cfg, logger)
	defer closeCache()

	billingSvc := service.NewBillingService(gateway, cache, service.BillingOptions{
		CallTimeout: cfg.ProcessorTimeout,
		CatalogTTL:  cfg.CatalogCacheTTL,
		Logger:      logger,
	})
	authSvc := service.NewAuthService(cfg.JWTSecret)
	if !authSvc.Enabled() {
		logger.Warn("JWT_SECRET not set, admin billing routes are disabled")
	}

	rl := appMiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rl.Stop()

	router := server.NewRouter(server.Deps{
		Billing:     billingSvc,
		Auth:        authSvc,
		Cache:       cache,
		RateLimiter: rl,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ProcessorTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("graceful shutdown failed")
		}
	}()

	logger.WithFields(logrus.Fields{
		"addr":     addr,
		"provider": cfg.PaymentProvider,
		"env":      cfg.AppEnv,
	}).Info("billing proxy listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("server error")
	}
}

func newGateway(cfg *config.Config, logger *logrus.Logger) (payment.Gateway, error) {
	if cfg.PaymentProvider == config.ProviderMock {
		logger.Warn("using the in-memory demo payment gateway")
		return payment.NewDemoGateway(), nil
	}
	return payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:         cfg.StripeSecretKey,
		APIURL:            cfg.StripeAPIURL,
		MaxNetworkRetries: cfg.StripeMaxRetries,
		HTTPClient:        &http.Client{Timeout: cfg.ProcessorTimeout},
		Logger:            logger.WithField("component", "stripe"),
	})
}

// newCatalogCache prefers Redis and falls back to process memory when
// REDIS_URL is unset or unreachable.
func newCatalogCache(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.CatalogCache, func()) {
	if cfg.RedisURL == "" {
		return repository.NewMemoryCatalogCache(), func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	redisCache, err := repository.NewRedisCatalogCache(pingCtx, cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, using in-memory plan cache")
		return repository.NewMemoryCatalogCache(), func() {}
	}
	logger.Info("redis plan cache connected")
	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			logger.WithError(err).Warn("failed to close redis")
		}
	}
}
