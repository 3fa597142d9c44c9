package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content-paygate/internal/config"
	"content-paygate/internal/infra/chain"
	pg "content-paygate/internal/infra/db/postgres"
	"content-paygate/internal/infra/logging"
	red "content-paygate/internal/infra/redis"
	"content-paygate/internal/infra/sched"
	"content-paygate/internal/infra/token"
	"content-paygate/internal/infra/web"
	"content-paygate/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted fields)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	intentRepo := pg.NewPaymentIntentRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	catalogRepo := pg.NewCatalogRepo(pool)

	// ---- Chain verifiers ----
	registry, err := chain.NewRegistry(cfg.Chains, logger)
	if err != nil {
		log.Fatalf("chain registry: %v", err)
	}

	// ---- Access tokens ----
	issuer, err := token.NewJWTIssuer(cfg.JWT.Secret, cfg.JWT.DefaultAccessTTL)
	if err != nil {
		log.Fatalf("jwt issuer: %v", err)
	}

	// ---- Use cases ----
	purchaseUC := usecase.NewPurchaseUseCase(purchaseRepo, catalogRepo, issuer, logger)
	paymentUC := usecase.NewPaymentUseCase(
		intentRepo, purchaseRepo, catalogRepo,
		registry, purchaseUC, chain.BuildPaymentURL,
		cfg.Payment.IntentTTL, cfg.Runtime.Dev, logger,
	)

	// ---- HTTP server ----
	srv := web.NewServer(paymentUC, purchaseRepo, rateLimiter, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Expiry worker ----
	worker := sched.NewExpiryWorker(cfg.Payment.ExpiryInterval, cfg.Payment.ExpiryBatch, paymentUC, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
}
