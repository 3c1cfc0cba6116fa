// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xpanel/internal/config"
	"xpanel/internal/domain/ports/adapter"
	"xpanel/internal/domain/ports/repository"
	"xpanel/internal/infra/api"
	"xpanel/internal/infra/db/migrations"
	pg "xpanel/internal/infra/db/postgres"
	"xpanel/internal/infra/events"
	"xpanel/internal/infra/i18n"
	"xpanel/internal/infra/logging"
	"xpanel/internal/infra/metrics"
	red "xpanel/internal/infra/redis"
	"xpanel/internal/infra/sched"
	"xpanel/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	migrate := flag.Bool("migrate", false, "apply pending schema migrations before serving")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	if *migrate {
		if err := migrations.Up(cfg.Database.URL); err != nil {
			logger.Fatal().Err(err).Msg("migrations")
		}
		logger.Info().Msg("schema is up to date")
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis (optional) ----
	var (
		limiter api.RateLimiter
		locker  red.Locker
		cache   red.RedisClient
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		cache = redisClient
		limiter = red.NewRateLimiter(redisClient)
		locker = red.NewLocker(redisClient)
	} else {
		logger.Warn().Msg("redis disabled: no plan cache, rate limiting or worker lock")
	}

	// ---- Events ----
	var publisher adapter.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("kafka")
		}
		// Queued events are drained on Close, so the pool outlives the root context.
		publisher = events.NewAsyncPublisher(context.Background(), kp, 2, 256, logger)
	} else {
		publisher = events.NewNoopPublisher(logger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("event publisher close")
		}
	}()

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	var planRepo repository.PlanRepository = pg.NewPostgresPlanRepo(pool)
	if cache != nil {
		planRepo = pg.NewPlanRepoCacheDecorator(planRepo, cache, cfg.Redis.TTL, logger)
	}
	codeRepo := pg.NewRedemptionCodeRepo(pool)
	accountRepo := pg.NewPostgresAccountRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	commissionRepo := pg.NewCommissionRepo(pool)
	withdrawalRepo := pg.NewWithdrawalRepo(pool)

	// ---- Use cases ----
	rc := cfg.Redemption
	codeManager := usecase.NewCodeManager(codeRepo, planRepo, tm, usecase.CodePolicy{
		CodeLength:   rc.CodeLength,
		MaxRetries:   rc.MaxRetries,
		MaxBatch:     rc.MaxBatch,
		MaxPrefixLen: rc.MaxPrefixLen,
	}, logger)
	activationUC := usecase.NewActivationUseCase(codeRepo, planRepo, accountRepo, subRepo, commissionRepo, tm, publisher,
		usecase.ActivationPolicy{CommissionPercent: *rc.CommissionPercent}, logger)
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	accountUC := usecase.NewAccountUseCase(accountRepo, subRepo, planRepo, logger)
	commissionUC := usecase.NewCommissionUseCase(commissionRepo, accountRepo, tm, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, logger)
	referralUC := usecase.NewReferralUseCase(accountRepo, commissionRepo, logger)
	withdrawalUC := usecase.NewWithdrawalUseCase(withdrawalRepo, accountRepo, commissionRepo, tm,
		usecase.WithdrawalPolicy{MinAmount: cfg.Withdrawal.MinAmount}, logger)

	// ---- HTTP ----
	catalog, err := i18n.NewCatalog(i18n.LocalesFS, cfg.I18n.DefaultLang, "en", "zh")
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	trusted, err := api.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		logger.Fatal().Err(err).Msg("http.trusted_proxies")
	}
	router := api.NewRouter(api.Deps{
		Codes:          codeManager,
		Activation:     activationUC,
		Plans:          planUC,
		Accounts:       accountUC,
		Commissions:    commissionUC,
		Referrals:      referralUC,
		Withdrawals:    withdrawalUC,
		Tokens:         api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Limiter:        limiter,
		RedeemLimit:    rc.RedeemRateLimit,
		Catalog:        catalog,
		Health:         pool.Ping,
		TrustedProxies: trusted,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Logger:         logger,
	})
	server := api.NewServer(router, api.ServerOptions{
		Port:         cfg.HTTP.Port,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Expiry worker ----
	if cfg.Scheduler.ExpiryInterval > 0 {
		worker := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, subUC, locker, logger)
		go func() { _ = worker.Run(ctx) }()
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
