// Package main is the entry point for the viral-search-service API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"viral-search-service/internal/app/service"
	"viral-search-service/internal/auth"
	"viral-search-service/internal/config"
	"viral-search-service/internal/domain"
	"viral-search-service/internal/infra/catalog"
	"viral-search-service/internal/infra/events"
	"viral-search-service/internal/infra/postgres"
	"viral-search-service/internal/infra/postgres/migrations"
	rediscache "viral-search-service/internal/infra/redis"
	"viral-search-service/internal/job"
	"viral-search-service/internal/logger"
	"viral-search-service/internal/ratelimit"
	"viral-search-service/internal/tracing"
	"viral-search-service/internal/transport/httpserver"
	"viral-search-service/internal/transport/httpserver/middleware"
	"viral-search-service/internal/validator"
	"viral-search-service/pkg/locker"
)

const (
	shutdownTimeout = 10 * time.Second
	keyLockTTL      = 2 * time.Second
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load(os.Getenv("APP_CONFIG_FILE"))
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(
		logger.Config{
			Level:  cfg.Logger.Level,
			Format: cfg.Logger.Format,
			Output: cfg.Logger.Output,
		},
		logger.SentryConfig{
			Enabled:     cfg.Sentry.Enabled,
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
			Release:     version,
		},
	)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting viral-search-service",
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.Int("port", cfg.App.Port),
	)

	ctx := context.Background()

	tracer, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.App.Name,
		Version:     version,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// Redis backs the shared rate limit window and the catalog cache.
	var redisClient *redis.Client
	if cfg.RateLimit.Backend == config.BackendRedis || cfg.Cache.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	}

	// Database is only needed for persistence and history.
	var (
		db        *gorm.DB
		repo      domain.ScoreRepository
		savedRepo domain.SavedItemRepository
	)
	if cfg.Persistence.Enabled {
		db, err = postgres.NewConnection(ctx,
			postgres.Config{
				Host:         cfg.Database.Host,
				Port:         cfg.Database.Port,
				Name:         cfg.Database.Name,
				User:         cfg.Database.User,
				Password:     cfg.Database.Password,
				SSLMode:      cfg.Database.SSLMode,
				MaxOpenConns: cfg.Database.MaxOpenConns,
				MaxIdleConns: cfg.Database.MaxIdleConns,
				MaxLifetime:  cfg.Database.MaxLifetime,
				LogQueries:   cfg.Database.LogQueries,
			},
			log.Logger,
		)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer func() { _ = postgres.Close(db) }()

		if err := migrations.Run(db); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		log.Info("database migrations completed")

		pgRepo := postgres.NewRepository(db)
		repo = pgRepo
		savedRepo = pgRepo
	} else {
		log.Info("persistence disabled")
	}

	// Catalog gateway, optionally behind the Redis cache.
	var gateway domain.CatalogGateway = catalog.New(
		catalog.ClientConfig{
			BaseURL: cfg.Catalog.BaseURL,
			APIKey:  cfg.Catalog.APIKey,
			Timeout: cfg.Catalog.Timeout,
			CB: catalog.CBConfig{
				MaxRequests:  cfg.Catalog.CB.MaxRequests,
				Interval:     cfg.Catalog.CB.Interval,
				Timeout:      cfg.Catalog.CB.Timeout,
				FailureRatio: cfg.Catalog.CB.FailureRatio,
			},
		},
		log.Logger,
	)
	if cfg.Cache.Enabled {
		cache := rediscache.NewCache(redisClient, log.Logger, cfg.Cache.KeyPrefix)
		gateway = rediscache.NewCachedCatalog(gateway, cache, cfg.Cache.SearchTTL, log.Logger)
		log.Info("catalog cache enabled", zap.Duration("search_ttl", cfg.Cache.SearchTTL))
	}

	// Rate limiter: process memory by default, Redis when shared across instances.
	limiterCfg := ratelimit.Config{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
	}
	var (
		limiter    *ratelimit.Limiter
		distLocker locker.DistributedLocker
	)
	switch cfg.RateLimit.Backend {
	case config.BackendRedis:
		distLocker = locker.NewRedisLocker(redisClient, log.Logger,
			locker.WithTries(32),
			locker.WithRetryDelay(10*time.Millisecond),
		)
		limiter = ratelimit.New(limiterCfg, log.Logger,
			ratelimit.WithStore(ratelimit.NewRedisStore(redisClient, cfg.RateLimit.KeyPrefix)),
			ratelimit.WithKeyLocker(ratelimit.NewDistributedKeyLocker(distLocker, cfg.RateLimit.KeyPrefix, keyLockTTL)),
		)
	default:
		limiter = ratelimit.New(limiterCfg, log.Logger)
	}
	log.Info("rate limiter ready",
		zap.String("backend", cfg.RateLimit.Backend),
		zap.Int("max_requests", limiterCfg.MaxRequests),
		zap.Duration("window", limiterCfg.Window),
	)

	// Search events.
	var publisher domain.EventPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err := events.NewNATSPublisher(events.Config{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.Subject,
			Name:    cfg.App.Name,
		}, log.Logger)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	// Background persistence.
	var persister *service.Persister
	if repo != nil || publisher != nil {
		persister = service.NewPersister(repo, publisher, service.PersisterConfig{
			Workers:   cfg.Persistence.Workers,
			QueueSize: cfg.Persistence.QueueSize,
			Timeout:   cfg.Persistence.Timeout,
		}, log.Logger)
		persister.Start()
	}

	opts := []service.Option{}
	if repo != nil {
		opts = append(opts, service.WithRepository(repo))
	}
	if persister != nil {
		opts = append(opts, service.WithPersister(persister))
	}
	searchSvc := service.NewSearchService(gateway, limiter, log.Logger, opts...)
	savedSvc := service.NewSavedService(savedRepo, log.Logger)

	// Identity is optional; without a secret every caller is anonymous.
	var identity middleware.IdentityVerifier
	if jwtIdentity := auth.NewJWTIdentity(auth.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
	}); jwtIdentity != nil {
		identity = jwtIdentity
	}

	readiness := map[string]middleware.ReadinessCheck{}
	if db != nil {
		readiness["database"] = func(ctx context.Context) error { return postgres.HealthCheck(ctx, db) }
	}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Port:           cfg.App.Port,
			BodyLimit:      1024 * 1024, // 1MB
			MetricsPath:    metricsPath,
			ProxyHeader:    cfg.App.ProxyHeader,
			TrustedProxies: cfg.App.TrustedProxies,
		},
		httpserver.Dependencies{
			Search:    searchSvc,
			Saved:     savedSvc,
			Identity:  identity,
			Readiness: readiness,
			Validator: validator.New(),
		},
		log.Logger,
	)

	// Sweep idle rate-limit keys. With Redis one instance sweeps per interval.
	scheduler := job.NewSweepScheduler(
		limiter,
		job.SweepConfig{Interval: cfg.RateLimit.SweepInterval},
		log.Logger,
		distLocker,
	)
	scheduler.Start()

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutdown signal received")

		scheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}

		if persister != nil {
			if err := persister.Stop(ctx); err != nil {
				log.Error("persister shutdown error", zap.Error(err))
			}
		}

		if err := tracer.Shutdown(ctx); err != nil {
			log.Error("tracer shutdown error", zap.Error(err))
		}
	}()

	if err := server.Start(cfg.App.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}

	<-done
	log.Info("shutdown complete")
}
