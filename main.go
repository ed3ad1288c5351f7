package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-unify/pkg/auth"
	"github.com/ekaya-inc/ekaya-unify/pkg/cache"
	"github.com/ekaya-inc/ekaya-unify/pkg/config"
	"github.com/ekaya-inc/ekaya-unify/pkg/database"
	"github.com/ekaya-inc/ekaya-unify/pkg/handlers"
	"github.com/ekaya-inc/ekaya-unify/pkg/logging"
	"github.com/ekaya-inc/ekaya-unify/pkg/metrics"
	"github.com/ekaya-inc/ekaya-unify/pkg/middleware"
	"github.com/ekaya-inc/ekaya-unify/pkg/registry"
	"github.com/ekaya-inc/ekaya-unify/pkg/repositories"
	"github.com/ekaya-inc/ekaya-unify/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.Bool("redis", cfg.Redis.Enabled()),
		zap.Bool("auth", cfg.Auth.Enabled()),
		zap.Bool("mapping_cache", !cfg.Mapping.DisableCache))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	dbURL := cfg.Database.ConnectionString()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            dbURL,
		MaxConnections: cfg.Database.MaxConnections,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := migrate(dbURL, logger); err != nil {
		return err
	}

	reg, err := loadRegistry(ctx, db, !cfg.Mapping.SkipSeed, logger)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(promRegistry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// The cache is the invalidation target; with caching disabled there is
	// nothing to invalidate.
	var (
		resolver = services.NewMappingResolver(reg, logger)
		target   cache.Invalidator
		sizer    handlers.CacheSizer
	)
	if !cfg.Mapping.DisableCache {
		cached := services.NewCachedResolver(resolver, m, logger)
		resolver, target, sizer = cached, cached, cached
	}

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var notifier cache.Notifier
	if redisClient != nil {
		defer redisClient.Close()
		invalidator := cache.NewRedisInvalidator(redisClient, cfg.Mapping.InvalidationChannel, target, logger)
		notifier = invalidator
		if target != nil {
			g.Go(func() error {
				if err := invalidator.Subscribe(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("invalidation subscription failed: %w", err)
				}
				return nil
			})
		}
	} else {
		notifier = cache.NewLocalNotifier(target)
	}

	accounts := services.NewAccountMappingService(repositories.NewAccountFieldMappingRepository(), reg, notifier, logger)
	transform := services.NewTransformService(resolver, services.NewUnifyEngine(logger), services.NewDisunifyEngine(logger), m, logger)

	accountMiddleware, closeAuth, err := newAccountMiddleware(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer closeAuth()

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, db, sizer, logger).RegisterRoutes(mux)
	handlers.NewTransformHandler(transform, accounts, logger).RegisterRoutes(mux, accountMiddleware)
	handlers.NewFieldMappingHandler(accounts, logger).RegisterRoutes(mux, accountMiddleware)
	mux.Handle("GET /metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("Starting ekaya-unify", zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newAccountMiddleware binds the account scope and, when auth is configured,
// first requires a bearer token issued for that account.
func newAccountMiddleware(ctx context.Context, cfg *config.Config, db *database.DB, logger *zap.Logger) (handlers.AccountMiddleware, func(), error) {
	scoped := database.WithAccountContext(db, logger)
	if !cfg.Auth.Enabled() {
		logger.Warn("Auth not configured; account routes are unauthenticated")
		return scoped, func() {}, nil
	}

	validator, err := auth.NewJWKSClient(ctx, &auth.JWKSConfig{
		SkipVerification: cfg.Auth.SkipVerification,
		JWKSEndpoints:    cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize JWKS client: %w", err)
	}
	if cfg.Auth.SkipVerification {
		logger.Warn("Token signatures are not verified")
	}

	requireAccount := auth.NewMiddleware(validator, logger).RequireAccount(database.AccountIDPathValue)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return requireAccount(scoped(next))
	}, validator.Close, nil
}

func migrate(dbURL string, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return err
	}
	return nil
}

// loadRegistry reads the mapping store with an unscoped connection, seeding
// an empty store when allowed.
func loadRegistry(ctx context.Context, db *database.DB, seed bool, logger *zap.Logger) (*registry.Registry, error) {
	scopedCtx, release, err := database.NewScopeProvider(db).WithoutAccountScope(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer release()

	reg, seeded, err := registry.LoadOrSeed(scopedCtx, repositories.NewMappingStore(), seed)
	if err != nil {
		return nil, fmt.Errorf("failed to load field mappings: %w", err)
	}
	if seeded {
		logger.Info("Seeded root field mappings")
	}
	logger.Info("Field mappings loaded", zap.String("root", reg.Root().ID.String()))
	return reg, nil
}
