// seed-field-mappings rewrites the root field mappings from the embedded seed
// and tells running servers to drop their cached mappings.
//
// Usage: go run ./scripts/seed-field-mappings [-dry-run=false]
//
// Configuration: reads config.yaml and the same environment variables as the
// server (PG*, REDIS_*). With Redis configured the rewrite holds a lock so two
// runs cannot interleave, and the invalidation is published on the mapping
// channel.
//
// Flags:
//
//	-dry-run   Compare the stored root with the seed without writing (default: true)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bsm/redislock"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/cache"
	"github.com/ekaya-inc/ekaya-unify/pkg/config"
	"github.com/ekaya-inc/ekaya-unify/pkg/database"
	"github.com/ekaya-inc/ekaya-unify/pkg/logging"
	"github.com/ekaya-inc/ekaya-unify/pkg/registry"
	"github.com/ekaya-inc/ekaya-unify/pkg/repositories"
)

const (
	lockKey = "unify:lock:seed-field-mappings"
	lockTTL = 2 * time.Minute
)

func main() {
	dryRun := flag.Bool("dry-run", true, "Compare the stored root with the seed without writing")
	flag.Parse()

	cfg, err := config.Load("seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lockTTL)
	defer cancel()

	if err := run(ctx, cfg, *dryRun, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Seeding failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, dryRun bool, logger *zap.Logger) error {
	db, err := database.NewConnection(ctx, &database.Config{URL: cfg.Database.ConnectionString(), MaxConnections: 2}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, release, err := database.NewScopeProvider(db).WithoutAccountScope(ctx)
	if err != nil {
		return err
	}
	defer release()

	store := repositories.NewMappingStore()
	if dryRun {
		return report(ctx, store)
	}

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}

	var notifier cache.Notifier = cache.NewLocalNotifier(nil)
	if redisClient != nil {
		defer redisClient.Close()

		lock, err := redislock.New(redisClient).Obtain(ctx, lockKey, lockTTL, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(500*time.Millisecond), 20),
		})
		if errors.Is(err, redislock.ErrNotObtained) {
			return fmt.Errorf("another seed run holds %s", lockKey)
		}
		if err != nil {
			return fmt.Errorf("failed to obtain seed lock: %w", err)
		}
		defer func() { _ = lock.Release(context.Background()) }()

		notifier = cache.NewRedisInvalidator(redisClient, cfg.Mapping.InvalidationChannel, nil, logger)
	} else {
		logger.Warn("Redis not configured; running servers keep cached mappings until restart")
	}

	if err := registry.WriteSeed(ctx, store); err != nil {
		return err
	}
	if err := notifier.AllChanged(ctx); err != nil {
		return err
	}

	root, err := store.GetRoot(ctx)
	if err != nil {
		return err
	}
	count, err := store.CountFieldMappings(ctx, root.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Root mapping %s rewritten with %d field mappings\n", root.ID, count)
	return nil
}

func report(ctx context.Context, store *repositories.MappingStore) error {
	seed, err := registry.BuildSeed()
	if err != nil {
		return err
	}
	fmt.Printf("Seed: root %s, %d object schemas, %d field mappings\n",
		seed.Root.ID, len(seed.Root.Schemas), len(seed.FieldMappings))

	root, err := store.GetRoot(ctx)
	if errors.Is(err, apperrors.ErrNotFound) {
		fmt.Println("Store: no root mapping")
		fmt.Println("\nDry run. Use -dry-run=false to write the seed.")
		return nil
	}
	if err != nil {
		return err
	}
	count, err := store.CountFieldMappings(ctx, root.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Store: root %s, %d field mappings\n", root.ID, count)
	if root.ID == seed.Root.ID && count == len(seed.FieldMappings) {
		fmt.Println("Store matches the seed.")
	}
	fmt.Println("\nDry run. Use -dry-run=false to write the seed.")
	return nil
}
