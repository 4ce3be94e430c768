package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/config"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/fixture"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/repository/memory"
	"github.com/fjod/go_shop/internal/repository/mongodb"
	"github.com/fjod/go_shop/internal/repository/sqldb"
	"github.com/fjod/go_shop/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

const connectTimeout = 15 * time.Second

// openStore connects the configured backend, falling back to the in-memory
// store when STORE_FALLBACK=memory and the backend is unreachable.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*repository.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	store, err := connectStore(ctx, cfg)
	if err == nil {
		return store, nil
	}
	if cfg.StoreFallback != config.DriverMemory {
		return nil, err
	}

	log.Warn("store unavailable, using in-memory fixture store", "driver", cfg.StoreDriver, "error", err)
	return memory.NewStore(), nil
}

func connectStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.NewStore(), nil
	case config.DriverMongo:
		return mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	case config.DriverSQLite:
		return sqldb.Connect(ctx, sqldb.DialectSQLite, cfg.SQLitePath)
	case config.DriverPostgres:
		creds := sqldb.Credentials{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
		}
		return sqldb.Connect(ctx, sqldb.DialectPostgres, creds.DSN())
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// newCartCache returns the Redis cart cache behind a circuit breaker, or a
// no-op cache when REDIS_ADDR is unset.
func newCartCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (cache.CartCache, func()) {
	if cfg.RedisAddr == "" {
		return cache.NoopCache{}, func() {}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis ping failed, cart reads go to the store until it recovers", "addr", cfg.RedisAddr, "error", err)
	} else {
		log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
	}

	breaker := cache.NewBreakerCache(cache.NewRedisCache(redisClient, cfg.CartCacheTTL), cache.BreakerSettings{
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return breaker, func() {
		if err := redisClient.Close(); err != nil {
			log.Error("failed to close redis client", "error", err)
		}
	}
}

// seed fills an empty catalog, creates the demo accounts for the memory store
// and ensures the configured admin account.
func seed(ctx context.Context, cfg *config.Config, storeName string, catalog *service.CatalogService, accounts *service.AuthService, log *slog.Logger) error {
	if cfg.SeedCatalog {
		n, err := catalog.Seed(ctx, fixture.Products())
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("seeded catalog", "products", n)
		}
	}

	if storeName == memory.StoreName {
		for _, u := range fixture.DemoUsers {
			if _, err := accounts.EnsureUser(ctx, u.Name, u.Email, fixture.DemoPassword, u.Role); err != nil {
				return fmt.Errorf("failed to create demo user %s: %w", u.Email, err)
			}
		}
	}

	if cfg.AdminEmail != "" {
		created, err := accounts.EnsureUser(ctx, "Admin", cfg.AdminEmail, cfg.AdminPassword, domain.RoleAdmin)
		if err != nil {
			return fmt.Errorf("failed to ensure admin account: %w", err)
		}
		if created {
			log.Info("admin account created", "email", cfg.AdminEmail)
		}
	}
	return nil
}
