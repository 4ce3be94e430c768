package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_shop/internal/auth"
	"github.com/fjod/go_shop/internal/config"
	"github.com/fjod/go_shop/internal/events"
	h "github.com/fjod/go_shop/internal/http"
	"github.com/fjod/go_shop/internal/logger"
	"github.com/fjod/go_shop/internal/service"
)

const serviceName = "shop-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg := logger.New(logger.Options{
		Service: serviceName,
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})
	slog.SetDefault(lg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg, lg)
	if err != nil {
		lg.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	lg.Info("store ready", "store", store.Name)

	cartCache, closeCache := newCartCache(ctx, cfg, lg)
	defer closeCache()

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.CartEventsTopic, lg, cfg.KafkaBrokers...)
		lg.Info("publishing cart events", "topic", cfg.CartEventsTopic, "brokers", cfg.KafkaBrokers)
	}

	catalog := service.NewCatalogService(store.Products, lg)
	carts := service.NewCartService(store.Products, store.Carts, cartCache, publisher, lg)
	accounts := service.NewAuthService(
		store.Users,
		auth.NewPasswordHasher(cfg.BcryptCost),
		auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		lg,
	)

	if err := seed(ctx, cfg, store.Name, catalog, accounts, lg); err != nil {
		lg.Error("failed to seed store", "error", err)
		os.Exit(1)
	}

	var consumer *events.StockConsumer
	if len(cfg.KafkaBrokers) > 0 {
		consumer = events.NewStockConsumer(catalog, lg, cfg.StockEventsTopic, cfg.KafkaGroupID, cfg.KafkaBrokers...)
		go consumer.Run(ctx)
		lg.Info("consuming stock adjustments", "topic", cfg.StockEventsTopic, "group", cfg.KafkaGroupID)
	}

	router := h.NewRouter(h.RouterConfig{
		Log:                lg,
		ServiceName:        serviceName,
		StoreName:          store.Name,
		ExposeErrors:       cfg.IsDevelopment(),
		FrontendURL:        cfg.FrontendURL,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		SharedSession:      cfg.SharedSession,
	}, h.Services{
		Cart:    carts,
		Catalog: catalog,
		Auth:    accounts,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("server starting", "port", cfg.HTTPPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server forced to shutdown", "error", err)
	}

	cancel()
	if consumer != nil {
		consumer.Close()
	}
	if err := publisher.Close(); err != nil {
		lg.Error("failed to close publisher", "error", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		lg.Error("failed to close store", "error", err)
	}

	lg.Info("server exited")
}
