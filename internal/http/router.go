// Package http exposes the cart, catalog and auth services as a JSON API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/logger"
	"github.com/fjod/go_shop/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Log                *slog.Logger
	ServiceName        string
	StoreName          string
	ExposeErrors       bool
	FrontendURL        string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	SharedSession      bool
	AuthRateLimit      int
	AuthRateWindow     time.Duration
}

type Services struct {
	Cart    CartService
	Catalog CatalogService
	Auth    AuthService
}

func (c RouterConfig) withDefaults() RouterConfig {
	if c.ServiceName == "" {
		c.ServiceName = "shop-api"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxRequestBodySize <= 0 {
		c.MaxRequestBodySize = 1 << 20 // 1MB
	}
	if c.AuthRateLimit <= 0 {
		c.AuthRateLimit = 5
	}
	if c.AuthRateWindow <= 0 {
		c.AuthRateWindow = 15 * time.Minute
	}
	if c.FrontendURL == "" {
		c.FrontendURL = "http://localhost:3000"
	}
	return c
}

func NewRouter(cfg RouterConfig, svc Services) http.Handler {
	cfg = cfg.withDefaults()
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}
	rs := &responder{log: cfg.Log, exposeErrors: cfg.ExposeErrors}

	cartHandler := NewCartHandler(svc.Cart, session.NewResolver(cfg.SharedSession), cfg.RequestTimeout, rs)
	productHandler := NewProductHandler(svc.Catalog, cfg.RequestTimeout, rs)
	authHandler := NewAuthHandler(svc.Auth, cfg.RequestTimeout, rs)
	guard := &authMiddleware{tokens: svc.Auth, rs: rs}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", session.HeaderName, RequestIDHeader},
		ExposedHeaders:   []string{session.HeaderName, RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rs.json(w, http.StatusNotFound, failure("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rs.json(w, http.StatusMethodNotAllowed, failure("Method not allowed"))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		rs.json(w, http.StatusOK, ok(map[string]any{
			"version": "1.0.0",
			"endpoints": map[string]string{
				"products": "/api/products",
				"cart":     "/api/cart",
				"auth":     "/api/auth",
			},
		}, "E-Commerce API Server is running!"))
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": cfg.StoreName})
	})

	authLimit := httprate.Limit(
		cfg.AuthRateLimit,
		cfg.AuthRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			rs.json(w, http.StatusTooManyRequests, failure("Too many authentication attempts, please try again later."))
		}),
	)

	r.Route("/api", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/", cartHandler.AddItem)
			r.Delete("/", cartHandler.ClearCart)
			r.Put("/{id}", cartHandler.UpdateQuantity)
			r.Delete("/{id}", cartHandler.RemoveItem)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/category/{category}", productHandler.ByCategory)
			r.Get("/{id}", productHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(guard.RequireAuth, guard.RequireAdmin)
				r.Post("/", productHandler.Create)
				r.Post("/{id}/stock/increase", productHandler.IncreaseStock)
				r.Post("/{id}/stock/decrease", productHandler.DecreaseStock)
			})
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimit).Post("/register", authHandler.Register)
			r.With(authLimit).Post("/login", authHandler.Login)
			r.With(guard.RequireAuth).Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
		})
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
