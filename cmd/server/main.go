package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"domainconfig/internal/domainconfig/cache"
	"domainconfig/internal/domainconfig/handler"
	"domainconfig/internal/domainconfig/metrics"
	"domainconfig/internal/domainconfig/seed"
	"domainconfig/internal/domainconfig/service"
	"domainconfig/internal/domainconfig/store"
	"domainconfig/internal/platform/config"
	"domainconfig/internal/platform/httpserver"
	"domainconfig/internal/platform/logger"
	"domainconfig/internal/platform/middleware"
)

// dataStore is the full persistence surface: what the service reads and
// writes plus the wipe/count operations the seed loader uses.
type dataStore interface {
	service.Store
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	st, cleanup, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	m := metrics.New()
	c := cache.New(cfg.CacheTTL, cfg.CacheCapacity)
	defer c.Stop()

	svc := service.New(st, c, service.WithLogger(log), service.WithMetrics(m))
	loader := seed.New(st, log, seed.WithMetrics(m))
	if cfg.SeedOnStart {
		loader.Load(ctx)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	router.Handle("/metrics", promhttp.Handler())
	handler.New(svc, loader, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting domain configuration service", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// newStore picks Postgres when DATABASE_URL is set and the in-memory store
// otherwise. The in-memory fallback keeps local development free of
// infrastructure; it is not meant for production.
func newStore(ctx context.Context, cfg config.Server, log *slog.Logger) (dataStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewInMemory(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("connected to postgres")
	return pg, pool.Close, nil
}
