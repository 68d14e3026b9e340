package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"herbmanager/backend/internal/cache"
	"herbmanager/backend/internal/config"
	"herbmanager/backend/internal/httpapi"
	"herbmanager/backend/internal/service"
	"herbmanager/backend/internal/stats"
	"herbmanager/backend/internal/store"
	"herbmanager/backend/internal/store/memory"
	pgstore "herbmanager/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
				log.Fatalf("apply migrations: %v", err)
			}
			log.Println("migrations: up to date")
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	cacheStore := cache.StatisticsCache(cache.NoopStatisticsCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisStatisticsCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			cacheStore = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	dashboard := stats.NewDashboard(repo, cacheStore, time.Duration(cfg.StatsCacheTTLSeconds)*time.Second)
	svc := service.New(repo, dashboard)

	var auth *httpapi.AuthManager
	if cfg.AuthEnabled() {
		auth = httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, cfg.AdminUsername, cfg.AdminPasswordHash)
		log.Printf("auth: bearer token required (admin %q)", cfg.AdminUsername)
	} else {
		log.Println("auth: disabled")
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("herb manager backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// validateSecurityConfig only applies when auth is switched on by AUTH_SECRET.
func validateSecurityConfig(cfg config.Config) error {
	if !cfg.AuthEnabled() {
		return nil
	}
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 characters")
	}
	if cfg.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH must be set when AUTH_SECRET is set")
	}
	if !httpapi.IsPasswordHash(cfg.AdminPasswordHash) {
		return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash")
	}
	return nil
}
