package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"watchshop/backend/internal/cache"
	"watchshop/backend/internal/config"
	"watchshop/backend/internal/httpapi"
	"watchshop/backend/internal/logger"
	"watchshop/backend/internal/service"
	"watchshop/backend/internal/store"
	"watchshop/backend/internal/store/memory"
	"watchshop/backend/internal/store/sqlstore"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	zlog.Logger = log

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reader, accounts, closers := openStore(ctx, cfg, log)

	var attempts cache.AttemptCounter = cache.NewMemoryAttemptCounter()
	if cfg.RedisAddr != "" {
		redisCounter := cache.NewRedisAttemptCounter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCounter.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, counting login attempts in memory")
			_ = redisCounter.Close()
		} else {
			attempts = redisCounter
			closers = append(closers, redisCounter.Close)
			log.Info().Str("addr", cfg.RedisAddr).Msg("login attempts: redis")
		}
	} else {
		log.Info().Msg("login attempts: memory")
	}

	svc := service.New(reader, log, cfg.TopProductsLimit)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, accounts)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin:    cfg.AllowedOrigin,
		LoginAttempts:    attempts,
		LoginMaxAttempts: cfg.LoginMaxAttempts,
		LoginWindow:      time.Duration(cfg.LoginWindowSeconds) * time.Second,
		Logger:           log,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("report server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}

// openStore connects to DATABASE_URL when set and refuses to fall back to the
// demo data if that fails. Without a URL the seeded in-memory shop is served.
func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (store.Reader, httpapi.AccountSource, []func() error) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, serving seeded demo data")
		repo := memory.NewSeeded()
		return repo, repo, nil
	}

	repo, err := sqlstore.New(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("database unavailable and DATABASE_URL is set; refusing to start with demo data")
	}
	log.Info().Str("driver", repo.Dialect()).Msg("repository: sql")
	return repo, repo, []func() error{repo.Close}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	lower := strings.ToLower(cfg.AuthSecret)
	for _, placeholder := range []string{"change-me", "changeme", "secret-key-here"} {
		if strings.Contains(lower, placeholder) {
			return fmt.Errorf("AUTH_SECRET still contains the placeholder %q", placeholder)
		}
	}
	if cfg.AllowedOrigin == "" {
		return fmt.Errorf("ALLOWED_ORIGIN must not be empty")
	}
	return nil
}
