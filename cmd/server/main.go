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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"s3bridge/internal/api"
	"s3bridge/internal/authz"
	"s3bridge/internal/config"
	"s3bridge/internal/credcache"
	"s3bridge/internal/exchange"
	"s3bridge/internal/middleware"
	"s3bridge/internal/midway"
	"s3bridge/internal/registry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return err
	}

	extractor := midway.NewExtractor(&cfg.Policy, logger.With("component", "midway"))
	reg := registry.New(cfg.RegistrySnapshot, logger.With("component", "registry"))
	gate := authz.NewGate(&cfg.Policy)
	exchanger := exchange.New(sts.NewFromConfig(awsCfg), logger.With("component", "exchange"))
	cache := credcache.New()
	handler := api.NewHandler(gate, reg, cache, exchanger, cfg.ExchangeTimeout, logger.With("component", "api"))

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Cookie", "Content-Type"},
	}))

	// Public endpoints - no auth required.
	r.Get("/healthz", handler.Healthz)

	// Session-gated credential endpoint.
	r.Group(func(r chi.Router) {
		r.Use(middleware.MidwayAuth(extractor, &cfg.Policy, logger.With("component", "auth")))
		r.Get("/credentials", handler.GetCredentials)
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("credential broker listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
