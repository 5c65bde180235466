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

	"github.com/gometeo/widget/internal/api"
	"github.com/gometeo/widget/internal/api/handlers"
	"github.com/gometeo/widget/internal/config"
	"github.com/gometeo/widget/internal/events"
	"github.com/gometeo/widget/internal/provider/citysearch"
	"github.com/gometeo/widget/internal/provider/openweather"
	"github.com/gometeo/widget/internal/session"
	"github.com/gometeo/widget/internal/widget"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration failed", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	logger.Info("starting weather widget",
		"port", cfg.HTTPPort,
		"session_backend", cfg.SessionBackend,
		"session_ttl", cfg.SessionTTL)

	if cfg.WeatherAPIKey == "" {
		logger.Warn("OWM_API_KEY is not set, weather lookups will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("opening session store failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var opts []widget.Option
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Error("connecting to kafka failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("closing kafka producer failed", "error", err)
			}
		}()
		opts = append(opts, widget.WithPublisher(publisher))
	}

	controller := widget.NewController(
		citysearch.New(cfg.CitySearchBaseURL, cfg.HTTPClientTimeout, logger),
		openweather.New(cfg.WeatherBaseURL, cfg.WeatherAPIKey, cfg.HTTPClientTimeout, logger),
		store,
		logger,
		opts...,
	)

	h := handlers.NewWidgetHandler(controller, store, cfg.SessionCookie, cfg.SessionTTL, logger)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(h, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.HTTPClientTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	} else {
		logger.Info("server stopped")
	}
}

func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.SessionBackend == config.SessionBackendRedis {
		return session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL, logger)
	}

	store := session.NewMemoryStore(cfg.SessionTTL)
	go store.RunJanitor(ctx, time.Minute, logger)
	return store, nil
}
