package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/trogers1052/virfolio/internal/api"
	"github.com/trogers1052/virfolio/internal/config"
	"github.com/trogers1052/virfolio/internal/database"
	"github.com/trogers1052/virfolio/internal/kafka"
	"github.com/trogers1052/virfolio/internal/logger"
	"github.com/trogers1052/virfolio/internal/marketdata"
	"github.com/trogers1052/virfolio/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{})
		fallback.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		return err
	}
	log.Info().Str("dir", cfg.Database.MigrationsDir).Msg("Migrations applied")

	var provider marketdata.Provider = marketdata.NewYahooProvider(
		marketdata.WithBaseURL(cfg.MarketData.BaseURL),
		marketdata.WithTimeout(cfg.MarketData.RequestTimeout),
		marketdata.WithRateLimit(cfg.MarketData.RateLimit),
		marketdata.WithProviderLogger(log.With().Str("component", "yahoo").Logger()),
	)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, cache will fall through")
		}
		provider = marketdata.NewCachedProvider(provider, rdb, cfg.MarketData.HistoryTTL, cfg.MarketData.InfoTTL, log)
	}

	gatewayOpts := []marketdata.Option{
		marketdata.WithConcurrency(cfg.MarketData.Concurrency),
		marketdata.WithFetchTimeout(cfg.MarketData.FetchTimeout),
		marketdata.WithLogger(log),
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.PriceTopic, log)
		defer producer.Close()
		gatewayOpts = append(gatewayOpts, marketdata.WithPublisher(producer))
	}

	gateway := marketdata.NewGateway(provider, gatewayOpts...)
	svc := service.New(db, gateway, log)

	consumerDone := make(chan error, 1)
	if cfg.Kafka.Enabled() {
		consumer := kafka.NewRefreshConsumer(cfg.Kafka.Brokers, cfg.Kafka.RefreshTopic, cfg.Kafka.GroupID, svc, log)
		go func() {
			consumerDone <- consumer.Start(ctx)
		}()
	} else {
		log.Info().Msg("Kafka disabled, price events will not be published")
		close(consumerDone)
	}

	handler := api.NewHandler(svc, db, log)
	server := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: api.SetupRoutes(handler),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	stop()
	if err, ok := <-consumerDone; ok && err != nil {
		log.Error().Err(err).Msg("Kafka consumer stopped with error")
	}

	log.Info().Msg("Shutdown complete")
	return nil
}
