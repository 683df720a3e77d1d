package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/nortsur/pedidos/internal/bot"
	"github.com/nortsur/pedidos/internal/cache"
	"github.com/nortsur/pedidos/internal/client"
	"github.com/nortsur/pedidos/internal/config"
	"github.com/nortsur/pedidos/internal/db"
	"github.com/nortsur/pedidos/internal/observability"
	"github.com/nortsur/pedidos/internal/order"
	"github.com/nortsur/pedidos/internal/product"
	"github.com/nortsur/pedidos/internal/transport"
)

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(cfg.Format, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	log.Logger = log.With().Str("service", "order-service").Logger()
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg.Log)

	log.Info().Str("env", cfg.App.Env).Msg("Order service starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.AutoMigrate {
		if err := db.Migrate(cfg.Postgres.MigrateURL(), cfg.Postgres.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	sqlDB := pg.SQLX()
	defer func() { _ = sqlDB.Close() }()

	var clientOpts []client.Option
	if cfg.Redis.Enabled() {
		rdb, err := cache.New(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer func() { _ = rdb.Close() }()
		clientOpts = append(clientOpts, client.WithPhoneIndex(cache.NewPhoneIndex(rdb, cfg.Redis.PhoneCacheTTL)))
	} else {
		log.Info().Msg("REDIS_ADDR not set, phone index cache disabled")
	}

	metrics := observability.NewMetrics()

	clientSvc := client.NewService(client.NewRepository(pg.Pool), clientOpts...)
	productSvc := product.NewService(product.NewRepository(sqlDB))
	orderSvc := order.NewService(order.NewRepository(pg.Pool), clientSvc, productSvc, order.WithObserver(metrics))
	botSvc := bot.NewService(clientSvc, productSvc, orderSvc)

	router := transport.NewRouter(cfg.HTTP, metrics, transport.Services{
		Clients:  clientSvc,
		Products: productSvc,
		Orders:   orderSvc,
		Bot:      botSvc,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		return
	}
	log.Info().Msg("Server stopped")
}
