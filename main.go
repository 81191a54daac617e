package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/Polytraders/polytraders/api"
	"github.com/Polytraders/polytraders/config"
	"github.com/Polytraders/polytraders/handlers"
	"github.com/Polytraders/polytraders/logging"
	"github.com/Polytraders/polytraders/middleware"
	"github.com/Polytraders/polytraders/service"
	"github.com/Polytraders/polytraders/storage"
	"github.com/Polytraders/polytraders/syncer"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("POLYTRADERS_CONFIG"))
	if err != nil {
		bootLogger := logging.Component("main")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.Log)
	logger := logging.Component("main")
	if envErr != nil {
		logger.Debug().Msg("no .env file found, using environment")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := storage.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running without cache and mirrored metrics")
		redisClient = nil
	}

	store, err := storage.Open(*cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Data.Driver).Msg("failed to init storage")
	}

	client := api.NewClient(cfg.Upstream)
	feed := syncer.NewLiveFeed(client, cfg.Live, syncer.NewMetricsStore(redisClient))
	feed.Start(ctx)
	logger.Info().
		Dur("poll_interval", cfg.Live.PollInterval()).
		Int("window_size", cfg.Live.WindowSize).
		Msg("live feed started")

	svc := service.NewService(store, cfg, client, feed)
	h := handlers.NewHandler(cfg, svc, feed)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logging.Component("access")))
	h.Register(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = strconv.Itoa(cfg.Server.Port)
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMS) * time.Millisecond,
	}

	go func() {
		logger.Info().Str("addr", "http://localhost:"+port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("received shutdown signal, stopping gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutMS)*time.Millisecond)
	defer shutdownCancel()

	h.CloseStreams()
	feed.Stop()
	cancel()

	err = multierr.Combine(
		srv.Shutdown(shutdownCtx),
		store.Close(),
	)
	if redisClient != nil {
		err = multierr.Append(err, redisClient.Close())
	}
	if err != nil {
		logger.Error().Err(err).Msg("shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}
