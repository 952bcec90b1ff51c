package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rightwin/qr-portal-server/internal/config"
	"github.com/rightwin/qr-portal-server/internal/database"
	"github.com/rightwin/qr-portal-server/internal/handler"
	"github.com/rightwin/qr-portal-server/internal/jobs"
	"github.com/rightwin/qr-portal-server/internal/middleware"
	"github.com/rightwin/qr-portal-server/internal/redis"
	"github.com/rightwin/qr-portal-server/internal/repository"
	"github.com/rightwin/qr-portal-server/internal/service"
	"github.com/rightwin/qr-portal-server/internal/stream"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	codeRepo := repository.NewCodeRepository(db.DB)
	scanRepo := repository.NewScanRepository(db.DB)
	recorder := repository.NewScanRecorder(db)
	settingsRepo := repository.NewSettingsRepository(db.DB)
	accountRepo := repository.NewAccountRepository(db.DB)

	broker := stream.NewBroker(redisClient)
	defer broker.Close()

	settingsService, err := service.NewSettingsService(settingsRepo, cfg.SettingsCacheTTL())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init settings cache")
	}
	resolver := service.NewResolver(codeRepo, scanRepo, recorder, settingsService, broker, cfg.BaseURL)
	codeService := service.NewCodeService(codeRepo, settingsService)
	analyticsService := service.NewAnalyticsService(codeRepo, scanRepo, settingsService)
	accountService := service.NewAccountService(accountRepo)

	authMiddleware := middleware.NewAuthMiddleware(accountRepo)
	adminKeyMiddleware := middleware.NewAdminKeyMiddleware(cfg.AdminAPIKeyHash)
	resolveRateLimit := middleware.NewResolveRateLimitMiddleware(redisClient.Client, cfg.ResolveRatePerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	resolveHandler := handler.NewResolveHandler(resolver)
	codeHandler := handler.NewCodeHandler(codeService, analyticsService)
	adminHandler := handler.NewAdminHandler(settingsService, codeService, accountService)
	eventsHandler := handler.NewEventsHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/r", func(r chi.Router) {
		r.Use(resolveRateLimit.Handler)
		r.Get("/{alias}", resolveHandler.ServeHTTP)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/codes", func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Mount("/", codeHandler.Routes())
		})
		r.Route("/events", func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Get("/", eventsHandler.ServeHTTP)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminKeyMiddleware.Handler)
			r.Mount("/", adminHandler.Routes())
		})
	})

	retentionJob := jobs.NewRetentionJob(scanRepo, settingsService, cfg.RetentionSchedule)
	if err := retentionJob.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start retention job")
	}
	defer retentionJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
