package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/pongarena/tournament-engine/brackets"
	"github.com/pongarena/tournament-engine/config"
	"github.com/pongarena/tournament-engine/db"
	"github.com/pongarena/tournament-engine/handlers"
	"github.com/pongarena/tournament-engine/repositories"
	api "github.com/pongarena/tournament-engine/routes"
	"github.com/pongarena/tournament-engine/services"
	"github.com/pongarena/tournament-engine/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.MigrateUp(dbConn, cfg.MigrationsURL); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	var uploader storage.FileUploader
	if cfg.R2.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("logo storage not configured, uploads disabled")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	userRepo := repositories.NewSQLUserRepository(dbConn)
	tournamentRepo := repositories.NewSQLTournamentRepository(dbConn)
	participantRepo := repositories.NewSQLParticipantRepository(dbConn)
	matchRepo := repositories.NewSQLMatchRepository(dbConn)
	notificationRepo := repositories.NewSQLNotificationRepository(dbConn)

	locker := services.NewTournamentLocker()
	generator := brackets.NewSingleEliminationGenerator(nil)
	notifier := services.NewNotifier(services.NewInboxDeliverer(notificationRepo), logger)

	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		participantRepo,
		matchRepo,
		generator,
		locker,
		notifier,
		wsHub,
		uploader,
		logger,
	)
	participantService := services.NewParticipantService(
		dbConn,
		tournamentRepo,
		participantRepo,
		userRepo,
		locker,
	)
	matchService := services.NewMatchService(
		dbConn,
		tournamentRepo,
		participantRepo,
		matchRepo,
		locker,
		notifier,
		wsHub,
		logger,
	)
	notificationService := services.NewNotificationService(notificationRepo)
	logger.Info("services initialized")

	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	participantHandler := handlers.NewParticipantHandler(participantService)
	matchHandler := handlers.NewMatchHandler(matchService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, tournamentService, logger)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		[]byte(cfg.JWTSecretKey),
		tournamentHandler,
		participantHandler,
		matchHandler,
		notificationHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
