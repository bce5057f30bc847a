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
	"github.com/go-co-op/gocron/v2"
	"github.com/pogoleague/league-system/config"
	"github.com/pogoleague/league-system/db"
	"github.com/pogoleague/league-system/handlers"
	"github.com/pogoleague/league-system/live"
	"github.com/pogoleague/league-system/repositories"
	api "github.com/pogoleague/league-system/routes"
	"github.com/pogoleague/league-system/services"
	"github.com/pogoleague/league-system/storage"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	gymRepo := repositories.NewPostgresGymRepository(dbConn)
	disputeRepo := repositories.NewPostgresDisputeRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	resultRepo := repositories.NewPostgresResultRepository(dbConn)
	leadershipRepo := repositories.NewPostgresLeadershipRepository(dbConn)
	challengeRepo := repositories.NewPostgresChallengeRepository(dbConn)
	seasonRepo := repositories.NewPostgresSeasonRepository(dbConn)
	jobRepo := repositories.NewPostgresJobRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов. Job-сервис создаётся раньше диспут-сервиса,
	// диспетчер подключается после — так разрывается их взаимная
	// зависимость.
	authService := services.NewAuthService(userRepo)
	jobService := services.NewJobService(jobRepo, disputeRepo, logger)
	disputeService := services.NewDisputeService(
		gymRepo,
		disputeRepo,
		participantRepo,
		resultRepo,
		leadershipRepo,
		challengeRepo,
		seasonRepo,
		jobService,
		wsHub,
		logger,
		services.DisputeWindows{
			Registration: cfg.DisputeRegistrationWindow,
			Battle:       cfg.DisputeBattleWindow,
		},
	)
	jobService.SetDispatcher(disputeService)

	leadershipService := services.NewLeadershipService(leadershipRepo)
	gymService := services.NewGymService(gymRepo, userRepo, challengeRepo, leadershipRepo, disputeService, cloudflareUploader, logger)
	logger.Info("Services initialized")

	// Периодический триггер отложенных задач жизненного цикла
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logger.Error("failed to create scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.SchedulerInterval),
		gocron.NewTask(func() {
			outcomes, err := jobService.ExecuteDueJobs(context.Background(), time.Now())
			if err != nil {
				logger.Error("scheduler tick failed", slog.Any("error", err))
				return
			}
			if len(outcomes) > 0 {
				logger.Info("scheduler tick processed jobs", slog.Int("count", len(outcomes)))
			}
		}),
	)
	if err != nil {
		logger.Error("failed to register scheduler job", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("job scheduler started", slog.Duration("interval", cfg.SchedulerInterval))
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("failed to shut down scheduler", slog.Any("error", err))
		}
	}()

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	gymHandler := handlers.NewGymHandler(gymService, leadershipService, disputeService)
	disputeHandler := handlers.NewDisputeHandler(disputeService)
	jobHandler := handlers.NewJobHandler(jobService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		gymHandler,
		disputeHandler,
		jobHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
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

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
