package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/judo-pairings/brackets"
	"github.com/Dosada05/judo-pairings/config"
	"github.com/Dosada05/judo-pairings/db"
	"github.com/Dosada05/judo-pairings/handlers"
	"github.com/Dosada05/judo-pairings/models"
	"github.com/Dosada05/judo-pairings/repositories"
	api "github.com/Dosada05/judo-pairings/routes"
	"github.com/Dosada05/judo-pairings/services"
	"github.com/Dosada05/judo-pairings/storage"
	"github.com/Dosada05/judo-pairings/workers"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("store", cfg.StoreBackend))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
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

	if err := db.Migrate(context.Background(), dbConn); err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}

	officialRepo := repositories.NewPostgresOfficialRepository(dbConn)
	authService := services.NewAuthService(officialRepo, logger)

	// Режим CLI: create-official -email ... -name ... -role ... -password ...
	if len(os.Args) > 1 && os.Args[1] == "create-official" {
		if err := runCreateOfficial(authService, os.Args[2:]); err != nil {
			logger.Error("failed to create official", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger, dbConn, authService); err != nil {
		logger.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(cfg *config.Config, logger *slog.Logger, dbConn *sql.DB, authService services.AuthService) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Хранилище сеток: Postgres или Firestore
	var pairingsRepo repositories.PairingsRepository
	switch cfg.StoreBackend {
	case config.StoreBackendFirestore:
		client, err := db.ConnectFirestore(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return fmt.Errorf("failed to connect to firestore: %w", err)
		}
		defer client.Close()
		pairingsRepo = repositories.NewFirestorePairingsRepository(client)
	default:
		pairingsRepo = repositories.NewPostgresPairingsRepository(dbConn)
	}
	logger.Info("pairings store initialized", slog.String("backend", cfg.StoreBackend))

	// Инициализация загрузчика файлов (Cloudflare R2), необязательно
	var uploader storage.FileUploader
	if cfg.R2Configured() {
		u, err := storage.NewR2Uploader(ctx, storage.R2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		uploader = u
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage is not configured, medal export disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация сервисов
	pairingService := services.NewPairingService(
		pairingsRepo,
		brackets.NewSingleEliminationGenerator(),
		wsHub,
		logger,
		services.WithDefaultMatCount(cfg.MatCount),
	)
	exportService := services.NewMedalExportService(pairingService, uploader, logger)
	logger.Info("Services initialized")

	// Периодическая выгрузка медального зачёта
	if uploader != nil {
		worker, err := workers.NewMedalExportWorker(pairingsRepo, exportService, cfg.MedalExportInterval, logger)
		if err != nil {
			return err
		}
		if err := worker.Start(); err != nil {
			return err
		}
		defer func() {
			if err := worker.Stop(); err != nil {
				logger.Error("failed to stop medal export worker", slog.Any("error", err))
			}
		}()
	}

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Params{
		AuthHandler:      handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		PairingHandler:   handlers.NewPairingHandler(pairingService, exportService),
		WebSocketHandler: handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
		JWTSecret:        cfg.JWTSecretKey,
		AllowedOrigins:   cfg.CORSAllowedOrigins,
	})
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
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	return nil
}

func runCreateOfficial(authService services.AuthService, args []string) error {
	fs := flag.NewFlagSet("create-official", flag.ContinueOnError)
	email := fs.String("email", "", "official email")
	name := fs.String("name", "", "full name")
	role := fs.String("role", string(models.RoleTableOfficial), "admin, supervisor or table_official")
	password := fs.String("password", "", "initial password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	official, err := authService.CreateOfficial(ctx, services.CreateOfficialInput{
		Email:    *email,
		FullName: *name,
		Password: *password,
		Role:     models.Role(*role),
	})
	if err != nil {
		return err
	}
	slog.Info("official created", slog.Int("id", official.ID), slog.String("email", official.Email), slog.String("role", string(official.Role)))
	return nil
}
