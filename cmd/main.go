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

	"github.com/bgmi-arena/arena-backend/config"
	"github.com/bgmi-arena/arena-backend/db"
	"github.com/bgmi-arena/arena-backend/handlers"
	"github.com/bgmi-arena/arena-backend/live"
	"github.com/bgmi-arena/arena-backend/repositories"
	api "github.com/bgmi-arena/arena-backend/routes"
	"github.com/bgmi-arena/arena-backend/services"
	"github.com/bgmi-arena/arena-backend/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

const (
	schedulerInterval = 30 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

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

	if err := db.MigrateUp(dbConn); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// Proof uploads are optional: without R2 credentials the endpoint is off.
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 not configured, deposit proof uploads disabled")
	}

	hub := live.NewHub(logger)
	go hub.Run()

	txRunner := repositories.NewTxRunner(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	transactionRepo := repositories.NewPostgresTransactionRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	entrantRepo := repositories.NewPostgresEntrantRepository(dbConn)

	ledgerService := services.NewLedgerService(playerRepo, transactionRepo, txRunner)
	authService := services.NewAuthService(playerRepo, cfg.JWTSecretKey)
	playerService := services.NewPlayerService(playerRepo, entrantRepo)
	tournamentService := services.NewTournamentService(tournamentRepo, hub, logger)
	admissionService := services.NewAdmissionService(txRunner, tournamentRepo, entrantRepo, ledgerService, hub, logger)
	statusService := services.NewStatusService(tournamentRepo, entrantRepo)
	walletService := services.NewWalletService(ledgerService, txRunner)
	adminService := services.NewAdminService(txRunner, tournamentRepo, entrantRepo, playerRepo, ledgerService, hub, logger)
	logger.Info("services initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Player:     handlers.NewPlayerHandler(playerService),
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Admission:  handlers.NewAdmissionHandler(admissionService, statusService),
		Wallet:     handlers.NewWalletHandler(walletService, uploader),
		Admin:      handlers.NewAdminHandler(adminService, tournamentService),
		WebSocket:  handlers.NewWebSocketHandler(hub, cfg.CORSOrigins),
	}, authService, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Closes tournaments whose start time has passed so late joins get 410.
	group.Go(func() error {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		if err := tournamentService.CloseStarted(groupCtx); err != nil {
			logger.Error("scheduler: initial run failed", slog.Any("error", err))
		}
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if err := tournamentService.CloseStarted(groupCtx); err != nil {
					logger.Error("scheduler: periodic run failed", slog.Any("error", err))
				}
			}
		}
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			return server.Close()
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
