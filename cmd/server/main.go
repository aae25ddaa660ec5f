package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/spendlyhq/invoice-ingest/internal/batch"
	"github.com/spendlyhq/invoice-ingest/internal/config"
	"github.com/spendlyhq/invoice-ingest/internal/dedup"
	"github.com/spendlyhq/invoice-ingest/internal/extract"
	httpserver "github.com/spendlyhq/invoice-ingest/internal/interfaces/http"
	"github.com/spendlyhq/invoice-ingest/internal/interfaces/ws"
	"github.com/spendlyhq/invoice-ingest/internal/notify"
	"github.com/spendlyhq/invoice-ingest/internal/pdftext"
	"github.com/spendlyhq/invoice-ingest/internal/repository"
	"github.com/spendlyhq/invoice-ingest/internal/storage"
	"github.com/spendlyhq/invoice-ingest/pkg/database"
	"github.com/spendlyhq/invoice-ingest/pkg/utils"
)

func main() {
	// Local development drops secrets in a .env file
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice ingestion service",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := database.NewMigrator(db, logger).RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repo := repository.NewInvoiceRepository(db, logger)

	files, err := storage.NewLocalFileStore(cfg.Storage.TempDir, cfg.Storage.UploadDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	var gen extract.GenerativeClient
	if cfg.OpenAI.APIKey != "" {
		gen = extract.NewOpenAIClient(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.Temperature,
			logger,
		)
	} else {
		logger.Warn("OPENAI_API_KEY not set, field extraction runs on pattern matching only")
	}

	hub := notify.NewHub(logger)

	coordinator := batch.NewCoordinator(
		batch.Config{
			WindowSize: cfg.Batch.WindowSize,
			PausePoll:  cfg.Batch.PausePoll,
		},
		repo,
		files,
		pdftext.NewFitzExtractor(logger),
		extract.NewExtractor(gen, logger),
		dedup.NewDetector(repo, logger),
		hub,
		logger,
	)

	server := httpserver.NewServer(
		httpserver.Config{
			Host:          cfg.Server.Host,
			Port:          cfg.Server.Port,
			ReadTimeout:   cfg.Server.ReadTimeout,
			WriteTimeout:  cfg.Server.WriteTimeout,
			MaxUploadSize: cfg.Server.MaxUploadSize,
		},
		coordinator,
		repo,
		files,
		ws.NewHandler(hub, logger),
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited")
}
