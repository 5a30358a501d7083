package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/kernelpilot-backend/internal/data/repos"
	"github.com/yungbote/kernelpilot-backend/internal/dataset"
	"github.com/yungbote/kernelpilot-backend/internal/db"
	"github.com/yungbote/kernelpilot-backend/internal/handlers"
	"github.com/yungbote/kernelpilot-backend/internal/notebook"
	"github.com/yungbote/kernelpilot-backend/internal/platform/config"
	"github.com/yungbote/kernelpilot-backend/internal/platform/envutil"
	"github.com/yungbote/kernelpilot-backend/internal/platform/kagglecli"
	"github.com/yungbote/kernelpilot-backend/internal/platform/keylock"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
	"github.com/yungbote/kernelpilot-backend/internal/platform/papermill"
	"github.com/yungbote/kernelpilot-backend/internal/server"
)

func main() {
	// Config
	cfg, err := config.Load(envutil.String("CONFIG_FILE", "kernelpilot.yaml"))
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logger
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// SQLite ledger
	log.Info("Setting up run ledger...")
	sqliteService, err := db.NewSQLiteService(log, cfg.SQLitePath)
	if err != nil {
		log.Error("SQLite init failed", "error", err)
		os.Exit(1)
	}
	if err := sqliteService.AutoMigrateAll(); err != nil {
		log.Error("SQLite auto migration failed", "error", err)
		os.Exit(1)
	}

	// Repos
	runRepo := repos.NewRunRecordRepo(sqliteService.DB(), log)

	// External tool boundaries
	kaggleClient := kagglecli.New(log, cfg.KaggleBinary, cfg.CLITimeout)
	engine := papermill.New(log, cfg.PapermillBin, cfg.ExecuteTimeout)
	if err := kaggleClient.AssertReady(context.Background()); err != nil {
		log.Warn("Kaggle CLI not ready", "error", err)
	}
	if err := engine.AssertReady(context.Background()); err != nil {
		log.Warn("Execution engine not ready", "error", err)
	}

	// Services
	log.Info("Setting up services from main...")
	locks := keylock.New()
	store := notebook.NewStore(log, cfg.NotebookRoot)
	notebookService := notebook.NewService(log, store, engine, locks, runRepo)
	publisherService := notebook.NewPublisher(log, store, kaggleClient, locks, runRepo,
		cfg.KaggleUsername, cfg.PollInterval, cfg.PollMaxWait)
	datasetService := dataset.NewService(log, kaggleClient, cfg.DatasetRoot)

	// Handlers
	notebookHandler := handlers.NewNotebookHandler(log, notebookService, publisherService, runRepo)
	datasetHandler := handlers.NewDatasetHandler(log, datasetService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		Log:             log,
		NotebookHandler: notebookHandler,
		DatasetHandler:  datasetHandler,
	})

	log.Info("Starting server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
