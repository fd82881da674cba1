package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/wagerdeck/questline/questline"
	"github.com/wagerdeck/questline/questline/database"
	"github.com/wagerdeck/questline/questline/database/repositories"
	"github.com/wagerdeck/questline/questline/graphql"
	"github.com/wagerdeck/questline/questline/handlers"
	"github.com/wagerdeck/questline/questline/logger"
	"github.com/wagerdeck/questline/questline/pricing"
	"github.com/wagerdeck/questline/questline/quest"
	"github.com/wagerdeck/questline/questline/services"
	"github.com/wagerdeck/questline/questline/validators"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	memoryLedger := flag.Bool("memory-ledger", false, "Keep the points ledger in memory instead of Postgres")
	flag.Parse()

	cfg, err := questline.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	customHandler := logger.NewHandler(cfg.Log.Level)
	slog.SetDefault(slog.New(customHandler))

	logger.LogSystem("Starting Questline",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var (
		repo repositories.LedgerRepository
		db   *database.DB
	)
	if *memoryLedger {
		slog.Warn("Using in-memory points ledger, all progress is lost on restart")
		repo = repositories.NewMemoryLedgerRepository()
	} else {
		dbStartTime := time.Now()
		db, err = database.New(ctx, cfg.DB)
		if err != nil {
			slog.Error("Database connection failed",
				slog.String("error", err.Error()),
				slog.Duration("attempted_for", time.Since(dbStartTime)))
			os.Exit(-1)
		}
		defer db.Close()

		if err := db.InitializeSchema(ctx); err != nil {
			slog.Error("Schema initialization failed", slog.Any("error", err))
			os.Exit(-1)
		}
		slog.Info("Database connected successfully",
			slog.String("database", cfg.DB.Database),
			slog.Duration("took", time.Since(dbStartTime)))

		repo = repositories.NewLedgerRepository(db.BunDB())
	}

	ledger := services.NewLedgerService(repo)

	prices := pricing.NewClient(cfg.Pricing.Endpoint, cfg.Pricing.APIKey, cfg.Pricing.CacheTTL)
	registry := quest.NewRegistry()
	validators.RegisterAll(registry, prices)

	manager := services.NewProjectManager(func(endpoint string) services.QueryExecutor {
		return graphql.NewClient(endpoint)
	}, registry, ledger)

	if cfg.Spaces.Key != "" {
		spaces, err := services.NewSpacesService(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.QuestRoot,
		)
		if err != nil {
			slog.Error("Failed to initialize Spaces", slog.Any("error", err))
			os.Exit(-1)
		}
		if err := manager.LoadFromSpaces(ctx, spaces); err != nil {
			logger.LogError("Failed to load quest projects from Spaces", err)
			os.Exit(-1)
		}
	} else {
		if err := manager.LoadDirectory(cfg.Quests.ProjectsDir); err != nil {
			logger.LogError("Failed to load quest projects", err)
			os.Exit(-1)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "Questline API",
		ServerHeader: "Questline",
	})
	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	api := &handlers.API{
		Manager: manager,
		Ledger:  ledger,
		Version: version,
	}
	handlers.SetupRoutes(app, api)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.LogSystem("Starting server", slog.String("address", address))

	go func() {
		if err := app.Listen(address); err != nil {
			slog.Error("Failed to start server", slog.String("error", err.Error()))
		}
	}()

	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-s

	logger.LogSystem("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.LogError("Server shutdown error", err)
	}
	logger.LogSystem("Shutdown complete")
}
