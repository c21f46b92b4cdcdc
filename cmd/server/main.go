package main

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/relayhq/relay-server/internal/config"
	"github.com/relayhq/relay-server/internal/database"
	"github.com/relayhq/relay-server/internal/handlers"
	"github.com/relayhq/relay-server/internal/notify"
	"github.com/relayhq/relay-server/internal/repositories"
	"github.com/relayhq/relay-server/internal/services"
	"github.com/relayhq/relay-server/pkg/clock"
	"github.com/relayhq/relay-server/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize logger
	logger.Init()
	defer logger.Sync()

	logger.Info("Starting Relay server...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}

	// Validate production security settings
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("Production security validation failed", err)
		}
		logger.Info("Production security validation passed")
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}

	// Run GORM auto-migration
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Optional Telegram notifier
	var notifier services.Notifier
	if tn, err := notify.New(cfg); err != nil {
		logger.Warn("Failed to initialize notifier, continuing without it", "error", err)
	} else if tn != nil {
		notifier = tn
	}

	// Wire the lifecycle engine
	clk := clock.System()
	requestRepo := repositories.NewRequestRepository(db)
	outcomeRepo := repositories.NewOutcomeRepository(db)
	userRepo := repositories.NewUserRepository(db)
	requestService := services.NewRequestService(requestRepo, outcomeRepo, userRepo, clk, notifier)

	// HTTP API
	app := iris.New()
	app.Validator = validator.New()
	handlers.RegisterRoutes(app, cfg, requestService, userRepo, clk)

	iris.RegisterOnInterrupt(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("Shutting down gracefully...")
		app.Shutdown(ctx)
	})

	logger.Info("Server listening", "port", cfg.AppPort, "env", cfg.AppEnv)
	if err := app.Listen(":"+cfg.AppPort, iris.WithoutInterruptHandler); err != nil {
		logger.Fatal("Server stopped", err)
	}
}
