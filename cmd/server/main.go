package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"barangay-services/internal/adapters/events"
	"barangay-services/internal/adapters/http/middleware"
	"barangay-services/internal/adapters/http/routes"
	"barangay-services/internal/adapters/mail"
	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/adapters/persistence/repositories"
	"barangay-services/internal/adapters/storage"
	"barangay-services/internal/config"
	"barangay-services/internal/core/services"
	"barangay-services/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"

	_ "barangay-services/docs" // Swagger docs
)

// @title Barangay Services API
// @version 1.0
// @description Resident accounts, certificate requests and notifications for barangay offices.

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed regions and the first admin
	if err := config.SeedRegions(db); err != nil {
		log.Printf("⚠️ Warning: Failed to seed regions: %v", err)
	}
	if err := config.SeedAdmin(db, cfg); err != nil {
		log.Printf("⚠️ Warning: Failed to seed admin: %v", err)
	}

	// Attachment storage
	store, err := storage.NewLocalStorage(cfg.Upload.Dir, cfg.Upload.MaxSizeMB)
	if err != nil {
		log.Fatalf("❌ Failed to prepare upload storage: %v", err)
	}

	// Optional Redis (rate limiter storage)
	rdb := config.ConnectRedis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	// Optional RabbitMQ (certificate events)
	var publisher events.Publisher
	if cfg.AMQP.URL != "" {
		publisher = events.NewAMQPPublisher(cfg.AMQP.URL)
		log.Println("✅ Certificate events will be published to RabbitMQ")
	}

	if !cfg.MailEnabled() {
		log.Println("⚠️ SMTP_HOST not set, outgoing mail will only be logged")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Barangay Services API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
		BodyLimit:    (cfg.Upload.MaxSizeMB*cfg.Upload.MaxPerForm + 1) * 1024 * 1024,
	})

	// Setup middlewares
	middleware.Setup(app, cfg, rdb)

	// Setup routes
	tokenService := routes.Setup(app, routes.Deps{
		DB:        db,
		Config:    cfg,
		Metrics:   metrics.New(),
		Mailer:    mail.NewSMTPMailer(cfg.Mail),
		Storage:   store,
		Publisher: publisher,
		Redis:     rdb,
	})

	// Hourly sweep of unverified accounts and expired refresh tokens
	cronService := services.NewCronService(tokenService, repositories.NewRefreshTokenRepository(db))
	if err := cronService.Start(); err != nil {
		log.Fatalf("❌ Failed to start cron: %v", err)
	}
	defer cronService.Stop()

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
