package routes

import (
	"context"
	"log"
	"time"

	"barangay-services/internal/adapters/events"
	"barangay-services/internal/adapters/http/handlers"
	"barangay-services/internal/adapters/http/middleware"
	"barangay-services/internal/adapters/mail"
	"barangay-services/internal/adapters/persistence/repositories"
	"barangay-services/internal/adapters/storage"
	"barangay-services/internal/config"
	"barangay-services/internal/core/services"
	"barangay-services/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the external resources the routes are built on. Mailer, Publisher
// and Redis are optional.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Metrics   *metrics.Metrics
	Mailer    mail.Mailer
	Storage   *storage.LocalStorage
	Publisher events.Publisher
	Redis     *redis.Client
}

// Setup configures all routes for the application and returns the token
// service so the caller can schedule its sweep
func Setup(app *fiber.App, deps Deps) *services.TokenService {
	db, cfg := deps.DB, deps.Config

	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Mailer == nil {
		deps.Mailer = mail.NewSMTPMailer(cfg.Mail)
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	regionRepo := repositories.NewRegionRepository(db)
	certRepo := repositories.NewCertificateRepository(db)
	notifRepo := repositories.NewNotificationRepository(db)
	inboxRepo := repositories.NewInboxRepository(db)

	// Initialize services
	tokenService := services.NewTokenService(userRepo, deps.Metrics)
	authService := services.NewAuthService(db, userRepo, refreshTokenRepo, regionRepo, tokenService, deps.Mailer, deps.Metrics, cfg)
	userService := services.NewUserService(userRepo, refreshTokenRepo, regionRepo)
	notifService := services.NewNotificationService(notifRepo, deps.Metrics)
	inboxService := services.NewInboxService(inboxRepo)

	var files services.FileRemover
	if deps.Storage != nil {
		files = deps.Storage
	}
	certService := services.NewCertificateService(db, certRepo, userRepo, regionRepo, notifRepo, inboxRepo, deps.Publisher, files, deps.Metrics)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(sqlPing(db), redisPing(deps.Redis))
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	regionHandler := handlers.NewRegionHandler(regionRepo)
	certHandler := handlers.NewCertificateHandler(certService, deps.Storage, cfg.Upload.MaxPerForm)
	notifHandler := handlers.NewNotificationHandler(notifService, inboxService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", deps.Metrics.Handler())

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1", deps.Metrics.Middleware())
	apiV1.Get("/", healthHandler.APIInfo)

	auth := middleware.AuthMiddleware(cfg)

	// Auth routes (public)
	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/register", middleware.AuthRateLimiter(deps.Redis), authHandler.Register)
	authRoutes.Get("/verify-email/:token", authHandler.VerifyEmail)
	authRoutes.Post("/resend-verification", middleware.StrictRateLimiter(deps.Redis), authHandler.ResendVerification)
	authRoutes.Post("/forgot-password", middleware.StrictRateLimiter(deps.Redis), authHandler.ForgotPassword)
	authRoutes.Post("/reset-password/:token", middleware.StrictRateLimiter(deps.Redis), authHandler.ResetPassword)
	authRoutes.Post("/login", middleware.AuthRateLimiter(deps.Redis), authHandler.Login)
	authRoutes.Post("/refresh", authHandler.RefreshToken)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Post("/logout-all", auth, authHandler.LogoutAll)
	authRoutes.Get("/me", auth, middleware.NoCacheHeaders(), authHandler.Me)

	// Region directory (public, cacheable)
	regionRoutes := apiV1.Group("/regions", middleware.PublicCache(time.Hour))
	regionRoutes.Get("/municipalities", regionHandler.ListMunicipalities)
	regionRoutes.Get("/barangays", regionHandler.ListBarangays)

	// Profile routes (authenticated)
	profileRoutes := apiV1.Group("/profile", auth, middleware.NoCacheHeaders())
	profileRoutes.Get("/", userHandler.GetProfile)
	profileRoutes.Put("/", userHandler.UpdateProfile)
	profileRoutes.Put("/password", userHandler.ChangePassword)

	// User management routes (admin only)
	userRoutes := apiV1.Group("/users", auth, middleware.AdminOnly())
	userRoutes.Get("/", userHandler.ListUsers)
	userRoutes.Get("/:id", userHandler.GetUser)
	userRoutes.Put("/:id", userHandler.UpdateUser)

	// Certificate request routes
	certRoutes := apiV1.Group("/certificate_requests", auth, middleware.NoCacheHeaders())
	certRoutes.Post("/", middleware.ResidentOnly(), certHandler.Submit)
	certRoutes.Get("/", middleware.ModeratorOrAdmin(), certHandler.List)
	certRoutes.Get("/mine", certHandler.ListMine)
	certRoutes.Get("/moderator/:userId", middleware.ModeratorOrAdmin(), certHandler.ListForModerator)
	certRoutes.Get("/:id", certHandler.GetByID)
	certRoutes.Put("/:id/status", middleware.ModeratorOrAdmin(), certHandler.UpdateStatus)
	certRoutes.Delete("/:id", middleware.ModeratorOrAdmin(), certHandler.Delete)

	// Notification routes (authenticated, scoped to the caller)
	notifRoutes := apiV1.Group("/notifications", auth, middleware.NoCacheHeaders())
	notifRoutes.Get("/", notifHandler.List)
	notifRoutes.Get("/unread-count", notifHandler.UnreadCount)
	notifRoutes.Put("/read-all", notifHandler.MarkAllRead)
	notifRoutes.Put("/read-by-type", notifHandler.MarkReadByType)
	notifRoutes.Put("/:id/read", notifHandler.MarkRead)
	notifRoutes.Delete("/:id", notifHandler.Delete)
	notifRoutes.Delete("/", notifHandler.ClearAll)

	// Resident inbox
	inboxRoutes := apiV1.Group("/inbox", auth, middleware.NoCacheHeaders())
	inboxRoutes.Get("/", notifHandler.ListInbox)
	inboxRoutes.Put("/:id/read", notifHandler.MarkInboxRead)
	inboxRoutes.Delete("/:id", notifHandler.DeleteInbox)

	log.Println("✅ Routes registered")
	return tokenService
}

// sqlPing returns a health check for the database pool
func sqlPing(db *gorm.DB) func() error {
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	}
}

// redisPing returns a health check for Redis, or nil when it is not configured
func redisPing(rdb *redis.Client) func() error {
	if rdb == nil {
		return nil
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return rdb.Ping(ctx).Err()
	}
}
