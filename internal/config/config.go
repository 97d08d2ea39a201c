package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	App      URLConfig
	Mail     MailConfig
	Upload   UploadConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// URLConfig holds the public URLs used to build links in outgoing mail
type URLConfig struct {
	PublicURL   string
	FrontendURL string
}

// MailConfig holds SMTP configuration. An empty Host disables delivery.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// UploadConfig holds attachment storage configuration
type UploadConfig struct {
	Dir        string
	MaxSizeMB  int
	MaxPerForm int
}

// RedisConfig holds the optional Redis connection used by rate limiters
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AMQPConfig holds the optional RabbitMQ connection used for domain events
type AMQPConfig struct {
	URL string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	database := loadDatabaseConfig(appMode)
	if database.Driver != "mysql" && database.Driver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mysql' or 'postgres')", database.Driver)
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: database,
		JWT:      loadJWTConfig(appMode),
		Cookie:   loadCookieConfig(appMode),
		App:      loadAppURLs(appMode),
		Mail:     loadMailConfig(appMode),
		Upload:   loadUploadConfig(),
		Redis:    loadRedisConfig(appMode),
		AMQP:     AMQPConfig{URL: getEnv(modePrefix(appMode)+"AMQP_URL", "")},
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// modePrefix returns the env prefix for the given mode
func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)
	driver := strings.ToLower(getEnv("DB_DRIVER", "mysql"))

	defaultPort := "3306"
	if driver == "postgres" {
		defaultPort = "5432"
	}

	return DatabaseConfig{
		Driver:   driver,
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", defaultPort),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "barangay_services"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "15"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	secure, _ := strconv.ParseBool(getEnv(modePrefix(mode)+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// loadAppURLs loads the public and frontend base URLs
func loadAppURLs(mode string) URLConfig {
	prefix := modePrefix(mode)
	return URLConfig{
		PublicURL:   strings.TrimRight(getEnv(prefix+"PUBLIC_URL", "http://localhost:3000/api/v1/auth"), "/"),
		FrontendURL: strings.TrimRight(getEnv(prefix+"FRONTEND_URL", "http://localhost:5173"), "/"),
	}
}

// loadMailConfig loads SMTP config based on mode
func loadMailConfig(mode string) MailConfig {
	prefix := modePrefix(mode)
	port, _ := strconv.Atoi(getEnv(prefix+"SMTP_PORT", "587"))

	user := getEnv(prefix+"SMTP_USER", "")
	return MailConfig{
		Host:     getEnv(prefix+"SMTP_HOST", ""),
		Port:     port,
		Username: user,
		Password: getEnv(prefix+"SMTP_PASS", ""),
		From:     getEnv(prefix+"MAIL_FROM", user),
	}
}

// loadUploadConfig loads attachment storage config
func loadUploadConfig() UploadConfig {
	maxSize, _ := strconv.Atoi(getEnv("UPLOAD_MAX_SIZE_MB", "10"))
	maxFiles, _ := strconv.Atoi(getEnv("UPLOAD_MAX_FILES", "5"))

	return UploadConfig{
		Dir:        getEnv("UPLOAD_DIR", "uploads"),
		MaxSizeMB:  maxSize,
		MaxPerForm: maxFiles,
	}
}

// loadRedisConfig loads Redis config based on mode. An empty Addr disables Redis.
func loadRedisConfig(mode string) RedisConfig {
	prefix := modePrefix(mode)
	db, _ := strconv.Atoi(getEnv(prefix+"REDIS_DB", "0"))

	return RedisConfig{
		Addr:     getEnv(prefix+"REDIS_ADDR", ""),
		Password: getEnv(prefix+"REDIS_PASSWORD", ""),
		DB:       db,
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// MailEnabled reports whether outgoing mail is configured
func (c *Config) MailEnabled() bool {
	return c.Mail.Host != ""
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return c.App.FrontendURL
	}
	return origins
}
