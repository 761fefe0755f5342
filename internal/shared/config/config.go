package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"tourly/internal/shared/constants"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	PublicBaseURL  string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	Timezone       string
	CORSOrigins    []string

	// Storage driver: "postgres" or "memory"
	StorageDriver string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig

	RateLimit RateLimitConfig
	Kafka     KafkaConfig
	Payment   PaymentConfig
	Booking   BookingConfig
	Pricing   PricingConfig
	Jobs      JobsConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	AvailabilityCacheTTL time.Duration
	WebhookClaimTTL      time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string
	JWTExpiresIn time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled                 bool          `json:"enabled"`
	WindowDuration          time.Duration `json:"window_duration"`
	DefaultRequests         int           `json:"default_requests"`
	PublicRequests          int           `json:"public_requests"`
	BookingRequests         int           `json:"booking_requests"`
	BookingCriticalRequests int           `json:"booking_critical_requests"`
	AdminRequests           int           `json:"admin_requests"`
	WebhookRequests         int           `json:"webhook_requests"`
	HealthRequests          int           `json:"health_requests"`
	WhitelistedIPs          []string      `json:"whitelisted_ips"`
}

// KafkaConfig holds notification producer configuration
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
}

// PaymentConfig holds payment gateway configuration
type PaymentConfig struct {
	// Gateway: "stripe" or "mock"
	Gateway             string
	Currency            string
	ReturnURL           string
	CancelURL           string
	StripeSecretKey     string
	StripeWebhookSecret string
	WebhookSecret       string
}

// BookingConfig holds booking lifecycle tunables
type BookingConfig struct {
	HoldTTL               time.Duration
	CodePrefix            string
	CodeMaxAttempts       int
	CapacityRetryAttempts int
	TxRetryAttempts       int
}

// PricingConfig holds the early-bird rule
type PricingConfig struct {
	MinDaysBeforeTour int
	FirstTierDays     int
	FirstTierPercent  float64
	SecondTierDays    int
	SecondTierPercent float64
}

// JobsConfig holds background sweep configuration
type JobsConfig struct {
	Enabled            bool
	HoldSweepInterval  time.Duration
	CompletionInterval time.Duration
	BatchSize          int
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB
		Timezone:       getEnv("APP_TIMEZONE", "Asia/Ho_Chi_Minh"),
		CORSOrigins:    getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		StorageDriver: getEnv("STORAGE_DRIVER", "postgres"),

		// Database configuration
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "tourly_db"),
			User:     getEnv("DB_USER", "tourly_user"),
			Password: getEnv("DB_PASSWORD", "tourly_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		// Redis configuration
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),

			AvailabilityCacheTTL: getDurationEnv("REDIS_AVAILABILITY_CACHE_TTL", 30*time.Second),
			WebhookClaimTTL:      getDurationEnv("REDIS_WEBHOOK_CLAIM_TTL", constants.TTL_WEBHOOK_CLAIM),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
			JWTExpiresIn: getDurationEnvSeconds("JWT_EXPIRES_IN", 15*time.Minute),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:                 getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:          getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:         getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:          getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			BookingRequests:         getIntEnv("RATE_LIMIT_BOOKING_REQUESTS", 30),
			BookingCriticalRequests: getIntEnv("RATE_LIMIT_BOOKING_CRITICAL_REQUESTS", 10),
			AdminRequests:           getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			WebhookRequests:         getIntEnv("RATE_LIMIT_WEBHOOK_REQUESTS", 600),
			HealthRequests:          getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 120),
			WhitelistedIPs:          getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		Kafka: KafkaConfig{
			Enabled:  getBoolEnv("KAFKA_ENABLED", false),
			Brokers:  getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:    getEnv("KAFKA_NOTIFICATION_TOPIC", "tour-notifications"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "tourly-booking"),
		},

		Payment: PaymentConfig{
			Gateway:             getEnv("PAYMENT_GATEWAY", "mock"),
			Currency:            getEnv("PAYMENT_CURRENCY", "vnd"),
			ReturnURL:           getEnv("PAYMENT_RETURN_URL", "http://localhost:3000/payment/success"),
			CancelURL:           getEnv("PAYMENT_CANCEL_URL", "http://localhost:3000/payment/cancel"),
			StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			WebhookSecret:       getEnv("PAYMENT_WEBHOOK_SECRET", "dev-webhook-secret"),
		},

		Booking: BookingConfig{
			HoldTTL:               getDurationEnv("BOOKING_HOLD_TTL", 30*time.Minute),
			CodePrefix:            getEnv("BOOKING_CODE_PREFIX", "TB"),
			CodeMaxAttempts:       getIntEnv("BOOKING_CODE_MAX_ATTEMPTS", 5),
			CapacityRetryAttempts: getIntEnv("BOOKING_CAPACITY_RETRY_ATTEMPTS", 3),
			TxRetryAttempts:       getIntEnv("BOOKING_TX_RETRY_ATTEMPTS", 3),
		},

		Pricing: PricingConfig{
			MinDaysBeforeTour: getIntEnv("PRICING_MIN_DAYS_BEFORE_TOUR", 30),
			FirstTierDays:     getIntEnv("PRICING_FIRST_TIER_DAYS", 7),
			FirstTierPercent:  getFloatEnv("PRICING_FIRST_TIER_PERCENT", 25),
			SecondTierDays:    getIntEnv("PRICING_SECOND_TIER_DAYS", 14),
			SecondTierPercent: getFloatEnv("PRICING_SECOND_TIER_PERCENT", 15),
		},

		Jobs: JobsConfig{
			Enabled:            getBoolEnv("JOBS_ENABLED", true),
			HoldSweepInterval:  getDurationEnv("JOBS_HOLD_SWEEP_INTERVAL", time.Minute),
			CompletionInterval: getDurationEnv("JOBS_COMPLETION_INTERVAL", time.Hour),
			BatchSize:          getIntEnv("JOBS_BATCH_SIZE", 100),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getFloatEnv gets a float64 environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getDurationEnvSeconds gets an environment variable as seconds (int) and converts to time.Duration
func getDurationEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}

// UsesMemoryStorage reports whether repositories are backed by the in-process store.
func (c *Config) UsesMemoryStorage() bool {
	return strings.EqualFold(c.StorageDriver, "memory")
}

// Location resolves the configured time zone used for calendar-day arithmetic.
// Unknown zones fall back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
