package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret            string
	JWTExpireHours       string
	JWTRefreshExpireDays string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string

	// Email Configuration
	EmailFrom     string
	EmailFromName string
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SMTPUseTLS    bool

	// Login Rate Limiting
	LoginRateLimitMaxAttempts   string
	LoginRateLimitWindowSeconds string
	LoginRateLimitBlockMinutes  string

	// Register Rate Limiting
	RegisterRateLimitMaxAttempts string
	RegisterRateLimitWindowHours string
	RegisterRateLimitBlockHours  string

	// Frontend
	FrontendURL    string
	AllowedOrigins string

	// Server
	ServerPort string

	// Invitations
	InvitationExpireDays string
	DefaultMaxUsers      string

	// Email dispatch
	EmailQueueSize       string
	EmailSendWaitSeconds string

	// MinIO Configuration
	MinIOServerURL       string
	MinIORootUser        string
	MinIORootPassword    string
	MinIOUseSSL          bool
	MinIOBucketName      string
	DetectionMaxFileSize string
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("✅ Environment loaded from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg = &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "meallens"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret:            getEnv("JWT_SECRET", "your-secret-key-change-this"),
		JWTExpireHours:       getEnv("JWT_EXPIRE_HOURS", "3"),
		JWTRefreshExpireDays: getEnv("JWT_REFRESH_EXPIRE_DAYS", "7"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		// Email Configuration
		EmailFrom:     getEnv("EMAIL_FROM", "noreply@meallensai.com"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "MealLens AI"),
		SMTPHost:      getEnv("SMTP_HOST", "smtp.example.com"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:    getEnvAsBool("SMTP_USE_TLS", false),

		// Login Rate Limiting
		LoginRateLimitMaxAttempts:   getEnv("LOGIN_RATE_LIMIT_MAX_ATTEMPTS", "5"),
		LoginRateLimitWindowSeconds: getEnv("LOGIN_RATE_LIMIT_WINDOW_SECONDS", "300"),
		LoginRateLimitBlockMinutes:  getEnv("LOGIN_RATE_LIMIT_BLOCK_MINUTES", "30"),

		// Register Rate Limiting
		RegisterRateLimitMaxAttempts: getEnv("REGISTER_RATE_LIMIT_MAX_ATTEMPTS", "3"),
		RegisterRateLimitWindowHours: getEnv("REGISTER_RATE_LIMIT_WINDOW_HOURS", "24"),
		RegisterRateLimitBlockHours:  getEnv("REGISTER_RATE_LIMIT_BLOCK_HOURS", "48"),

		// Frontend
		FrontendURL:    strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173"),

		// Server
		ServerPort: getEnv("SERVER_PORT", "8080"),

		// Invitations
		InvitationExpireDays: getEnv("INVITATION_EXPIRE_DAYS", "30"),
		DefaultMaxUsers:      getEnv("DEFAULT_MAX_USERS", "100"),

		// Email dispatch
		EmailQueueSize:       getEnv("EMAIL_QUEUE_SIZE", "64"),
		EmailSendWaitSeconds: getEnv("EMAIL_SEND_WAIT_SECONDS", "10"),

		// MinIO Configuration
		MinIOServerURL:       getEnv("MINIO_SERVER_URL", "http://localhost:9000"),
		MinIORootUser:        getEnv("MINIO_ROOT_USER", "minioadmin"),
		MinIORootPassword:    getEnv("MINIO_ROOT_PASSWORD", "minioadmin"),
		MinIOUseSSL:          getEnvAsBool("MINIO_USE_SSL", false),
		MinIOBucketName:      getEnv("MINIO_BUCKET_NAME", "meallens-detections"),
		DetectionMaxFileSize: getEnv("DETECTION_MAX_FILE_SIZE", "10MB"),
	}

	log.Println("✅ Configuration loaded successfully")
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// GetAllowedOrigins returns the CORS origin allow-list
func (c *Config) GetAllowedOrigins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// GetInvitationExpireDuration returns how long a new invitation stays valid
func (c *Config) GetInvitationExpireDuration() time.Duration {
	days, err := strconv.Atoi(c.InvitationExpireDays)
	if err != nil || days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// GetDefaultMaxUsers returns the membership cap applied to new enterprises
func (c *Config) GetDefaultMaxUsers() int {
	if value, err := strconv.Atoi(c.DefaultMaxUsers); err == nil && value > 0 {
		return value
	}
	return 100
}

// GetEmailQueueSize returns the background mailer queue capacity
func (c *Config) GetEmailQueueSize() int {
	if value, err := strconv.Atoi(c.EmailQueueSize); err == nil && value > 0 {
		return value
	}
	return 64
}

// GetDetectionMaxFileSize returns the upload size cap in bytes. Accepts
// "10MB", "512KB" or a plain byte count.
func (c *Config) GetDetectionMaxFileSize() int64 {
	value := strings.ToUpper(strings.TrimSpace(c.DetectionMaxFileSize))
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(value, "MB"):
		multiplier = 1024 * 1024
		value = strings.TrimSuffix(value, "MB")
	case strings.HasSuffix(value, "KB"):
		multiplier = 1024
		value = strings.TrimSuffix(value, "KB")
	}
	if size, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil && size > 0 {
		return size * multiplier
	}
	return 10 * 1024 * 1024
}

// GetEmailSendWait returns how long a handler waits for a queued email result
func (c *Config) GetEmailSendWait() time.Duration {
	if value, err := strconv.Atoi(c.EmailSendWaitSeconds); err == nil && value > 0 {
		return time.Duration(value) * time.Second
	}
	return 10 * time.Second
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
