package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TokenSchemeJWT    = "jwt"
	TokenSchemePaseto = "paseto"

	StorageBackendFilesystem = "fs"
	StorageBackendS3         = "s3"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	// TokenScheme selects the token implementation: "jwt" (HS256) or "paseto" (v4.local).
	TokenScheme string
	// TokenSecret signs tokens. Must be exactly 32 bytes for the paseto scheme.
	TokenSecret   []byte
	TokenDuration time.Duration
}

type StorageConfig struct {
	// Backend selects the artifact store: "fs" or "s3".
	Backend string
	// Dir is the local directory for the fs backend.
	Dir string
	// PublicPath is the URL path prefix under which artifacts are served.
	PublicPath string

	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	// S3BaseURL is the public base URL artifacts are reachable at (bucket endpoint or CDN).
	S3BaseURL string
}

// Load reads configuration from environment variables.
// A .env file is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "listings"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenScheme:   getEnv("AUTH_TOKEN_SCHEME", TokenSchemeJWT),
			TokenSecret:   []byte(getEnv("AUTH_TOKEN_SECRET", "")),
			TokenDuration: getDurationEnv("AUTH_TOKEN_DURATION", 24*time.Hour),
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", StorageBackendFilesystem),
			Dir:         getEnv("STORAGE_DIR", "./images"),
			PublicPath:  getEnv("STORAGE_PUBLIC_PATH", "/images"),
			S3Bucket:    getEnv("S3_BUCKET", ""),
			S3Region:    getEnv("S3_REGION", ""),
			S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("S3_SECRET_KEY", ""),
			S3BaseURL:   getEnv("S3_BASE_URL", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Auth.TokenSecret) == 0 {
		return fmt.Errorf("AUTH_TOKEN_SECRET must be set")
	}

	switch c.Auth.TokenScheme {
	case TokenSchemeJWT:
	case TokenSchemePaseto:
		// v4.local requires a 32-byte symmetric key
		if len(c.Auth.TokenSecret) != 32 {
			return fmt.Errorf("AUTH_TOKEN_SECRET must be exactly 32 bytes for the paseto scheme, got %d", len(c.Auth.TokenSecret))
		}
	default:
		return fmt.Errorf("unknown AUTH_TOKEN_SCHEME %q", c.Auth.TokenScheme)
	}

	switch c.Storage.Backend {
	case StorageBackendFilesystem:
	case StorageBackendS3:
		if c.Storage.S3Bucket == "" || c.Storage.S3Region == "" || c.Storage.S3BaseURL == "" {
			return fmt.Errorf("S3_BUCKET, S3_REGION and S3_BASE_URL must be set for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}

	if !strings.HasPrefix(c.Storage.PublicPath, "/") {
		return fmt.Errorf("STORAGE_PUBLIC_PATH must start with /, got %q", c.Storage.PublicPath)
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address returns the Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
