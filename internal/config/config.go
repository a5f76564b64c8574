// Package config provides configuration for the flea market API. Values are
// loaded from environment variables with an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Upload      UploadConfig
	Storage     StorageConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Logging     LoggingConfig
	FrontendDir string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port string
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Database dialects.
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
)

// DatabaseConfig holds database connection configuration. DSN, when set,
// overrides the individual fields.
type DatabaseConfig struct {
	Dialect  string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	DSN      string
}

// MySQLDSN builds a go-sql-driver DSN from the individual fields.
func (c DatabaseConfig) MySQLDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// PostgresDSN builds a keyword/value DSN from the individual fields.
func (c DatabaseConfig) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// UploadConfig holds image upload limits and the local upload directory.
type UploadConfig struct {
	Dir         string
	MaxFileSize int64
}

// Storage backends.
const (
	BackendDisk = "disk"
	BackendS3   = "s3"
)

// StorageConfig selects the image storage backend. The S3 fields follow the
// R2-style account endpoint convention; PublicURL is a format string with a
// %s placeholder for the object key.
type StorageConfig struct {
	Backend         string
	Thumbnails      bool
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	PublicURL       string
}

// AuthConfig holds identity middleware configuration.
type AuthConfig struct {
	ExpiryDays int
}

// RateLimitConfig holds the per-IP request budget for mutation routes.
type RateLimitConfig struct {
	PerMinute int
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string
}

// Load reads configuration from the environment, loading a .env file first
// when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("HOST", ""),
			Port: getEnv("PORT", "5000"),
		},
		Database: DatabaseConfig{
			Dialect:  getEnv("DB_DIALECT", DialectMySQL),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			Name:     getEnv("DB_NAME", "flea_market"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			DSN:      getEnv("DB_DSN", ""),
		},
		Upload: UploadConfig{
			Dir:         getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10<<20),
		},
		Storage: StorageConfig{
			Backend:         getEnv("STORAGE_BACKEND", BackendDisk),
			Thumbnails:      getEnvAsBool("THUMBNAILS_ENABLED", false),
			AccountID:       getEnv("ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("ACCESS_KEY_ID", ""),
			AccessKeySecret: getEnv("ACCESS_KEY_SECRET", ""),
			Bucket:          getEnv("BUCKET_NAME", ""),
			PublicURL:       getEnv("PUBLIC_URL", ""),
		},
		Auth: AuthConfig{
			ExpiryDays: getEnvAsInt("IP_EXPIRY_DAYS", 30),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		FrontendDir: getEnv("FRONTEND_DIR", ""),
	}

	if cfg.Database.Dialect != DialectMySQL && cfg.Database.Dialect != DialectPostgres {
		return nil, fmt.Errorf("unsupported database dialect %q", cfg.Database.Dialect)
	}
	if cfg.Storage.Backend != BackendDisk && cfg.Storage.Backend != BackendS3 {
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}

	return cfg, nil
}

// getEnv returns an environment variable value or a default.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvAsInt returns an environment variable as an int or a default.
func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getEnvAsInt64 returns an environment variable as an int64 or a default.
func getEnvAsInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// getEnvAsBool returns an environment variable as a bool or a default.
func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
