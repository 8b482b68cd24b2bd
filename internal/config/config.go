package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort       string `mapstructure:"APP_PORT"`
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	// --- metadata store ---
	DBDriver   string `mapstructure:"DB_DRIVER"` // postgres | sqlite
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBScheme   string `mapstructure:"DB_SCHEME"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	// --- object store ---
	StorageDriver string `mapstructure:"STORAGE_DRIVER"` // s3 | memory
	S3Endpoint    string `mapstructure:"S3_ENDPOINT"`
	S3Region      string `mapstructure:"S3_REGION"`
	S3Bucket      string `mapstructure:"S3_BUCKET"`
	S3AccessKey   string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey   string `mapstructure:"S3_SECRET_KEY"`
	S3UseSSL      bool   `mapstructure:"S3_USE_SSL"`
	S3PathStyle   bool   `mapstructure:"S3_PATH_STYLE"`

	// --- redis (upload lock); empty addr means in-process locking ---
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// --- gallery ---
	MaxPhotosPerSession int `mapstructure:"MAX_PHOTOS_PER_SESSION"`
	RetentionDays       int `mapstructure:"RETENTION_DAYS"`
	ThumbMaxWidth       int `mapstructure:"THUMB_MAX_WIDTH"`
	ThumbMaxHeight      int `mapstructure:"THUMB_MAX_HEIGHT"`
	ThumbQuality        int `mapstructure:"THUMB_QUALITY"`
	ThumbMaxPixels      int `mapstructure:"THUMB_MAX_PIXELS"`
	ThumbWorkers        int `mapstructure:"THUMB_WORKERS"`
	MaxUploadMB         int `mapstructure:"MAX_UPLOAD_MB"`
	DefaultPerPage      int `mapstructure:"DEFAULT_PER_PAGE"`
	MaxPerPage          int `mapstructure:"MAX_PER_PAGE"`
	LockTTLSeconds      int `mapstructure:"LOCK_TTL_SECONDS"`
	LockWaitSeconds     int `mapstructure:"LOCK_WAIT_SECONDS"`
}

var defaults = map[string]any{
	"APP_PORT":               ":8080",
	"DB_DRIVER":              "postgres",
	"DB_PORT":                5432,
	"DB_SCHEME":              "gallery",
	"SQLITE_PATH":            "data/gallery.db",
	"STORAGE_DRIVER":         "s3",
	"S3_REGION":              "us-east-1",
	"S3_BUCKET":              "gallery",
	"MAX_PHOTOS_PER_SESSION": 100,
	"RETENTION_DAYS":         7,
	"THUMB_MAX_WIDTH":        800,
	"THUMB_MAX_HEIGHT":       800,
	"THUMB_QUALITY":          85,
	"THUMB_MAX_PIXELS":       50_000_000,
	"THUMB_WORKERS":          4,
	"MAX_UPLOAD_MB":          512,
	"DEFAULT_PER_PAGE":       20,
	"MAX_PER_PAGE":           100,
	"LOCK_TTL_SECONDS":       120,
	"LOCK_WAIT_SECONDS":      30,
}

func mask(s string) string {
	if s != "" {
		return "********"
	}
	return "(empty)"
}

// String implements fmt.Stringer with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  AppPort: %s\n", c.AppPort))
	sb.WriteString(fmt.Sprintf("  PublicBaseURL: %s\n", c.PublicBaseURL))

	sb.WriteString(fmt.Sprintf("  DBDriver: %s\n", c.DBDriver))
	if c.DBDriver == "sqlite" {
		sb.WriteString(fmt.Sprintf("  SQLitePath: %s\n", c.SQLitePath))
	} else {
		sb.WriteString(fmt.Sprintf("  DBHost: %s\n", c.DBHost))
		sb.WriteString(fmt.Sprintf("  DBPort: %d\n", c.DBPort))
		sb.WriteString(fmt.Sprintf("  DBUser: %s\n", c.DBUser))
		sb.WriteString(fmt.Sprintf("  DBName: %s\n", c.DBName))
		sb.WriteString(fmt.Sprintf("  DBScheme: %s\n", c.DBScheme))
		sb.WriteString(fmt.Sprintf("  DBPassword: %s\n", mask(c.DBPassword)))
	}

	sb.WriteString(fmt.Sprintf("  StorageDriver: %s\n", c.StorageDriver))
	if c.StorageDriver == "s3" {
		sb.WriteString(fmt.Sprintf("  S3Endpoint: %s\n", c.S3Endpoint))
		sb.WriteString(fmt.Sprintf("  S3Region: %s\n", c.S3Region))
		sb.WriteString(fmt.Sprintf("  S3Bucket: %s\n", c.S3Bucket))
		sb.WriteString(fmt.Sprintf("  S3AccessKey: %s\n", mask(c.S3AccessKey)))
		sb.WriteString(fmt.Sprintf("  S3SecretKey: %s\n", mask(c.S3SecretKey)))
		sb.WriteString(fmt.Sprintf("  S3UseSSL: %v\n", c.S3UseSSL))
		sb.WriteString(fmt.Sprintf("  S3PathStyle: %v\n", c.S3PathStyle))
	}

	sb.WriteString(fmt.Sprintf("  RedisAddr: %s\n", c.RedisAddr))
	sb.WriteString(fmt.Sprintf("  RedisPassword: %s\n", mask(c.RedisPassword)))

	sb.WriteString(fmt.Sprintf("  MaxPhotosPerSession: %d\n", c.MaxPhotosPerSession))
	sb.WriteString(fmt.Sprintf("  RetentionDays: %d\n", c.RetentionDays))
	sb.WriteString(fmt.Sprintf("  Thumb: %dx%d q%d max_pixels=%d workers=%d\n", c.ThumbMaxWidth, c.ThumbMaxHeight, c.ThumbQuality, c.ThumbMaxPixels, c.ThumbWorkers))
	sb.WriteString(fmt.Sprintf("  MaxUploadMB: %d\n", c.MaxUploadMB))
	sb.WriteString(fmt.Sprintf("  PerPage: default=%d max=%d\n", c.DefaultPerPage, c.MaxPerPage))
	sb.WriteString(fmt.Sprintf("  Lock: ttl=%ds wait=%ds\n", c.LockTTLSeconds, c.LockWaitSeconds))

	return sb.String()
}

// LoadFromEnv reads the environment, with .env in the working directory
// loaded first for local development.
func LoadFromEnv() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.New("failed to load .env")
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	keys := []string{
		"APP_PORT", "PUBLIC_BASE_URL",
		"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SCHEME", "SQLITE_PATH",
		"STORAGE_DRIVER", "S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY",
		"S3_USE_SSL", "S3_PATH_STYLE",
		"REDIS_ADDR", "REDIS_DB", "REDIS_PASSWORD",
		"MAX_PHOTOS_PER_SESSION", "RETENTION_DAYS",
		"THUMB_MAX_WIDTH", "THUMB_MAX_HEIGHT", "THUMB_QUALITY", "THUMB_MAX_PIXELS", "THUMB_WORKERS",
		"MAX_UPLOAD_MB", "DEFAULT_PER_PAGE", "MAX_PER_PAGE",
		"LOCK_TTL_SECONDS", "LOCK_WAIT_SECONDS",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER %q: want postgres or sqlite", c.DBDriver)
	}
	switch c.StorageDriver {
	case "s3", "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER %q: want s3 or memory", c.StorageDriver)
	}
	// the embedded migrations create schema gallery
	if c.DBDriver == "postgres" && c.DBScheme != "gallery" {
		return fmt.Errorf("DB_SCHEME %q: only gallery is supported", c.DBScheme)
	}
	if c.StorageDriver == "s3" && c.S3Endpoint == "" {
		return errors.New("S3_ENDPOINT is required for STORAGE_DRIVER=s3")
	}
	for name, n := range map[string]int{
		"MAX_PHOTOS_PER_SESSION": c.MaxPhotosPerSession,
		"RETENTION_DAYS":         c.RetentionDays,
		"MAX_PER_PAGE":           c.MaxPerPage,
		"THUMB_WORKERS":          c.ThumbWorkers,
		"THUMB_MAX_PIXELS":       c.ThumbMaxPixels,
	} {
		if n <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, n)
		}
	}
	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

func (c *Config) LockTTL() time.Duration  { return time.Duration(c.LockTTLSeconds) * time.Second }
func (c *Config) LockWait() time.Duration { return time.Duration(c.LockWaitSeconds) * time.Second }
