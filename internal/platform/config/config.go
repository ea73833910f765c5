package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultStorageRegion    = "auto"
	defaultSessionTTL       = 7 * 24 * time.Hour
	defaultTempSessionTTL   = time.Hour
	defaultUploadMaxBytes   = 5 << 20
	defaultRateLimitAuth    = 30
	defaultRateLimitDefault = 120
)

var defaultUploadContentTypes = []string{"image/jpeg", "image/png", "image/webp"}

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	OAuth      OAuthConfig
	Security   SecurityConfig
	Uploads    UploadConfig
	RateLimits RateLimitConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig stores PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN            string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrateOnStart bool
}

// StorageConfig holds S3-compatible object storage credentials and the photo bucket.
type StorageConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// OAuthConfig carries the Google OAuth client settings and redirect targets.
type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
	FrontendURL        string
}

// SecurityConfig groups session signing and lifetime settings.
type SecurityConfig struct {
	JWTSecret      string
	SessionTTL     time.Duration
	TempSessionTTL time.Duration
	SecureCookies  bool
}

// UploadConfig bounds photo uploads.
type UploadConfig struct {
	MaxBytes            int64
	AllowedContentTypes []string
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	DefaultPerMinute int
	AuthPerMinute    int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Database: DatabaseConfig{
			DSN:            stringWithDefault(lookup, "API_DATABASE_DSN", ""),
			MaxOpenConns:   intWithDefault(lookup, "API_DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:   intWithDefault(lookup, "API_DATABASE_MAX_IDLE_CONNS", 5),
			MigrateOnStart: boolWithDefault(lookup, "API_DATABASE_MIGRATE_ON_START", true),
		},
		Storage: StorageConfig{
			Endpoint:  stringWithDefault(lookup, "API_STORAGE_ENDPOINT", ""),
			Region:    stringWithDefault(lookup, "API_STORAGE_REGION", defaultStorageRegion),
			AccessKey: stringWithDefault(lookup, "API_STORAGE_ACCESS_KEY", ""),
			SecretKey: stringWithDefault(lookup, "API_STORAGE_SECRET_KEY", ""),
			Bucket:    stringWithDefault(lookup, "API_STORAGE_BUCKET", ""),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     stringWithDefault(lookup, "API_OAUTH_GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: stringWithDefault(lookup, "API_OAUTH_GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:        stringWithDefault(lookup, "API_OAUTH_REDIRECT_URL", ""),
			FrontendURL:        stringWithDefault(lookup, "API_OAUTH_FRONTEND_URL", ""),
		},
		Security: SecurityConfig{
			JWTSecret:      stringWithDefault(lookup, "API_SECURITY_JWT_SECRET", ""),
			SessionTTL:     durationWithDefault(lookup, "API_SECURITY_SESSION_TTL", defaultSessionTTL),
			TempSessionTTL: durationWithDefault(lookup, "API_SECURITY_TEMP_SESSION_TTL", defaultTempSessionTTL),
			SecureCookies:  boolWithDefault(lookup, "API_SECURITY_SECURE_COOKIES", true),
		},
		Uploads: UploadConfig{
			MaxBytes:            int64(intWithDefault(lookup, "API_UPLOAD_MAX_BYTES", defaultUploadMaxBytes)),
			AllowedContentTypes: csvWithDefault(lookup, "API_UPLOAD_ALLOWED_CONTENT_TYPES"),
		},
		RateLimits: RateLimitConfig{
			DefaultPerMinute: intWithDefault(lookup, "API_RATELIMIT_DEFAULT_PER_MIN", defaultRateLimitDefault),
			AuthPerMinute:    intWithDefault(lookup, "API_RATELIMIT_AUTH_PER_MIN", defaultRateLimitAuth),
		},
	}

	if len(cfg.Uploads.AllowedContentTypes) == 0 {
		cfg.Uploads.AllowedContentTypes = append([]string{}, defaultUploadContentTypes...)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Database.DSN == "" {
		missing = append(missing, "Database.DSN")
	}
	if cfg.Security.JWTSecret == "" {
		missing = append(missing, "Security.JWTSecret")
	}
	if cfg.Security.SessionTTL <= 0 {
		missing = append(missing, "Security.SessionTTL")
	}
	if cfg.Security.TempSessionTTL <= 0 {
		missing = append(missing, "Security.TempSessionTTL")
	}
	if cfg.Uploads.MaxBytes <= 0 {
		missing = append(missing, "Uploads.MaxBytes")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
