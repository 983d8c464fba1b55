package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres  = "postgres"
	StoreBackendFirestore = "firestore"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	LogLevel     slog.Level

	StoreBackend       string
	FirestoreProjectID string
	MatCount           int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	MedalExportInterval time.Duration
	CORSAllowedOrigins  []string
}

// R2Configured reports whether object storage settings are present.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intOrDefault(getenv, "SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	var level slog.Level
	levelStr := getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", levelStr, err)
	}

	backend := strings.ToLower(getenv("STORE_BACKEND"))
	if backend == "" {
		backend = StoreBackendPostgres
	}
	if backend != StoreBackendPostgres && backend != StoreBackendFirestore {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendPostgres, StoreBackendFirestore, backend)
	}
	projectID := getenv("FIRESTORE_PROJECT_ID")
	if backend == StoreBackendFirestore && projectID == "" {
		return nil, fmt.Errorf("FIRESTORE_PROJECT_ID is required when STORE_BACKEND is %q", StoreBackendFirestore)
	}

	matCount, err := intOrDefault(getenv, "MAT_COUNT", 3)
	if err != nil {
		return nil, err
	}
	if matCount < 1 || matCount > 3 {
		return nil, fmt.Errorf("MAT_COUNT must be between 1 and 3, got %d", matCount)
	}

	interval := 15 * time.Minute
	if v := getenv("MEDAL_EXPORT_INTERVAL"); v != "" {
		interval, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MEDAL_EXPORT_INTERVAL: %w", err)
		}
		if interval <= 0 {
			return nil, fmt.Errorf("MEDAL_EXPORT_INTERVAL must be positive, got %s", interval)
		}
	}

	cfg := &Config{
		DatabaseURL:         dbURL,
		JWTSecretKey:        jwtKey,
		ServerPort:          port,
		LogLevel:            level,
		StoreBackend:        backend,
		FirestoreProjectID:  projectID,
		MatCount:            matCount,
		R2AccountID:         getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:       getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:   getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:        getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:     getenv("R2_PUBLIC_BASE_URL"),
		MedalExportInterval: interval,
		CORSAllowedOrigins:  splitList(getenv("CORS_ALLOWED_ORIGINS")),
	}

	// R2 либо настроен полностью, либо не настроен вовсе.
	r2 := []string{cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2BucketName, cfg.R2PublicBaseURL}
	set := 0
	for _, v := range r2 {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(r2) {
		return nil, fmt.Errorf("R2 storage is partially configured: set all of R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET_NAME, R2_PUBLIC_BASE_URL or none")
	}

	return cfg, nil
}

func intOrDefault(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	if v == "" {
		return []string{"*"}
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
