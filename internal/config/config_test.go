package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"DB_DRIVER", "DB_PATH", "DATABASE_URL", "SERVER_PORT", "LOG_LEVEL", "SENTRY_DSN", "ENV",
		"STORAGE_BACKEND", "STORAGE_LOCAL_ROOT", "STORAGE_PUBLIC_BASE_URL", "STORAGE_GCS_BUCKET_PREFIX",
		"STORAGE_GCS_EMULATOR_HOST", "IDENTITY_JWT_SECRET", "IDENTITY_JWT_PUBLIC_KEY", "IDENTITY_JWT_ISSUER",
		"IDENTITY_WEBHOOK_SECRET", "CORS_ALLOWED_ORIGINS", "RATE_LIMIT_BURST", "RATE_LIMIT_RPS",
		"MAX_UPLOAD_MB", "USER_CACHE_TTL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBDriver != DBDriverSQLite {
		t.Errorf("expected default driver %q, got %q", DBDriverSQLite, cfg.DBDriver)
	}

	if cfg.DBPath != defaultDBPath {
		t.Errorf("expected default DB path %q, got %q", defaultDBPath, cfg.DBPath)
	}

	if cfg.ServerPort != defaultServerPort {
		t.Errorf("expected default server port %d, got %d", defaultServerPort, cfg.ServerPort)
	}

	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("expected default log level %q, got %q", defaultLogLevel, cfg.LogLevel)
	}

	if cfg.Environment != defaultEnvironment {
		t.Errorf("expected default environment %q, got %q", defaultEnvironment, cfg.Environment)
	}

	if cfg.ShutdownGrace != defaultShutdownGrace {
		t.Errorf("expected shutdown grace %s, got %s", defaultShutdownGrace, cfg.ShutdownGrace)
	}

	if cfg.Storage.Backend != StorageBackendLocal {
		t.Errorf("expected local storage backend, got %q", cfg.Storage.Backend)
	}

	if cfg.Storage.PublicBaseURL != "/uploads" {
		t.Errorf("expected public base url /uploads, got %q", cfg.Storage.PublicBaseURL)
	}

	if cfg.MaxUploadBytes != int64(defaultMaxUploadMB)<<20 {
		t.Errorf("expected max upload %d bytes, got %d", int64(defaultMaxUploadMB)<<20, cfg.MaxUploadBytes)
	}

	if cfg.CORSAllowedOrigins != nil {
		t.Errorf("expected nil CORS origins, got %v", cfg.CORSAllowedOrigins)
	}

	if cfg.SentryDSN != "" {
		t.Errorf("expected empty Sentry DSN, got %q", cfg.SentryDSN)
	}
}

func TestLoadWithExplicitValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "/tmp/legacy.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_BACKEND", "GCS")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "https://cdn.example.com/")
	t.Setenv("IDENTITY_JWT_SECRET", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("USER_CACHE_TTL", "30s")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBPath != "/tmp/legacy.db" {
		t.Errorf("expected DB path %q, got %q", "/tmp/legacy.db", cfg.DBPath)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.ServerPort)
	}

	if cfg.Storage.Backend != StorageBackendGCS {
		t.Errorf("expected gcs backend, got %q", cfg.Storage.Backend)
	}

	if cfg.Storage.PublicBaseURL != "https://cdn.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Storage.PublicBaseURL)
	}

	if cfg.Identity.JWTSecret != "secret" {
		t.Errorf("expected jwt secret, got %q", cfg.Identity.JWTSecret)
	}

	expectedOrigins := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(expectedOrigins) {
		t.Fatalf("expected %d origins, got %v", len(expectedOrigins), cfg.CORSAllowedOrigins)
	}
	for i, origin := range cfg.CORSAllowedOrigins {
		if origin != expectedOrigins[i] {
			t.Errorf("expected origin %q at index %d, got %q", expectedOrigins[i], i, origin)
		}
	}

	if cfg.RateLimit.Burst != 5 || cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("unexpected rate limit settings %+v", cfg.RateLimit)
	}

	if cfg.UserCacheTTL != 30*time.Second {
		t.Errorf("expected user cache ttl 30s, got %s", cfg.UserCacheTTL)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "invalid")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for invalid port, got nil")
	}

	if !strings.Contains(err.Error(), "invalid SERVER_PORT value") {
		t.Fatalf("expected error to mention invalid SERVER_PORT value, got %v", err)
	}
}

func TestLoadRejectsUnknownStorageBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "s3")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown storage backend")
	}
}

func TestLoadPostgresRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is missing for postgres")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/legacy")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/legacy" {
		t.Fatalf("expected database url to be set, got %q", cfg.DatabaseURL)
	}
}
