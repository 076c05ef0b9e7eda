package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rotisserie/eris"
)

// Storage backends supported by the object storage layer.
const (
	StorageBackendLocal = "local"
	StorageBackendGCS   = "gcs"
)

// Database drivers supported by the db package.
const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

// Config holds runtime configuration values for the legacy pages server.
type Config struct {
	DBDriver      string
	DBPath        string
	DatabaseURL   string
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	Environment   string
	ShutdownGrace time.Duration

	Storage   StorageConfig
	Identity  IdentityConfig
	RateLimit RateLimitConfig

	CORSAllowedOrigins []string
	MaxUploadBytes     int64
	UserCacheTTL       time.Duration
}

// StorageConfig selects and configures the object storage backend.
type StorageConfig struct {
	Backend         string
	LocalRoot       string
	PublicBaseURL   string
	GCSBucketPrefix string
	GCSEmulatorHost string
}

// IdentityConfig configures bearer-token verification and the lifecycle webhook.
type IdentityConfig struct {
	JWTSecret     string
	JWTPublicKey  string
	JWTIssuer     string
	WebhookSecret string
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Burst             int
	RequestsPerSecond float64
	ClientTTL         time.Duration
}

const (
	defaultDBDriver       = DBDriverSQLite
	defaultDBPath         = "./data/legacy.db"
	defaultServerPort     = 8080
	defaultLogLevel       = "info"
	defaultEnvironment    = "development"
	defaultShutdownGrace  = 10 * time.Second
	defaultStorageBackend = StorageBackendLocal
	defaultLocalRoot      = "./data/uploads"
	defaultPublicBaseURL  = "/uploads"
	defaultRateBurst      = 20
	defaultRateRPS        = 10
	defaultClientTTL      = 5 * time.Minute
	defaultMaxUploadMB    = 50
	defaultUserCacheTTL   = 5 * time.Minute
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", defaultDBDriver)),
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		ShutdownGrace: defaultShutdownGrace,
		Storage: StorageConfig{
			Backend:         strings.ToLower(getEnv("STORAGE_BACKEND", defaultStorageBackend)),
			LocalRoot:       getEnv("STORAGE_LOCAL_ROOT", defaultLocalRoot),
			PublicBaseURL:   strings.TrimRight(getEnv("STORAGE_PUBLIC_BASE_URL", defaultPublicBaseURL), "/"),
			GCSBucketPrefix: os.Getenv("STORAGE_GCS_BUCKET_PREFIX"),
			GCSEmulatorHost: os.Getenv("STORAGE_GCS_EMULATOR_HOST"),
		},
		Identity: IdentityConfig{
			JWTSecret:     os.Getenv("IDENTITY_JWT_SECRET"),
			JWTPublicKey:  os.Getenv("IDENTITY_JWT_PUBLIC_KEY"),
			JWTIssuer:     os.Getenv("IDENTITY_JWT_ISSUER"),
			WebhookSecret: os.Getenv("IDENTITY_WEBHOOK_SECRET"),
		},
		RateLimit: RateLimitConfig{
			ClientTTL: defaultClientTTL,
		},
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	port, err := getInt("SERVER_PORT", defaultServerPort)
	if err != nil {
		return nil, err
	}
	cfg.ServerPort = port

	burst, err := getInt("RATE_LIMIT_BURST", defaultRateBurst)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit.Burst = burst

	rpsValue := getEnv("RATE_LIMIT_RPS", strconv.Itoa(defaultRateRPS))
	rps, err := strconv.ParseFloat(rpsValue, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid RATE_LIMIT_RPS value: %s", rpsValue)
	}
	cfg.RateLimit.RequestsPerSecond = rps

	uploadMB, err := getInt("MAX_UPLOAD_MB", defaultMaxUploadMB)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(uploadMB) << 20

	cfg.UserCacheTTL = defaultUserCacheTTL
	if raw := os.Getenv("USER_CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid USER_CACHE_TTL value: %s", raw)
		}
		cfg.UserCacheTTL = ttl
	}

	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "validating configuration")
	}

	return cfg, nil
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.DBDriver, validation.Required, validation.In(DBDriverSQLite, DBDriverPostgres)),
		validation.Field(&c.DBPath, validation.When(c.DBDriver == DBDriverSQLite, validation.Required)),
		validation.Field(&c.DatabaseURL, validation.When(c.DBDriver == DBDriverPostgres, validation.Required)),
		validation.Field(&c.ServerPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.MaxUploadBytes, validation.Min(int64(1))),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.Storage,
		validation.Field(&c.Storage.Backend, validation.Required, validation.In(StorageBackendLocal, StorageBackendGCS)),
		validation.Field(&c.Storage.LocalRoot, validation.When(c.Storage.Backend == StorageBackendLocal, validation.Required)),
	); err != nil {
		return eris.Wrap(err, "storage")
	}

	return validation.ValidateStruct(&c.RateLimit,
		validation.Field(&c.RateLimit.Burst, validation.Min(1)),
		validation.Field(&c.RateLimit.RequestsPerSecond, validation.Min(0.001)),
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	value := getEnv(key, strconv.Itoa(fallback))
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, value)
	}
	return parsed, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
