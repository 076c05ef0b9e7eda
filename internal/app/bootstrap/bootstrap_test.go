package bootstrap

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"legacypages/app/internal/config"
	applog "legacypages/app/internal/log"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	return &config.Config{
		DBDriver:      config.DBDriverSQLite,
		DBPath:        filepath.Join(dir, "legacy.db"),
		ShutdownGrace: time.Second,
		Storage: config.StorageConfig{
			Backend:       config.StorageBackendLocal,
			LocalRoot:     filepath.Join(dir, "uploads"),
			PublicBaseURL: "/uploads",
		},
		RateLimit: config.RateLimitConfig{
			Burst:             50,
			RequestsPerSecond: 50,
			ClientTTL:         time.Minute,
		},
		MaxUploadBytes: 1 << 20,
		UserCacheTTL:   time.Minute,
	}
}

func TestBuildServesHealthWithLocalUploads(t *testing.T) {
	t.Parallel()

	result, err := Build(context.Background(), Dependencies{Config: testConfig(t), Logger: applog.Discard()})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := result.Cleanup(); err != nil {
			t.Errorf("cleanup returned error: %v", err)
		}
	})

	rec := httptest.NewRecorder()
	result.HTTPServer.Handler().ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/healthz", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Database string `json:"database"`
		Identity string `json:"identity"`
		Uploads  string `json:"uploads"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	if body.Database != "ok" || body.Identity != "unconfigured" || body.Uploads != "local" {
		t.Fatalf("unexpected health body: %+v", body)
	}
}

func TestBuildLeavesWebhookUnmountedWithoutSecret(t *testing.T) {
	t.Parallel()

	result, err := Build(context.Background(), Dependencies{Config: testConfig(t), Logger: applog.Discard()})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	t.Cleanup(func() { _ = result.Cleanup() })

	rec := httptest.NewRecorder()
	result.HTTPServer.Handler().ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodPost, "/webhooks/identity", nil))
	if rec.Code != stdhttp.StatusNotFound && rec.Code != stdhttp.StatusMethodNotAllowed {
		t.Fatalf("expected webhook route to be absent, got %d", rec.Code)
	}
}

func TestBuildRequiresConfig(t *testing.T) {
	t.Parallel()

	if _, err := Build(context.Background(), Dependencies{}); err == nil {
		t.Fatalf("expected error without configuration")
	}
}

func TestOpenDatabaseRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.DBDriver = "oracle"

	if _, err := OpenDatabase(context.Background(), Dependencies{Config: cfg}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
