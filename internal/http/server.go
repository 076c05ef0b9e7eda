package http

import (
	"context"
	stdhttp "net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"legacypages/app/internal/identity"
	"legacypages/app/internal/legacy"
	"legacypages/app/internal/storage"
)

const defaultMaxUploadBytes = 50 << 20

// TokenVerifier resolves a bearer token into the calling identity.
type TokenVerifier interface {
	Verify(token string) (identity.Caller, error)
}

// EventVerifier authenticates an identity webhook delivery and decodes it.
type EventVerifier interface {
	Verify(payload []byte, headers stdhttp.Header) (*identity.Event, error)
}

// EventHandler applies a verified identity event.
type EventHandler interface {
	Apply(ctx context.Context, event identity.Event) (bool, error)
}

// FileOpener opens files kept by the local storage backend.
type FileOpener interface {
	Open(bucket storage.Bucket, key string) (*os.File, error)
}

// Options configures the HTTP server wiring.
type Options struct {
	Pages    legacy.Service
	Tokens   TokenVerifier
	Webhooks EventVerifier
	Events   EventHandler
	Files    FileOpener
	Database *gorm.DB

	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	RateLimiter RateLimiterSettings

	CORSAllowedOrigins []string
	MaxUploadBytes     int64
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api     huma.API
	mux     *stdhttp.ServeMux
	handler stdhttp.Handler

	pages    legacy.Service
	tokens   TokenVerifier
	webhooks EventVerifier
	events   EventHandler
	files    FileOpener
	db       *gorm.DB

	logger         *logrus.Logger
	sentry         *sentry.Hub
	rateLimiter    *RateLimiter
	maxUploadBytes int64
}

// NewServer constructs the HTTP server. Without a token verifier every request
// is anonymous; without webhook wiring the identity webhook is not mounted.
func NewServer(opts Options) (*Server, error) {
	if opts.Pages == nil {
		return nil, eris.New("page service is required")
	}
	if opts.Database == nil {
		return nil, eris.New("database is required")
	}
	if (opts.Webhooks == nil) != (opts.Events == nil) {
		return nil, eris.New("webhook verifier and event handler must be configured together")
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Legacy Pages", "1.0.0")

	api := humago.New(mux, config)

	srv := &Server{
		api:            api,
		mux:            mux,
		pages:          opts.Pages,
		tokens:         opts.Tokens,
		webhooks:       opts.Webhooks,
		events:         opts.Events,
		files:          opts.Files,
		db:             opts.Database,
		logger:         opts.Logger,
		sentry:         opts.SentryHub,
		maxUploadBytes: opts.MaxUploadBytes,
	}
	if srv.maxUploadBytes <= 0 {
		srv.maxUploadBytes = defaultMaxUploadBytes
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	srv.rateLimiter = NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL)

	srv.registerMiddlewares()
	srv.registerRoutes()

	srv.handler = mux
	if len(opts.CORSAllowedOrigins) > 0 {
		srv.handler = cors.New(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodPut, stdhttp.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
		}).Handler(mux)
	}

	return srv, nil
}

// Handler exposes the HTTP handler, CORS included, for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.handler
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.authMiddleware(),
		s.uploadLimitMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	if s.files != nil {
		s.mux.HandleFunc("GET /uploads/{bucket}/{path...}", s.uploadHandler)
	}

	s.registerPageRoutes()
	s.registerUserRoutes()
	if s.webhooks != nil {
		s.registerWebhookRoute()
	}
	s.registerLegacyViewRoute()
	s.registerHealthRoute()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.handler.ServeHTTP(w, r)
}
