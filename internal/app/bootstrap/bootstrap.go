package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"legacypages/app/internal/account"
	"legacypages/app/internal/config"
	appdb "legacypages/app/internal/db"
	apphttp "legacypages/app/internal/http"
	"legacypages/app/internal/identity"
	"legacypages/app/internal/legacy"
	"legacypages/app/internal/storage"
)

type Dependencies struct {
	Config    *config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	Pages      legacy.Service
	HTTPServer *apphttp.Server
	Database   *gorm.DB
	Cleanup    func() error
}

// OpenDatabase connects to the configured database and applies every migration.
func OpenDatabase(ctx context.Context, deps Dependencies) (*gorm.DB, error) {
	cfg := deps.Config

	db, err := appdb.Open(appdb.Options{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		DSN:    cfg.DatabaseURL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "opening database")
	}

	if err := account.Migrate(ctx, db, deps.Logger); err != nil {
		closeQuietly(db, deps.Logger)
		return nil, eris.Wrap(err, "running account migrations")
	}

	if err := legacy.Migrate(ctx, db, deps.Logger); err != nil {
		closeQuietly(db, deps.Logger)
		return nil, eris.Wrap(err, "running legacy page migrations")
	}

	return db, nil
}

// Build composes the application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	if deps.Config == nil {
		return Result{}, eris.New("configuration is required")
	}
	cfg := deps.Config

	db, err := OpenDatabase(ctx, deps)
	if err != nil {
		return Result{}, err
	}

	var closers []func() error
	closers = append(closers, func() error { return appdb.Close(db) })

	cleanup := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := cleanup(); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("releasing resources after bootstrap failure")
		}
		return Result{}, wrapper
	}

	var (
		files     storage.Storage
		localFile apphttp.FileOpener
	)
	switch cfg.Storage.Backend {
	case config.StorageBackendGCS:
		gcs, err := storage.NewGCS(ctx, storage.GCSOptions{
			BucketPrefix: cfg.Storage.GCSBucketPrefix,
			EmulatorHost: cfg.Storage.GCSEmulatorHost,
		})
		if err != nil {
			return closeOnError(eris.Wrap(err, "creating gcs storage"))
		}
		closers = append(closers, gcs.Close)
		files = gcs
	default:
		fs, err := storage.NewFS(cfg.Storage.LocalRoot, cfg.Storage.PublicBaseURL)
		if err != nil {
			return closeOnError(eris.Wrap(err, "creating local storage"))
		}
		files = fs
		localFile = fs
	}

	userRepo, err := account.NewGormRepository(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating account repository"))
	}

	resolver, err := account.NewResolver(userRepo, cfg.UserCacheTTL)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating user resolver"))
	}

	pageRepo, err := legacy.NewGormRepository(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating legacy page repository"))
	}

	pages, err := legacy.NewService(pageRepo, files, resolver, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating legacy page service"))
	}

	opts := apphttp.Options{
		Pages:     pages,
		Files:     localFile,
		Database:  db,
		Logger:    deps.Logger,
		SentryHub: deps.SentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             cfg.RateLimit.Burst,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			ClientTTL:         cfg.RateLimit.ClientTTL,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes:     cfg.MaxUploadBytes,
	}

	if cfg.Identity.JWTSecret != "" || cfg.Identity.JWTPublicKey != "" {
		verifier, err := identity.NewVerifier(identity.VerifierOptions{
			Secret:       cfg.Identity.JWTSecret,
			PublicKeyPEM: cfg.Identity.JWTPublicKey,
			Issuer:       cfg.Identity.JWTIssuer,
		})
		if err != nil {
			return closeOnError(eris.Wrap(err, "creating token verifier"))
		}
		opts.Tokens = verifier
	} else if deps.Logger != nil {
		deps.Logger.Warn("no identity key configured, every request is anonymous")
	}

	if cfg.Identity.WebhookSecret != "" {
		webhooks, err := identity.NewWebhookVerifier(cfg.Identity.WebhookSecret)
		if err != nil {
			return closeOnError(eris.Wrap(err, "creating webhook verifier"))
		}

		lifecycle, err := account.NewLifecycle(userRepo, resolver, pages, deps.Logger)
		if err != nil {
			return closeOnError(eris.Wrap(err, "creating account lifecycle"))
		}

		opts.Webhooks = webhooks
		opts.Events = lifecycle
	} else if deps.Logger != nil {
		deps.Logger.Warn("no webhook secret configured, identity webhook disabled")
	}

	httpServer, err := apphttp.NewServer(opts)
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}
	closers = append(closers, func() error {
		httpServer.Close()
		return nil
	})

	return Result{
		Pages:      pages,
		HTTPServer: httpServer,
		Database:   db,
		Cleanup:    cleanup,
	}, nil
}

func closeQuietly(db *gorm.DB, logger *logrus.Logger) {
	if err := appdb.Close(db); err != nil && logger != nil {
		logger.WithError(err).Error("closing database")
	}
}
