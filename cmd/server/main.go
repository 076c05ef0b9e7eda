package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"legacypages/app/internal/app/bootstrap"
	"legacypages/app/internal/config"
	appdb "legacypages/app/internal/db"
	applog "legacypages/app/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:   "legacypages",
		Usage:  "Legacy and memorial page server",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Path to a dotenv file loaded before reading configuration",
				Sources: cli.EnvVars("APP_ENV_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations and exit",
				Action: migrate,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

type runtime struct {
	cfg       *config.Config
	logger    *logrus.Logger
	sentryHub *sentry.Hub
	flush     func()
}

func setup(cmd *cli.Command) (*runtime, error) {
	if path := cmd.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, eris.Wrapf(err, "failure loading env file %s", path)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, eris.Wrap(err, "failure initialising sentry")
	}

	return &runtime{cfg: cfg, logger: logger, sentryHub: sentryHub, flush: flush}, nil
}

func (r *runtime) dependencies() bootstrap.Dependencies {
	return bootstrap.Dependencies{
		Config:    r.cfg,
		Logger:    r.logger,
		SentryHub: r.sentryHub,
	}
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.flush()

	db, err := bootstrap.OpenDatabase(ctx, rt.dependencies())
	if err != nil {
		return err
	}

	if err := appdb.Close(db); err != nil {
		return eris.Wrap(err, "closing database")
	}

	rt.logger.Info("migrations applied")
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.flush()

	app, err := bootstrap.Build(ctx, rt.dependencies())
	if err != nil {
		return eris.Wrap(err, "building application")
	}
	defer func() {
		if closeErr := app.Cleanup(); closeErr != nil {
			rt.logger.WithError(closeErr).Error("releasing application resources")
		}
	}()

	httpServer := &stdhttp.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", rt.cfg.ServerPort),
		Handler: app.HTTPServer.Handler(),
	}

	rt.logger.WithFields(logrus.Fields{
		"addr":    httpServer.Addr,
		"storage": rt.cfg.Storage.Backend,
		"db":      rt.cfg.DBDriver,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		rt.logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	rt.logger.Info("http server shut down cleanly")
	return nil
}
