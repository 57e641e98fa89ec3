package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"forecast_srv/internal/config"
	"forecast_srv/internal/logsvc"

	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	app := fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLogService,
			logsvc.NewServer,
		),

		fx.Invoke(registerLifecycleHooks),
	)

	runWithGracefulShutdown(app)
}

func provideConfig() (config.Config, error) {
	return config.Load()
}

// provideLogger writes through lumberjack into the same file the service
// serves, so the service's own activity shows up in /logs.
func provideLogger(cfg config.Config) (*logrus.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogSvc.File), 0o755); err != nil {
		return nil, err
	}

	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	logger.SetOutput(&lumberjack.Logger{
		Filename:   cfg.LogSvc.File,
		MaxSize:    cfg.LogSvc.MaxSizeMB,
		MaxBackups: cfg.LogSvc.MaxBackups,
	})

	logger.Info("Starting logging service")
	return logger, nil
}

func provideLogService(cfg config.Config, logger *logrus.Logger) *logsvc.LogService {
	return logsvc.NewLogService(cfg.LogSvc.File, logger)
}

func registerLifecycleHooks(
	srv *logsvc.Server,
	cfg config.Config,
	logger *logrus.Logger,
	lc fx.Lifecycle,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(cfg.LogSvc.Address); err != nil {
					logger.WithError(err).Error("HTTP server stopped")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func runWithGracefulShutdown(app *fx.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		logrus.WithError(err).Fatal("Failed to start application")
	}

	<-quit
	logrus.Info("Shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		logrus.WithError(err).Error("Shutdown failed")
		os.Exit(1)
	}

	logrus.Info("Logging service stopped cleanly")
}
