package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forecast_srv/internal/config"
	"forecast_srv/internal/database"
	"forecast_srv/internal/fetch"
	"forecast_srv/internal/render"
	"forecast_srv/internal/repository"
	"forecast_srv/internal/server"
	"forecast_srv/internal/service"
	"forecast_srv/internal/storage"

	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDatabase,
			provideFetcher,
			provideRenderer,
			provideReportService,
			provideSweeper,
			repository.NewReportRepository,
			storage.NewStorageFromConfig,
			server.NewServer,
		),

		fx.Invoke(registerLifecycleHooks),
	)

	runWithGracefulShutdown(app)
}

func provideConfig() (config.Config, error) {
	return config.Load()
}

func provideLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
		logger.WithError(err).Warn("Invalid logging level, falling back to info")
	}
	logger.SetLevel(level)

	switch cfg.Logging.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	logger.WithField("config", cfg.String()).Info("Starting report service")
	return logger
}

func provideDatabase(cfg config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := database.NewDatabase(database.Config{
		Driver: cfg.DB.Driver,
		DSN:    cfg.DB.DSN,
		Debug:  cfg.Server.Debug,
	})
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	if err := database.SeedDefaultTemplates(db, logger); err != nil {
		return nil, err
	}

	return db, nil
}

// provideFetcher selects the dataset source once at startup. There is no
// runtime fallback between the two.
func provideFetcher(cfg config.Config, db *gorm.DB, logger *logrus.Logger) fetch.Fetcher {
	if cfg.Reports.DataSource == "synthetic" {
		logger.Info("Using synthetic dataset source")
		return fetch.NewSyntheticFetcher()
	}
	return fetch.NewDBFetcher(db)
}

func provideRenderer(logger *logrus.Logger) *render.Renderer {
	return render.NewRenderer(render.NewWKHTMLConverter(), logger)
}

func provideReportService(
	repo *repository.ReportRepository,
	fetcher fetch.Fetcher,
	renderer *render.Renderer,
	files storage.Storage,
	cfg config.Config,
	logger *logrus.Logger,
) *service.ReportService {
	return service.NewReportService(repo, fetcher, renderer, files, cfg.Reports.Retention, logger)
}

func provideSweeper(
	reportService *service.ReportService,
	cfg config.Config,
	logger *logrus.Logger,
) (*service.Sweeper, error) {
	return service.NewSweeper(reportService, cfg.Reports.SweepInterval, logger)
}

func registerLifecycleHooks(
	srv *server.Server,
	sweeper *service.Sweeper,
	reportService *service.ReportService,
	cfg config.Config,
	logger *logrus.Logger,
	lc fx.Lifecycle,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := sweeper.Start(); err != nil {
				return err
			}
			go func() {
				if err := srv.Start(cfg.Server.Address); err != nil {
					logger.WithError(err).Error("HTTP server stopped")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := sweeper.Stop(); err != nil {
				logger.WithError(err).Error("Failed to stop expiry sweeper")
			}
			reportService.Close()
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

	logrus.Info("Report service stopped cleanly")
}
