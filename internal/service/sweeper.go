package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// Sweeper runs the expiry sweep on a fixed interval. Sweep failures are
// logged, never propagated; the on-demand cleanup endpoint shares the same
// idempotent deletion path, so overlapping runs are safe.
type Sweeper struct {
	scheduler gocron.Scheduler
	service   *ReportService
	interval  time.Duration
	logger    *logrus.Logger
}

// NewSweeper creates a sweeper over the report service.
func NewSweeper(service *ReportService, interval time.Duration, logger *logrus.Logger) (*Sweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Sweeper{
		scheduler: scheduler,
		service:   service,
		interval:  interval,
		logger:    logger,
	}, nil
}

// Start schedules the periodic sweep and begins running it.
func (s *Sweeper) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if _, err := s.service.CleanupExpired(context.Background()); err != nil {
				s.logger.WithError(err).Error("Periodic expiry sweep failed")
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}

	s.scheduler.Start()
	s.logger.WithField("interval", s.interval).Info("Expiry sweep scheduled")
	return nil
}

// Stop shuts the scheduler down.
func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}
