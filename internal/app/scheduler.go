package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/slaengine/internal/ctxutil"
	"github.com/example/slaengine/internal/ports/primary"
)

// Scheduler runs a sweep immediately and then on every tick until its
// context is cancelled. Sweeps never overlap within one scheduler.
type Scheduler struct {
	service  primary.SLAService
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(service primary.SLAService, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{service: service, interval: interval, logger: logger.Named("scheduler")}
}

// Run blocks until ctx is done. It returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = ctxutil.WithActorID(ctx, "scheduler")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.service.Sweep(ctx); err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
	}
}
