package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/healthify/internal/healthify/store"
)

// DefaultSampleRetention is how long raw device samples are kept. Stats only
// ever look at the current day.
const DefaultSampleRetention = 30 * 24 * time.Hour

// HousekeepingService periodically prunes device samples older than the
// retention window.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Clock     Clock

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults interval to 1 hour and retention to
// DefaultSampleRetention when they are not positive.
func NewHousekeepingService(s store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = DefaultSampleRetention
	}

	return &HousekeepingService{
		Store:     s,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the worker in the background until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes expired samples once.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	cutoff := s.Clock.now().Add(-s.Retention)

	n, err := s.Store.Activity().DeleteSamplesBefore(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete expired activity samples", "error", err)
		return
	}
	s.Logger.Debug("housekeeping cleanup completed", "deleted_samples", n, "cutoff", cutoff)
}
