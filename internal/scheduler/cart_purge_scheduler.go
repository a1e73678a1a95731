package scheduler

import (
	"context"
	"time"

	"github.com/dhkim/storefront-gateway/internal/app/repository"
	"github.com/dhkim/storefront-gateway/pkg/logger"
	"github.com/robfig/cron/v3"
)

// CartPurgeScheduler drops guest carts that have not been touched within
// the retention window. Redis-backed carts expire on their own; this job
// covers the database and in-memory backends.
type CartPurgeScheduler struct {
	cron     *cron.Cron
	repo     repository.GuestCartRepository
	schedule string
	ttl      time.Duration
}

func NewCartPurgeScheduler(repo repository.GuestCartRepository, schedule string, ttl time.Duration) *CartPurgeScheduler {
	return &CartPurgeScheduler{
		cron:     cron.New(),
		repo:     repo,
		schedule: schedule,
		ttl:      ttl,
	}
}

// Start registers the purge job and starts the cron loop.
func (s *CartPurgeScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		logger.Info("Starting scheduled guest cart purge", map[string]interface{}{
			"older_than": s.ttl.String(),
		})

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		purged, err := s.repo.PurgeExpired(ctx, s.ttl)
		if err != nil {
			logger.Error("Failed to purge stale guest carts", err)
			return
		}

		logger.Info("Guest cart purge completed", map[string]interface{}{
			"purged": purged,
		})
	})

	if err != nil {
		logger.Error("Failed to add cron job for guest cart purge", err)
		return err
	}

	s.cron.Start()
	logger.Info("Guest cart purge scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})

	return nil
}

// Stop halts the cron loop.
func (s *CartPurgeScheduler) Stop() {
	logger.Info("Stopping guest cart purge scheduler...", nil)
	s.cron.Stop()
	logger.Info("Guest cart purge scheduler stopped", nil)
}
