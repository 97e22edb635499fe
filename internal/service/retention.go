package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// RunRetention prunes sessions idle for longer than ttl on schedule until ctx is done.
func (s *Service) RunRetention(ctx context.Context, schedule string, ttl time.Duration) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(schedule, func() { s.sweepSessions(ctx, ttl) }); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	c.Start()
	s.log.WithField("schedule", schedule).Info("session retention started")
	<-ctx.Done()

	<-c.Stop().Done()
	s.log.Info("session retention stopped")
	return nil
}

func (s *Service) sweepSessions(ctx context.Context, ttl time.Duration) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := s.SweepSessions(sweepCtx, ttl)
	if err != nil {
		s.log.WithError(err).Warn("session retention sweep failed")
		return
	}
	if removed > 0 {
		s.log.WithField("sessions", removed).Info("pruned idle sessions")
	}
}

// SweepSessions deletes sessions whose last message is older than ttl.
func (s *Service) SweepSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	return s.store.PruneSessionsBefore(ctx, s.now().Add(-ttl))
}
