package scheduler

import (
	"context"
	"time"

	"leadscore_backend/platform/logger"
)

const (
	defaultSweepInterval = 15 * time.Minute
	defaultStaleAfter    = 24 * time.Hour
	defaultSweepBatch    = 100
)

// StaleSweeper enqueues rescoring for scores older than cutoff.
type StaleSweeper interface {
	RescoreStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// StaleScoreSweep periodically queues rescoring for scores that have not
// been refreshed within staleAfter.
type StaleScoreSweep struct {
	sweeper    StaleSweeper
	log        *logger.Logger
	interval   time.Duration
	staleAfter time.Duration
	batch      int
	now        func() time.Time
}

func NewStaleScoreSweep(sweeper StaleSweeper, log *logger.Logger, interval, staleAfter time.Duration) *StaleScoreSweep {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &StaleScoreSweep{
		sweeper:    sweeper,
		log:        log,
		interval:   interval,
		staleAfter: staleAfter,
		batch:      defaultSweepBatch,
		now:        time.Now,
	}
}

func (s *StaleScoreSweep) Run(ctx context.Context) {
	if s == nil || s.sweeper == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *StaleScoreSweep) sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.staleAfter)

	enqueued, err := s.sweeper.RescoreStale(ctx, cutoff, s.batch)
	if err != nil {
		s.log.Warn("stale score sweep failed", "error", err)
		return
	}

	if enqueued > 0 {
		s.log.Info("stale score sweep queued rescoring", "enqueued", enqueued, "cutoff", cutoff)
	}
}
