// Package job provides background job schedulers.
package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"viral-search-service/pkg/locker"
)

const sweepLockKey = "ratelimit:sweep:lock"

// Sweeper removes expired rate-limit state.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SweepScheduler periodically sweeps idle rate-limit keys. When a locker is
// set, only the instance holding the lock sweeps in a given interval.
type SweepScheduler struct {
	sweeper  Sweeper
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	locker   locker.DistributedLocker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SweepConfig holds sweep scheduler configuration.
type SweepConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// NewSweepScheduler creates a SweepScheduler. A nil locker means every
// instance sweeps its own state, which is right for the in-memory store.
func NewSweepScheduler(
	sweeper Sweeper,
	cfg SweepConfig,
	logger *zap.Logger,
	locker locker.DistributedLocker,
) *SweepScheduler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}

	return &SweepScheduler{
		sweeper:  sweeper,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger,
		locker:   locker,
	}
}

// Start begins the background sweep loop.
func (s *SweepScheduler) Start() {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("starting sweep scheduler",
		zap.Duration("interval", s.interval),
		zap.Bool("distributed", s.locker != nil),
	)

	s.wg.Add(1)
	go s.run()
}

// Stop cancels the loop and waits for a running sweep to return.
func (s *SweepScheduler) Stop() {
	if s.cancel == nil {
		return
	}

	s.logger.Info("stopping sweep scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("sweep scheduler stopped")
}

func (s *SweepScheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.executeSweep()
		}
	}
}

// executeSweep runs one sweep. The leader lock is held for the whole
// interval on success and released right away on failure so another
// instance can retry.
func (s *SweepScheduler) executeSweep() {
	if s.locker != nil {
		acquired, err := s.locker.Acquire(s.ctx, sweepLockKey, s.interval)
		if err != nil {
			s.logger.Error("failed to acquire sweep lock", zap.Error(err))

			return
		}
		if !acquired {
			s.logger.Debug("another instance is sweeping, skipping")

			return
		}
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	deleted, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Warn("rate limit sweep failed",
			zap.Int("deleted", deleted),
			zap.Error(err),
		)
		if s.locker != nil {
			if err := s.locker.Release(s.ctx, sweepLockKey); err != nil {
				s.logger.Error("failed to release sweep lock", zap.Error(err))
			}
		}

		return
	}

	s.logger.Debug("rate limit sweep completed",
		zap.Int("deleted", deleted),
		zap.Duration("took", time.Since(start)),
	)
}
