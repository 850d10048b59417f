package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SweepRunner executes one overdue sweep pass
type SweepRunner interface {
	RunSweep(ctx context.Context) (SweepOutcome, error)
}

// SweepOutcome summarizes one sweep pass for monitoring
type SweepOutcome struct {
	Scanned    int
	Flagged    int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// SweepSchedulerConfig holds configuration for the sweep scheduler
type SweepSchedulerConfig struct {
	Enabled       bool
	CheckInterval time.Duration
	RunOnStart    bool // run one sweep immediately on startup
}

// DefaultSweepSchedulerConfig returns default configuration
func DefaultSweepSchedulerConfig() SweepSchedulerConfig {
	return SweepSchedulerConfig{
		Enabled:       true,
		CheckInterval: time.Hour,
		RunOnStart:    true,
	}
}

// Validate validates the configuration
func (c *SweepSchedulerConfig) Validate() error {
	if c.CheckInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// SweepScheduler periodically runs the overdue sweep. The sweep itself is
// idempotent, so overlapping schedules or restarts at worst cost an extra
// scan.
type SweepScheduler struct {
	config SweepSchedulerConfig
	runner SweepRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Recent outcomes for monitoring (in-memory, bounded)
	historyMu  sync.RWMutex
	history    []SweepOutcome
	maxHistory int
}

// NewSweepScheduler creates a new sweep scheduler
func NewSweepScheduler(config SweepSchedulerConfig, runner SweepRunner, logger *zap.Logger) (*SweepScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SweepScheduler{
		config:     config,
		runner:     runner,
		logger:     logger,
		history:    make([]SweepOutcome, 0, 50),
		maxHistory: 50,
	}, nil
}

// Start starts the scheduler loop
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("overdue sweep scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *SweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("overdue sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// History returns a copy of the recent sweep outcomes, newest last
func (s *SweepScheduler) History() []SweepOutcome {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	out := make([]SweepOutcome, len(s.history))
	copy(out, s.history)
	return out
}

func (s *SweepScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SweepScheduler) runOnce(ctx context.Context) {
	outcome, err := s.runner.RunSweep(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return
	}

	s.logger.Info("overdue sweep completed",
		zap.Int("scanned", outcome.Scanned),
		zap.Int("flagged", outcome.Flagged),
		zap.Int("failed", outcome.Failed),
		zap.Duration("elapsed", outcome.FinishedAt.Sub(outcome.StartedAt)),
	)

	s.historyMu.Lock()
	s.history = append(s.history, outcome)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
	s.historyMu.Unlock()
}
