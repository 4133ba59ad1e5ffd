package board

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically closes sessions that stopped talking to the server.
type Sweeper struct {
	board    *Board
	interval time.Duration
	idle     time.Duration
	log      logrus.FieldLogger

	mu       sync.Mutex
	running  bool
	sweeps   int
	closed   int
	lastRun  time.Time
	stopChan chan struct{}
}

type SweeperConfig struct {
	Interval    time.Duration
	IdleTimeout time.Duration
}

func NewSweeper(b *Board, cfg SweeperConfig, log logrus.FieldLogger) *Sweeper {
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	return &Sweeper{
		board:    b,
		interval: cfg.Interval,
		idle:     cfg.IdleTimeout,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"interval":     s.interval.String(),
		"idle_timeout": s.idle.String(),
	}).Info("session sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.markStopped()
			s.log.Info("session sweeper stopped: context cancelled")
			return
		case <-s.stopChan:
			s.log.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		close(s.stopChan)
		s.running = false
	}
}

func (s *Sweeper) markStopped() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// RunOnce sweeps idle sessions immediately.
func (s *Sweeper) RunOnce() int {
	n := s.board.SweepIdle(s.idle)

	s.mu.Lock()
	s.sweeps++
	s.closed += n
	s.lastRun = s.board.clock.Now()
	s.mu.Unlock()

	if n > 0 {
		s.log.WithFields(logrus.Fields{
			"closed":    n,
			"remaining": s.board.Len(),
		}).Info("closed idle sessions")
	}
	return n
}

// GetStatus returns current sweeper status.
func (s *Sweeper) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"running":        s.running,
		"interval":       s.interval.String(),
		"idleTimeout":    s.idle.String(),
		"sweeps":         s.sweeps,
		"sessionsClosed": s.closed,
		"activeSessions": s.board.Len(),
	}
	if !s.lastRun.IsZero() {
		status["lastRun"] = s.lastRun.UTC().Format(time.RFC3339)
	}
	return status
}
