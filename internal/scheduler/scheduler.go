// internal/scheduler/scheduler.go

// Package scheduler re-publishes notifications the queue has lost track of:
// elapsed retry backoffs, stale first publishes and due future-dated rows.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"notification-pipeline/internal/common/logger"
)

// Scheduler runs a tick function on a fixed interval, with the first tick
// fired immediately on Start. Ticks recover their own panics so one bad sweep
// cannot kill the loop.
type Scheduler struct {
	interval time.Duration
	tickFn   func(context.Context)
	logger   logger.Logger

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(interval time.Duration, tickFn func(context.Context), log logger.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be > 0, got %s", interval)
	}
	if tickFn == nil {
		return nil, fmt.Errorf("tick function must not be nil")
	}
	return &Scheduler{
		interval: interval,
		tickFn:   tickFn,
		logger:   log.WithFields(map[string]interface{}{"component": "scheduler"}),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the tick loop. It returns false if the loop is already
// running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("scheduler started", map[string]interface{}{
			"interval": s.interval.String(),
		})

		s.safeTick(ctx)

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("scheduler stopping", nil)
				return
			case <-ticker.C:
				s.safeTick(ctx)
			}
		}
	}()

	return true
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.running.Store(false)

	s.logger.Info("scheduler stopped", nil)
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler tick panic recovered", map[string]interface{}{
				"panic": r,
			})
		}
	}()

	start := time.Now()
	s.tickFn(ctx)
	s.logger.Debug("scheduler tick completed", map[string]interface{}{
		"durationMs": time.Since(start).Milliseconds(),
	})
}
