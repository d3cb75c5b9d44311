package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs one named task on a fixed wall-clock interval. The
// service runs several of these side by side (webhook-log sweep,
// credential-expiry notifier), so every log line carries the task name.
type Scheduler struct {
	name      string
	logger    *zap.Logger
	interval  time.Duration
	taskFunc  func(context.Context) error
	stopCh    chan struct{}
	doneCh    chan struct{}
	isRunning bool
	mu        sync.RWMutex
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(name string, logger *zap.Logger, interval time.Duration, taskFunc func(context.Context) error) *Scheduler {
	return &Scheduler{
		name:     name,
		logger:   logger,
		interval: interval,
		taskFunc: taskFunc,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return ErrSchedulerAlreadyRunning
	}

	s.isRunning = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Scheduler started",
		zap.String("task", s.name),
		zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()

	s.logger.Info("Scheduler stopped", zap.String("task", s.name))
	return nil
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// run executes the scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)
	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	// Execute immediately on start
	s.executeTask(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context canceled", zap.String("task", s.name))
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.executeTask(ctx)
		}
	}
}

// executeTask runs the task function bounded to the interval so a slow
// run cannot pile up behind the next tick.
func (s *Scheduler) executeTask(ctx context.Context) {
	taskCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	if err := s.taskFunc(taskCtx); err != nil {
		s.logger.Error("Scheduled task failed",
			zap.String("task", s.name),
			zap.Error(err))
	}
}
