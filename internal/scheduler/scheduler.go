package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Flusher re-commits state that failed to reach durable storage.
type Flusher interface {
	Dirty() bool
	Flush(ctx context.Context) error
}

// Scheduler periodically retries failed favorites commits so durable
// storage catches up with the in-memory list. It never fetches weather.
type Scheduler struct {
	scheduler *gocron.Scheduler
	flusher   Flusher
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(flusher Flusher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		flusher:   flusher,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the flush job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 60
	}

	_, err := s.scheduler.Every(seconds).Seconds().Do(s.runFlush)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) runFlush() {
	if !s.flusher.Dirty() {
		return
	}
	s.logger.Info("scheduler: re-committing favorites")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.flusher.Flush(ctx); err != nil {
		s.logger.Warn("scheduler: favorites flush failed", "error", err)
		return
	}
	s.logger.Info("scheduler: favorites flushed")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
