package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Housekeeping intervals
const (
	DefaultSweepInterval = 10 * time.Minute
	DefaultPurgeInterval = 24 * time.Hour
	DefaultIdleTimeout   = 60 * time.Minute
	purgeTimeout         = time.Minute
)

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler   *gocron.Scheduler
	sweeper     Sweeper
	purger      Purger
	idleTimeout time.Duration
}

// Sweeper drops quiz sessions that have been idle for too long
type Sweeper interface {
	SweepIdleSessions(maxIdle time.Duration) int
}

// Purger deletes expired stored entries
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// New creates a new scheduler instance. Either collaborator may be nil.
func New(sweeper Sweeper, purger Purger, idleTimeout time.Duration) *Scheduler {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Scheduler{
		scheduler:   gocron.NewScheduler(time.UTC),
		sweeper:     sweeper,
		purger:      purger,
		idleTimeout: idleTimeout,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	if s.sweeper != nil {
		if _, err := s.scheduler.Every(DefaultSweepInterval).Do(s.sweepSessions); err != nil {
			return err
		}
	}
	if s.purger != nil {
		if _, err := s.scheduler.Every(DefaultPurgeInterval).Do(s.purgeExpired); err != nil {
			return err
		}
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	log.Printf("Scheduler started with %d jobs", len(s.scheduler.Jobs()))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) sweepSessions() {
	if n := s.sweeper.SweepIdleSessions(s.idleTimeout); n > 0 {
		log.Printf("Dropped %d idle quiz sessions", n)
	}
}

func (s *Scheduler) purgeExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		log.Printf("Error purging expired storage: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Purged %d expired storage entries", n)
	}
}
