// player/jobs/scheduler.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Ownership decides whether this instance should run a singleton job.
// cluster.ServiceAssignmentManager satisfies it.
type Ownership interface {
	IsResponsible(key string) (bool, error)
}

// Job is a unit of background work run by the Scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on gocron, skipping any tick this instance does not own.
type Scheduler struct {
	sched   gocron.Scheduler
	owner   Ownership
	timeout time.Duration
	logger  *zap.Logger
}

func NewScheduler(loc *time.Location, owner Ownership, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{sched: sched, owner: owner, timeout: timeout, logger: logger}, nil
}

// Cron registers job on a five-field crontab evaluated in the scheduler's location.
func (s *Scheduler) Cron(crontab string, job Job) error {
	return s.add(gocron.CronJob(crontab, false), job)
}

// Every registers job at a fixed interval.
func (s *Scheduler) Every(interval time.Duration, job Job) error {
	return s.add(gocron.DurationJob(interval), job)
}

func (s *Scheduler) add(def gocron.JobDefinition, job Job) error {
	_, err := s.sched.NewJob(def,
		gocron.NewTask(s.tick, job),
		gocron.WithName(job.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.sched.Jobs())))
}

func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}

// tick runs job once if this instance owns it.
func (s *Scheduler) tick(job Job) {
	if s.owner != nil {
		owned, err := s.owner.IsResponsible(job.Name())
		if err != nil {
			s.logger.Warn("could not resolve job owner, skipping", zap.String("job", job.Name()), zap.Error(err))
			return
		}
		if !owned {
			s.logger.Debug("job owned by another instance", zap.String("job", job.Name()))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("job failed", zap.String("job", job.Name()), zap.Error(err))
	}
}
