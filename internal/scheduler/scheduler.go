// Package scheduler runs the cron-driven background jobs that keep the
// messaging channel healthy: the approval-response scan and the stale
// session/OTP cleanup sweep. Schedules are standard five-field cron
// expressions evaluated once per tick.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"smartlocker-workers/internal/common/logger"
)

const defaultTick = 30 * time.Second

// Job is one scheduled unit of work.
type Job struct {
	Name string
	Cron string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	jobs   []Job
	gron   *gronx.Gronx
	tick   time.Duration
	logger logger.Logger

	wg sync.WaitGroup
}

func New(log logger.Logger) *Scheduler {
	return &Scheduler{
		gron:   gronx.New(),
		tick:   defaultTick,
		logger: log.WithFields(map[string]interface{}{"component": "scheduler"}),
	}
}

// Register adds a job. Returns an error for an invalid cron expression so
// misconfiguration fails at startup, not at first tick.
func (s *Scheduler) Register(name, cron string, run func(ctx context.Context) error) error {
	if !s.gron.IsValid(cron) {
		return &InvalidCronError{Job: name, Expression: cron}
	}
	s.jobs = append(s.jobs, Job{Name: name, Cron: cron, Run: run})
	s.logger.Info("job registered", map[string]interface{}{
		"job":  name,
		"cron": cron,
	})
	return nil
}

// Start blocks until the context is cancelled, firing due jobs each tick.
// A job is due when its cron expression matches the tick's minute; ticking
// faster than once per minute cannot double-fire because due jobs are
// tracked per minute.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	lastRun := make(map[string]time.Time)

	s.logger.Info("scheduler started", map[string]interface{}{
		"jobs": len(s.jobs),
	})

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("scheduler stopped", nil)
			return
		case now := <-ticker.C:
			s.fireDue(ctx, now, lastRun)
		}
	}
}

func (s *Scheduler) fireDue(ctx context.Context, now time.Time, lastRun map[string]time.Time) {
	minute := now.Truncate(time.Minute)
	for _, job := range s.jobs {
		if last, ok := lastRun[job.Name]; ok && last.Equal(minute) {
			continue
		}

		due, err := s.gron.IsDue(job.Cron, now)
		if err != nil {
			s.logger.Error("cron evaluation failed", map[string]interface{}{
				"job":   job.Name,
				"error": err.Error(),
			})
			continue
		}
		if !due {
			continue
		}

		lastRun[job.Name] = minute
		s.wg.Add(1)
		go s.runJob(ctx, job)
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	// A panicking job must not take the whole worker process down with it.
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("job panicked", map[string]interface{}{
				"job":   job.Name,
				"panic": fmt.Sprint(rec),
			})
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("job failed", map[string]interface{}{
			"job":      job.Name,
			"error":    err.Error(),
			"duration": time.Since(start).String(),
		})
		return
	}
	s.logger.Debug("job complete", map[string]interface{}{
		"job":      job.Name,
		"duration": time.Since(start).String(),
	})
}

// InvalidCronError reports a cron expression rejected at registration.
type InvalidCronError struct {
	Job        string
	Expression string
}

func (e *InvalidCronError) Error() string {
	return "invalid cron expression " + e.Expression + " for job " + e.Job
}
