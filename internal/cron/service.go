package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs every registered job once per interval while holding the lock.
// A failing job is logged and counted; the remaining jobs still run.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run blocks until ctx is canceled, starting with an immediate cycle.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron worker stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "cron lock release failed", relErr)
		}
	}()

	failed := 0
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			break
		}
		if !s.runJob(ctx, job) {
			failed++
		}
	}
	s.logg.Info(s.logg.WithField(ctx, "jobs_failed", failed), "cron cycle complete")
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) (ok bool) {
	name := job.Name()
	jobCtx := s.logg.WithJob(ctx, name)
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logg.Error(jobCtx, "job panicked", fmt.Errorf("panic: %v", r))
			ok = false
		}
		elapsed := time.Since(started)
		if s.metrics != nil {
			s.metrics.ObserveDuration(name, elapsed)
			if ok {
				s.metrics.IncSuccess(name)
			} else {
				s.metrics.IncFailure(name)
			}
		}
	}()

	if err := job.Run(jobCtx); err != nil {
		s.logg.Error(s.logg.WithField(jobCtx, "duration_ms", time.Since(started).Milliseconds()), "job failed", err)
		return false
	}
	s.logg.Info(s.logg.WithField(jobCtx, "duration_ms", time.Since(started).Milliseconds()), "job completed")
	return true
}
