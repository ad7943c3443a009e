package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/coinledger-backend/pkg/logger"
)

const (
	defaultReportBatch = 100
	maxReportBatches   = 50
)

type reportPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time, batch int) (int, error)
}

type ReportRetentionJobParams struct {
	Logger    *logger.Logger
	Archive   reportPurger
	Retention time.Duration
	BatchSize int
	Now       func() time.Time
}

// NewReportRetentionJob deletes report artifacts and rows generated before
// now minus the retention window. A zero retention disables the job.
func NewReportRetentionJob(params ReportRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Archive == nil {
		return nil, fmt.Errorf("report archive required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReportBatch
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &reportRetentionJob{
		logg:      params.Logger,
		archive:   params.Archive,
		retention: params.Retention,
		batch:     batch,
		now:       now,
	}, nil
}

type reportRetentionJob struct {
	logg      *logger.Logger
	archive   reportPurger
	retention time.Duration
	batch     int
	now       func() time.Time
}

func (j *reportRetentionJob) Name() string { return "report-retention" }

func (j *reportRetentionJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		j.logg.Info(ctx, "report retention disabled")
		return nil
	}
	cutoff := j.now().UTC().Add(-j.retention)
	total := 0
	for i := 0; i < maxReportBatches; i++ {
		removed, err := j.archive.PurgeOlderThan(ctx, cutoff, j.batch)
		total += removed
		if err != nil {
			return fmt.Errorf("report retention after %d removals: %w", total, err)
		}
		if removed < j.batch {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"reports_removed": total,
	}), "report retention cleanup complete")
	return nil
}
