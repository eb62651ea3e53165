package cron

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	day                 = 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type dlqReporter interface {
	CountByReason(ctx context.Context) (map[string]int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository publishedPurger
	// DLQ is optional. When set, each run also logs parked events by reason.
	DLQ       dlqReporter
	Retention int
}

type outboxRetentionJob struct {
	logg   *logger.Logger
	db     txRunner
	purger publishedPurger
	dlq    dlqReporter
	keep   time.Duration
	now    func() time.Time
}

// NewOutboxRetentionJob purges published outbox rows older than the
// retention window. Unpublished rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("outbox retention: logger required")
	case params.DB == nil:
		return nil, errors.New("outbox retention: db required")
	case params.Repository == nil:
		return nil, errors.New("outbox retention: repository required")
	}
	days := params.Retention
	if days <= 0 {
		days = outboxRetentionDays
	}
	return &outboxRetentionJob{
		logg:   params.Logger,
		db:     params.DB,
		purger: params.Repository,
		dlq:    params.DLQ,
		keep:   time.Duration(days) * day,
		now:    time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.keep)

	var purged int64
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
		purged, err = j.purger.DeletePublishedBefore(tx, cutoff)
		return err
	}); err != nil {
		return fmt.Errorf("purge published outbox rows: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": int(j.keep / day),
		"rows_deleted":   purged,
	}), "outbox retention cleanup complete")

	j.reportDLQ(ctx)
	return nil
}

// reportDLQ never fails the run.
func (j *outboxRetentionJob) reportDLQ(ctx context.Context) {
	if j.dlq == nil {
		return
	}
	counts, err := j.dlq.CountByReason(ctx)
	if err != nil {
		j.logg.Warn(ctx, fmt.Sprintf("outbox dlq report failed: %v", err))
		return
	}
	if len(counts) == 0 {
		return
	}
	fields := make(map[string]any, len(counts))
	for _, reason := range slices.Sorted(maps.Keys(counts)) {
		fields["dlq_"+reason] = counts[reason]
	}
	j.logg.Warn(j.logg.WithFields(ctx, fields), "outbox dlq holds parked events")
}
