package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/gosha22008/orders-backend/pkg/logger"
)

const (
	defaultImportStaleAfter = time.Hour
	staleImportMessage      = "import abandoned: worker did not finish in time"
)

// ImportReaperJobParams configure the stale import reaper.
type ImportReaperJobParams struct {
	Logger     *logger.Logger
	Repository staleImportRepo
	StaleAfter time.Duration
}

type staleImportRepo interface {
	FailStale(ctx context.Context, cutoff time.Time, message string, at time.Time) (int64, error)
}

// NewImportReaperJob fails import jobs stuck in pending or running, which
// happens when a worker dies mid-import.
func NewImportReaperJob(params ImportReaperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("import job repository required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultImportStaleAfter
	}
	return &importReaperJob{
		logg:       params.Logger,
		repo:       params.Repository,
		staleAfter: staleAfter,
		now:        time.Now,
	}, nil
}

type importReaperJob struct {
	logg       *logger.Logger
	repo       staleImportRepo
	staleAfter time.Duration
	now        func() time.Time
}

func (j *importReaperJob) Name() string { return "import-reaper" }

func (j *importReaperJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.staleAfter)
	failed, err := j.repo.FailStale(ctx, cutoff, staleImportMessage, now)
	if err != nil {
		return fmt.Errorf("fail stale imports: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":      cutoff,
		"jobs_failed": failed,
	})
	if failed > 0 {
		j.logg.Warn(logCtx, "stale import jobs failed")
		return nil
	}
	j.logg.Info(logCtx, "no stale import jobs")
	return nil
}
