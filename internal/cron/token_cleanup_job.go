package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/gosha22008/orders-backend/pkg/logger"
)

type TokenCleanupJobParams struct {
	Logger     *logger.Logger
	Repository expiredTokenRepo
}

type expiredTokenRepo interface {
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// NewTokenCleanupJob removes password reset tokens past their expiry.
func NewTokenCleanupJob(params TokenCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("token repository required")
	}
	return &tokenCleanupJob{logg: params.Logger, repo: params.Repository, now: time.Now}, nil
}

type tokenCleanupJob struct {
	logg *logger.Logger
	repo expiredTokenRepo
	now  func() time.Time
}

func (j *tokenCleanupJob) Name() string { return "reset-token-cleanup" }

func (j *tokenCleanupJob) Run(ctx context.Context) error {
	deleted, err := j.repo.DeleteExpiredResetTokens(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("delete expired reset tokens: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows_deleted", deleted), "reset token cleanup complete")
	return nil
}
