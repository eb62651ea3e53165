package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/pkg/logger"
)

var retentionNow = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

func TestOutboxRetentionCutoff(t *testing.T) {
	cases := map[string]struct {
		days int
		want time.Time
	}{
		"default window": {days: 0, want: retentionNow.AddDate(0, 0, -outboxRetentionDays)},
		"configured":     {days: 7, want: retentionNow.AddDate(0, 0, -7)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			purger := &stubPurger{}
			job := retentionJob(t, OutboxRetentionJobParams{Repository: purger, Retention: tc.days})

			require.NoError(t, job.Run(context.Background()))
			assert.Equal(t, 1, purger.calls)
			assert.True(t, purger.cutoff.Equal(tc.want), "cutoff %s", purger.cutoff)
		})
	}
}

func TestOutboxRetentionPurgeFailure(t *testing.T) {
	boom := errors.New("boom")
	job := retentionJob(t, OutboxRetentionJobParams{Repository: &stubPurger{err: boom}})

	assert.ErrorIs(t, job.Run(context.Background()), boom)
}

func TestOutboxRetentionDLQReport(t *testing.T) {
	t.Run("failure is swallowed", func(t *testing.T) {
		dlq := &stubDLQReporter{err: errors.New("dlq down")}
		job := retentionJob(t, OutboxRetentionJobParams{Repository: &stubPurger{}, DLQ: dlq})

		require.NoError(t, job.Run(context.Background()))
		assert.Equal(t, 1, dlq.calls)
	})
	t.Run("counts are read", func(t *testing.T) {
		dlq := &stubDLQReporter{counts: map[string]int64{"max_attempts": 2, "decode_failed": 1}}
		job := retentionJob(t, OutboxRetentionJobParams{Repository: &stubPurger{}, DLQ: dlq})

		require.NoError(t, job.Run(context.Background()))
		assert.Equal(t, 1, dlq.calls)
	})
}

func TestNewOutboxRetentionJobRequiresDeps(t *testing.T) {
	full := OutboxRetentionJobParams{Logger: logger.Nop(), DB: passthroughTx{}, Repository: &stubPurger{}}
	for name, mutate := range map[string]func(*OutboxRetentionJobParams){
		"logger":     func(p *OutboxRetentionJobParams) { p.Logger = nil },
		"db":         func(p *OutboxRetentionJobParams) { p.DB = nil },
		"repository": func(p *OutboxRetentionJobParams) { p.Repository = nil },
	} {
		params := full
		mutate(&params)
		_, err := NewOutboxRetentionJob(params)
		assert.Error(t, err, name)
	}
}

func retentionJob(t *testing.T, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.Logger = logger.Nop()
	params.DB = passthroughTx{}
	job, err := NewOutboxRetentionJob(params)
	require.NoError(t, err)
	concrete := job.(*outboxRetentionJob)
	concrete.now = func() time.Time { return retentionNow }
	return concrete
}

type stubPurger struct {
	cutoff time.Time
	calls  int
	err    error
}

func (s *stubPurger) DeletePublishedBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	if s.err != nil {
		return 0, s.err
	}
	return 7, nil
}

type stubDLQReporter struct {
	counts map[string]int64
	err    error
	calls  int
}

func (s *stubDLQReporter) CountByReason(context.Context) (map[string]int64, error) {
	s.calls++
	return s.counts, s.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
