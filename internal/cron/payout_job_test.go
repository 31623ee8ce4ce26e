package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nordicloop/nordicloop-backend/internal/payouts"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
)

type fakePayoutExecutor struct {
	lastRun time.Time
	stats   payouts.RunStats
	err     error
	called  int
}

func (f *fakePayoutExecutor) ExecuteDue(ctx context.Context, now time.Time) (payouts.RunStats, error) {
	f.called++
	f.lastRun = now
	if f.err != nil {
		return payouts.RunStats{}, f.err
	}
	return f.stats, nil
}

func newPayoutJob(t *testing.T, executor *fakePayoutExecutor) *payoutJob {
	t.Helper()
	jobIface, err := NewPayoutJob(PayoutJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Payouts: executor,
	})
	if err != nil {
		t.Fatalf("NewPayoutJob: %v", err)
	}
	job, ok := jobIface.(*payoutJob)
	if !ok {
		t.Fatalf("expected payoutJob, got %T", jobIface)
	}
	return job
}

func TestPayoutJobExecutesDueSchedules(t *testing.T) {
	now := time.Date(2026, 2, 14, 6, 0, 0, 0, time.UTC)
	executor := &fakePayoutExecutor{stats: payouts.RunStats{Examined: 3, Funded: 2, Deferred: 1}}
	job := newPayoutJob(t, executor)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if executor.called != 1 {
		t.Fatalf("expected one run, got %d", executor.called)
	}
	if !executor.lastRun.Equal(now) {
		t.Fatalf("expected run at %s, got %s", now, executor.lastRun)
	}
}

func TestPayoutJobPropagatesErrors(t *testing.T) {
	executor := &fakePayoutExecutor{err: errors.New("gateway down")}
	job := newPayoutJob(t, executor)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
