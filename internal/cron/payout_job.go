package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nordicloop/nordicloop-backend/internal/payouts"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type payoutExecutor interface {
	ExecuteDue(ctx context.Context, now time.Time) (payouts.RunStats, error)
}

// PayoutJobParams configure the payout funding job.
type PayoutJobParams struct {
	Logger  *logger.Logger
	Payouts payoutExecutor
}

// NewPayoutJob builds the job that funds due payout schedules.
func NewPayoutJob(params PayoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payouts service required")
	}
	return &payoutJob{
		logg:    params.Logger,
		payouts: params.Payouts,
		now:     time.Now,
	}, nil
}

type payoutJob struct {
	logg    *logger.Logger
	payouts payoutExecutor
	now     func() time.Time
}

func (j *payoutJob) Name() string { return "payout-run" }

func (j *payoutJob) Run(ctx context.Context) error {
	stats, err := j.payouts.ExecuteDue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("payout run: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"examined": stats.Examined,
		"funded":   stats.Funded,
		"deferred": stats.Deferred,
		"failed":   stats.Failed,
	})
	j.logg.Info(logCtx, "payout run complete")
	return nil
}
