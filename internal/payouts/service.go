package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordicloop/nordicloop-backend/internal/accounts"
	"github.com/nordicloop/nordicloop-backend/internal/gateway"
	"github.com/nordicloop/nordicloop-backend/internal/ledger"
	"github.com/nordicloop/nordicloop-backend/internal/notifications"
	"github.com/nordicloop/nordicloop-backend/pkg/config"
	"github.com/nordicloop/nordicloop-backend/pkg/db/models"
	"github.com/nordicloop/nordicloop-backend/pkg/enums"
	pkgerrors "github.com/nordicloop/nordicloop-backend/pkg/errors"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/outbox"
	"github.com/nordicloop/nordicloop-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RunStats summarizes one payout worker pass.
type RunStats struct {
	Examined int
	Funded   int
	Deferred int
	Failed   int
}

// Service owns the payout lifecycle: scheduling seller proceeds after
// the hold window, funding due payouts, and applying gateway outcomes.
type Service interface {
	ScheduleTx(ctx context.Context, tx *gorm.DB, intent *models.PaymentIntent) (*models.PayoutSchedule, error)
	ExecuteDue(ctx context.Context, now time.Time) (RunStats, error)
	MarkPaid(ctx context.Context, gatewayPayoutID string, paidAt time.Time) error
	MarkFailed(ctx context.Context, gatewayPayoutID string, failureMessage string) error
	GetByIntent(ctx context.Context, intentID uuid.UUID) (*models.PayoutSchedule, error)
	ListBySeller(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PayoutSchedule, string, error)
}

// ServiceParams groups dependencies for the payouts service.
type ServiceParams struct {
	Repo              Repository
	AccountsRepo      accounts.Repository
	Gateway           gateway.Gateway
	Ledger            ledger.Service
	Notifications     notifications.Service
	Outbox            outboxEmitter
	TransactionRunner txRunner
	Config            config.PayoutConfig
	Logger            *logger.Logger
}

type service struct {
	repo         Repository
	accountsRepo accounts.Repository
	gateway      gateway.Gateway
	ledger       ledger.Service
	notifier     notifications.Service
	outbox       outboxEmitter
	txRunner     txRunner
	cfg          config.PayoutConfig
	logg         *logger.Logger
}

// NewService wires the payouts service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.AccountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Config.HoldDays <= 0 {
		return nil, fmt.Errorf("hold days must be positive")
	}
	if params.Config.MaxFundingAttempts <= 0 {
		return nil, fmt.Errorf("max funding attempts must be positive")
	}
	return &service{
		repo:         params.Repo,
		accountsRepo: params.AccountsRepo,
		gateway:      params.Gateway,
		ledger:       params.Ledger,
		notifier:     params.Notifications,
		outbox:       params.Outbox,
		txRunner:     params.TransactionRunner,
		cfg:          params.Config,
		logg:         params.Logger,
	}, nil
}

// ScheduleTx creates the payout schedule for a succeeded intent inside
// the caller's transaction. Re-scheduling the same intent returns the
// existing row.
func (s *service) ScheduleTx(ctx context.Context, tx *gorm.DB, intent *models.PaymentIntent) (*models.PayoutSchedule, error) {
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent is required")
	}
	if intent.Status != enums.PaymentIntentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "intent has not succeeded")
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindByPaymentIntentID(ctx, intent.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payout schedule")
	}
	if existing != nil {
		return existing, nil
	}

	scheduledFor := time.Now().UTC().AddDate(0, 0, s.cfg.HoldDays)
	schedule := &models.PayoutSchedule{
		PaymentIntentID: intent.ID,
		SellerCompanyID: intent.SellerCompanyID,
		AmountCents:     intent.SellerAmountCents,
		Currency:        intent.Currency,
		Status:          enums.PayoutStatusScheduled,
		ScheduledFor:    scheduledFor,
	}
	if err := repo.Create(ctx, schedule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout schedule")
	}

	s.notify(ctx, tx, notifications.NotifyInput{
		CompanyID: intent.SellerCompanyID,
		Type:      enums.NotificationTypePayoutScheduled,
		Title:     "Payout scheduled",
		Message:   fmt.Sprintf("Your proceeds will be paid out on %s.", scheduledFor.Format("2006-01-02")),
	})

	if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPayoutScheduled,
		AggregateType: enums.AggregatePayout,
		AggregateID:   schedule.ID,
		Data: map[string]any{
			"payment_intent_id": intent.ID,
			"seller_company_id": intent.SellerCompanyID,
			"amount_cents":      schedule.AmountCents,
			"currency":          schedule.Currency,
			"scheduled_for":     schedule.ScheduledFor,
		},
	}); err != nil {
		return nil, err
	}
	return schedule, nil
}

// ExecuteDue funds one batch of due payouts. Each schedule gets its own
// transaction so a gateway failure on one never rolls back the rest.
func (s *service) ExecuteDue(ctx context.Context, now time.Time) (RunStats, error) {
	stats := RunStats{}

	var due []models.PayoutSchedule
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		batch, err := s.repo.WithTx(tx).FindDueForUpdate(ctx, now, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		due = batch
		return nil
	})
	if err != nil {
		return stats, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due payouts")
	}

	for i := range due {
		stats.Examined++
		outcome, err := s.fund(ctx, due[i].ID, now)
		if err != nil {
			logCtx := s.logg.WithField(ctx, "payout_schedule_id", due[i].ID.String())
			s.logg.Error(logCtx, "payout funding pass failed", err)
			stats.Failed++
			continue
		}
		switch outcome {
		case fundingFunded:
			stats.Funded++
		case fundingDeferred:
			stats.Deferred++
		case fundingFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

type fundingOutcome int

const (
	fundingSkipped fundingOutcome = iota
	fundingFunded
	fundingDeferred
	fundingFailed
)

func (s *service) fund(ctx context.Context, scheduleID uuid.UUID, now time.Time) (fundingOutcome, error) {
	var outcome fundingOutcome
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		schedule, err := repo.FindByID(ctx, scheduleID)
		if err != nil {
			return err
		}
		if schedule.Status != enums.PayoutStatusScheduled {
			outcome = fundingSkipped
			return nil
		}

		account, err := s.accountsRepo.WithTx(tx).FindByCompanyID(ctx, schedule.SellerCompanyID)
		if err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				return s.deferFunding(ctx, tx, schedule, now, "seller has no gateway account", &outcome)
			}
			return err
		}
		if !account.Status.CanReceiveTransfers() {
			return s.deferFunding(ctx, tx, schedule, now, "seller account cannot receive transfers", &outcome)
		}

		payout, err := s.gateway.CreatePayout(ctx, gateway.CreatePayoutInput{
			ReferenceID:    schedule.ID.String(),
			GatewayAccount: account.GatewayAccountID,
			AmountCents:    schedule.AmountCents,
			Currency:       schedule.Currency,
			Description:    "Nordic Loop seller proceeds",
		})
		if err != nil {
			return s.applyFundingError(ctx, tx, schedule, now, err, &outcome)
		}

		schedule.Status = enums.PayoutStatusProcessing
		schedule.GatewayPayoutID = &payout.ID
		schedule.AttemptCount++
		schedule.NextAttemptAt = nil
		schedule.LastError = nil
		if err := repo.Save(ctx, schedule); err != nil {
			return err
		}
		if err := s.ledger.MarkPayoutInTransit(ctx, tx, schedule.PaymentIntentID, payout.ID); err != nil {
			return err
		}
		outcome = fundingFunded
		return nil
	})
	return outcome, err
}

// applyFundingError decides whether a gateway failure defers or kills
// the payout. Insufficient balance backs off until the attempt budget
// runs out; transient failures wait for the next run without consuming
// an attempt. Capability and cross-border rejections are never retried
// automatically: the schedule fails and is flagged for an operator.
func (s *service) applyFundingError(ctx context.Context, tx *gorm.DB, schedule *models.PayoutSchedule, now time.Time, cause error, outcome *fundingOutcome) error {
	msg := cause.Error()
	switch gateway.KindOf(cause) {
	case gateway.FailureInsufficientFunds:
		schedule.AttemptCount++
		if schedule.AttemptCount >= s.cfg.MaxFundingAttempts {
			return s.failTx(ctx, tx, schedule, msg, outcome)
		}
		return s.backoff(ctx, tx, schedule, now, msg, outcome)
	case gateway.FailureTransient:
		schedule.LastError = &msg
		if err := s.repo.WithTx(tx).Save(ctx, schedule); err != nil {
			return err
		}
		*outcome = fundingDeferred
		return nil
	default:
		return s.failTx(ctx, tx, schedule, msg, outcome)
	}
}

// notify writes a notification without letting a failure escape: a
// broken notification store must never roll back a payout transition.
func (s *service) notify(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) {
	if err := s.notifier.NotifyTx(ctx, tx, input); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"company_id":        input.CompanyID.String(),
			"notification_type": string(input.Type),
		})
		s.logg.Error(logCtx, "notification write failed", err)
	}
}

func (s *service) deferFunding(ctx context.Context, tx *gorm.DB, schedule *models.PayoutSchedule, now time.Time, reason string, outcome *fundingOutcome) error {
	schedule.AttemptCount++
	if schedule.AttemptCount >= s.cfg.MaxFundingAttempts {
		return s.failTx(ctx, tx, schedule, reason, outcome)
	}
	return s.backoff(ctx, tx, schedule, now, reason, outcome)
}

func (s *service) backoff(ctx context.Context, tx *gorm.DB, schedule *models.PayoutSchedule, now time.Time, reason string, outcome *fundingOutcome) error {
	next := now.Add(s.cfg.FundingRetryBackoff)
	schedule.NextAttemptAt = &next
	schedule.LastError = &reason
	if err := s.repo.WithTx(tx).Save(ctx, schedule); err != nil {
		return err
	}
	*outcome = fundingDeferred
	return nil
}

func (s *service) failTx(ctx context.Context, tx *gorm.DB, schedule *models.PayoutSchedule, reason string, outcome *fundingOutcome) error {
	schedule.Status = enums.PayoutStatusFailed
	schedule.RequiresManualProcessing = true
	schedule.LastError = &reason
	schedule.NextAttemptAt = nil
	if err := s.repo.WithTx(tx).Save(ctx, schedule); err != nil {
		return err
	}
	if err := s.ledger.MarkPayoutFailed(ctx, tx, schedule.PaymentIntentID); err != nil {
		return err
	}
	s.notify(ctx, tx, notifications.NotifyInput{
		CompanyID: schedule.SellerCompanyID,
		Type:      enums.NotificationTypePayoutFailed,
		Title:     "Payout failed",
		Message:   "We could not transfer your proceeds. Our team has been notified.",
	})
	if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPayoutFailed,
		AggregateType: enums.AggregatePayout,
		AggregateID:   schedule.ID,
		Data: map[string]any{
			"payment_intent_id":          schedule.PaymentIntentID,
			"seller_company_id":          schedule.SellerCompanyID,
			"reason":                     reason,
			"requires_manual_processing": true,
		},
	}); err != nil {
		return err
	}
	*outcome = fundingFailed
	return nil
}

// MarkPaid applies a payout.paid webhook. Replays are no-ops.
func (s *service) MarkPaid(ctx context.Context, gatewayPayoutID string, paidAt time.Time) error {
	if gatewayPayoutID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway payout id is required")
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		schedule, err := repo.FindByGatewayPayoutID(ctx, gatewayPayoutID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout schedule not found")
			}
			return err
		}
		if schedule.Status == enums.PayoutStatusPaid {
			return nil
		}
		if schedule.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout already terminal")
		}

		schedule.Status = enums.PayoutStatusPaid
		schedule.PaidAt = &paidAt
		if err := repo.Save(ctx, schedule); err != nil {
			return err
		}
		if err := s.ledger.MarkPayoutCompleted(ctx, tx, schedule.PaymentIntentID, paidAt); err != nil {
			return err
		}
		s.notify(ctx, tx, notifications.NotifyInput{
			CompanyID: schedule.SellerCompanyID,
			Type:      enums.NotificationTypePayoutPaid,
			Title:     "Payout sent",
			Message:   "Your proceeds are on the way to your bank account.",
		})
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutPaid,
			AggregateType: enums.AggregatePayout,
			AggregateID:   schedule.ID,
			Data: map[string]any{
				"payment_intent_id": schedule.PaymentIntentID,
				"seller_company_id": schedule.SellerCompanyID,
				"paid_at":           paidAt,
			},
		})
	})
}

// MarkFailed applies a payout.failed webhook.
func (s *service) MarkFailed(ctx context.Context, gatewayPayoutID string, failureMessage string) error {
	if gatewayPayoutID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway payout id is required")
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		schedule, err := s.repo.WithTx(tx).FindByGatewayPayoutID(ctx, gatewayPayoutID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout schedule not found")
			}
			return err
		}
		if schedule.Status == enums.PayoutStatusFailed {
			return nil
		}
		if schedule.Status == enums.PayoutStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout already paid")
		}
		var outcome fundingOutcome
		return s.failTx(ctx, tx, schedule, failureMessage, &outcome)
	})
}

func (s *service) GetByIntent(ctx context.Context, intentID uuid.UUID) (*models.PayoutSchedule, error) {
	if intentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id is required")
	}
	schedule, err := s.repo.FindByPaymentIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout schedule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payout schedule")
	}
	return schedule, nil
}

// ListBySeller returns a page of the seller's payout schedules plus the
// cursor for the next page.
func (s *service) ListBySeller(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PayoutSchedule, string, error) {
	if companyID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}

	schedules, err := s.repo.ListBySellerCompanyID(ctx, companyID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout schedules")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(schedules) > limit {
		schedules = schedules[:limit]
		last := schedules[len(schedules)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return schedules, nextCursor, nil
}
