package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordicloop/nordicloop-backend/internal/accounts"
	"github.com/nordicloop/nordicloop-backend/internal/bids"
	"github.com/nordicloop/nordicloop-backend/internal/commission"
	"github.com/nordicloop/nordicloop-backend/internal/gateway"
	"github.com/nordicloop/nordicloop-backend/internal/ledger"
	"github.com/nordicloop/nordicloop-backend/internal/notifications"
	"github.com/nordicloop/nordicloop-backend/internal/payouts"
	"github.com/nordicloop/nordicloop-backend/internal/subscriptions"
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
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateIntentInput starts payment collection for a won bid.
type CreateIntentInput struct {
	BidID          uuid.UUID
	BuyerCompanyID uuid.UUID
}

// Service orchestrates the payment intent lifecycle from creation
// through settlement.
type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*models.PaymentIntent, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PaymentIntent, string, error)
	Complete(ctx context.Context, snapshot *gateway.Intent) error
	Fail(ctx context.Context, gatewayIntentID, failureCode, failureMessage string) error
	Cancel(ctx context.Context, id uuid.UUID, buyerCompanyID uuid.UUID) (*models.PaymentIntent, error)
	Confirm(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
}

// ServiceParams groups dependencies for the payments service.
type ServiceParams struct {
	Repo              Repository
	BidsRepo          bids.Repository
	AccountsRepo      accounts.Repository
	Subscriptions     subscriptions.Service
	Gateway           gateway.Gateway
	Ledger            ledger.Service
	Payouts           payouts.Service
	Notifications     notifications.Service
	Outbox            outboxEmitter
	TransactionRunner txRunner
	Logger            *logger.Logger
}

type service struct {
	repo         Repository
	bidsRepo     bids.Repository
	accountsRepo accounts.Repository
	plans        subscriptions.Service
	gateway      gateway.Gateway
	ledger       ledger.Service
	payouts      payouts.Service
	notifier     notifications.Service
	outbox       outboxEmitter
	txRunner     txRunner
	logg         *logger.Logger
}

// NewService wires the payments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.BidsRepo == nil {
		return nil, fmt.Errorf("bids repository required")
	}
	if params.AccountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payouts service required")
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
	return &service{
		repo:         params.Repo,
		bidsRepo:     params.BidsRepo,
		accountsRepo: params.AccountsRepo,
		plans:        params.Subscriptions,
		gateway:      params.Gateway,
		ledger:       params.Ledger,
		payouts:      params.Payouts,
		notifier:     params.Notifications,
		outbox:       params.Outbox,
		txRunner:     params.TransactionRunner,
		logg:         params.Logger,
	}, nil
}

// CreateIntent opens payment collection for a won bid. Calling it again
// while an intent is open returns the existing one with its client
// secret, so a buyer refreshing checkout never pays twice. The
// commission rate is computed from the seller's current plan and frozen
// on the row.
func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*models.PaymentIntent, error) {
	if input.BidID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid id is required")
	}
	if input.BuyerCompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer company id is required")
	}

	if existing, err := s.repo.FindOpenByBidID(ctx, input.BidID); err == nil {
		if existing.BuyerCompanyID != input.BuyerCompanyID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bid belongs to another buyer")
		}
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup open intent")
	}

	bid, err := s.bidsRepo.FindByID(ctx, input.BidID)
	if err != nil {
		if errors.Is(err, bids.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
	}
	if bid.BuyerCompanyID != input.BuyerCompanyID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bid belongs to another buyer")
	}
	if !bid.Status.IsPayable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("bid is %s, only won bids are payable", bid.Status))
	}

	account, err := s.accountsRepo.FindByCompanyID(ctx, bid.SellerCompanyID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "seller has no payout account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller account")
	}
	if !account.Status.CanReceiveTransfers() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "seller account cannot receive payments yet")
	}

	plan, err := s.plans.PlanFor(ctx, bid.SellerCompanyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve seller plan")
	}
	totalCents := bid.TotalCents()
	split, err := commission.Calculate(totalCents, plan)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "calculate commission")
	}

	intent := &models.PaymentIntent{
		BidID:             bid.ID,
		BuyerCompanyID:    bid.BuyerCompanyID,
		SellerCompanyID:   bid.SellerCompanyID,
		AmountCents:       totalCents,
		CommissionCents:   split.CommissionCents,
		SellerAmountCents: split.SellerCents,
		CommissionRate:    split.Rate,
		Currency:          bid.Currency,
		Status:            enums.PaymentIntentStatusRequiresPaymentMethod,
	}
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, intent)
	})
	if err != nil {
		// The partial unique index rejects a concurrent create; the
		// loser picks up the winner's row.
		if existing, lookupErr := s.repo.FindOpenByBidID(ctx, input.BidID); lookupErr == nil {
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	created, err := s.gateway.CreateIntent(ctx, gateway.CreateIntentInput{
		ReferenceID:        intent.ID.String(),
		AmountCents:        intent.AmountCents,
		CommissionCents:    intent.CommissionCents,
		Currency:           intent.Currency,
		DestinationAccount: account.GatewayAccountID,
		Description:        fmt.Sprintf("Nordic Loop settlement for bid %s", bid.ID),
		Metadata: map[string]string{
			"bid_id":            bid.ID.String(),
			"payment_intent_id": intent.ID.String(),
		},
	})
	if err != nil {
		s.abandonIntent(ctx, intent, err)
		if gateway.KindOf(err) == gateway.FailureInsufficientFunds {
			return nil, pkgerrors.Wrap(pkgerrors.CodePaymentDeclined, err, "gateway declined intent")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway intent")
	}

	intent.GatewayIntentID = &created.ID
	intent.GatewayClientSecret = &created.ClientSecret
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Save(ctx, intent)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist gateway intent")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_intent_id": intent.ID.String(),
		"bid_id":            bid.ID.String(),
		"amount_cents":      intent.AmountCents,
		"commission_cents":  intent.CommissionCents,
		"commission_rate":   intent.CommissionRate.StringFixed(2),
	})
	s.logg.Info(logCtx, "payment intent created")
	return intent, nil
}

// notify writes a notification without letting a failure escape: a
// broken notification store must never roll back a settled payment.
func (s *service) notify(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) {
	if err := s.notifier.NotifyTx(ctx, tx, input); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"company_id":        input.CompanyID.String(),
			"notification_type": string(input.Type),
		})
		s.logg.Error(logCtx, "notification write failed", err)
	}
}

// abandonIntent marks a just-created row failed after the gateway
// rejected its creation, keeping the local state honest.
func (s *service) abandonIntent(ctx context.Context, intent *models.PaymentIntent, cause error) {
	code := string(gateway.KindOf(cause))
	msg := cause.Error()
	intent.Status = enums.PaymentIntentStatusFailed
	intent.FailureCode = &code
	intent.FailureMessage = &msg
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Save(ctx, intent)
	})
	if err != nil {
		logCtx := s.logg.WithField(ctx, "payment_intent_id", intent.ID.String())
		s.logg.Error(logCtx, "failed to mark abandoned intent", err)
	}
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id is required")
	}
	intent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	return intent, nil
}

// ListByCompany returns a page of intents where the company is buyer or
// seller, plus the cursor for the next page.
func (s *service) ListByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PaymentIntent, string, error) {
	if companyID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}

	intents, err := s.repo.ListByCompanyID(ctx, companyID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment intents")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(intents) > limit {
		intents = intents[:limit]
		last := intents[len(intents)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return intents, nextCursor, nil
}

// Complete settles a succeeded gateway intent: one row-locked
// transaction marks the intent succeeded, flips the bid to paid, writes
// the ledger entries, schedules the payout, and notifies both parties.
// Replays of the same snapshot are no-ops.
func (s *service) Complete(ctx context.Context, snapshot *gateway.Intent) error {
	if snapshot == nil || snapshot.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "intent snapshot is required")
	}
	if snapshot.Status != enums.PaymentIntentStatusSucceeded {
		return pkgerrors.New(pkgerrors.CodeValidation, "snapshot has not succeeded")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := repo.FindByGatewayIntentIDForUpdate(ctx, snapshot.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
		}
		if intent.Status == enums.PaymentIntentStatusSucceeded {
			return nil
		}
		if !intent.Status.CanTransitionTo(enums.PaymentIntentStatusSucceeded) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot settle intent in status %s", intent.Status))
		}
		if snapshot.AmountCents != 0 && snapshot.AmountCents != intent.AmountCents {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "gateway amount does not match intent")
		}

		now := time.Now().UTC()
		intent.Status = enums.PaymentIntentStatusSucceeded
		intent.SucceededAt = &now
		intent.FailureCode = nil
		intent.FailureMessage = nil
		if err := repo.Save(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment intent")
		}

		if _, err := s.bidsRepo.WithTx(tx).FindByIDForUpdate(ctx, intent.BidID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock bid")
		}
		if err := s.bidsRepo.WithTx(tx).MarkPaid(ctx, intent.BidID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark bid paid")
		}

		if _, err := s.ledger.Materialize(ctx, tx, intent); err != nil {
			return err
		}
		if _, err := s.payouts.ScheduleTx(ctx, tx, intent); err != nil {
			return err
		}

		s.notify(ctx, tx, notifications.NotifyInput{
			CompanyID: intent.BuyerCompanyID,
			Type:      enums.NotificationTypePaymentReceived,
			Title:     "Payment received",
			Message:   "Your payment has been received and the sale is complete.",
		})
		s.notify(ctx, tx, notifications.NotifyInput{
			CompanyID: intent.SellerCompanyID,
			Type:      enums.NotificationTypeSaleCompleted,
			Title:     "Sale completed",
			Message:   "The buyer has paid. Your proceeds are scheduled for payout.",
		})

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSucceeded,
			AggregateType: enums.AggregatePaymentIntent,
			AggregateID:   intent.ID,
			Data: map[string]any{
				"bid_id":              intent.BidID,
				"buyer_company_id":    intent.BuyerCompanyID,
				"seller_company_id":   intent.SellerCompanyID,
				"amount_cents":        intent.AmountCents,
				"commission_cents":    intent.CommissionCents,
				"seller_amount_cents": intent.SellerAmountCents,
				"currency":            intent.Currency,
			},
		})
	})
}

// Fail records a gateway payment failure. A failure report arriving
// after settlement is stale and ignored.
func (s *service) Fail(ctx context.Context, gatewayIntentID, failureCode, failureMessage string) error {
	if gatewayIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway intent id is required")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := repo.FindByGatewayIntentIDForUpdate(ctx, gatewayIntentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
		}
		if intent.Status == enums.PaymentIntentStatusFailed {
			return nil
		}
		if !intent.Status.CanTransitionTo(enums.PaymentIntentStatusFailed) {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"payment_intent_id": intent.ID.String(),
				"status":            string(intent.Status),
			})
			s.logg.Warn(logCtx, "stale failure report ignored")
			return nil
		}

		intent.Status = enums.PaymentIntentStatusFailed
		if failureCode != "" {
			intent.FailureCode = &failureCode
		}
		if failureMessage != "" {
			intent.FailureMessage = &failureMessage
		}
		if err := repo.Save(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment intent")
		}

		s.notify(ctx, tx, notifications.NotifyInput{
			CompanyID: intent.BuyerCompanyID,
			Type:      enums.NotificationTypePaymentFailed,
			Title:     "Payment failed",
			Message:   "Your payment could not be completed. Please try again.",
		})

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePaymentIntent,
			AggregateID:   intent.ID,
			Data: map[string]any{
				"bid_id":          intent.BidID,
				"failure_code":    failureCode,
				"failure_message": failureMessage,
			},
		})
	})
}

// Cancel aborts an open intent at the buyer's request.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, buyerCompanyID uuid.UUID) (*models.PaymentIntent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id is required")
	}

	intent, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if buyerCompanyID != uuid.Nil && intent.BuyerCompanyID != buyerCompanyID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "intent belongs to another buyer")
	}
	if intent.Status == enums.PaymentIntentStatusCanceled {
		return intent, nil
	}
	if !intent.IsOpen() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot cancel intent in status %s", intent.Status))
	}

	if intent.GatewayIntentID != nil {
		if _, err := s.gateway.CancelIntent(ctx, *intent.GatewayIntentID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel gateway intent")
		}
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment intent")
		}
		if locked.Status == enums.PaymentIntentStatusCanceled {
			intent = locked
			return nil
		}
		if !locked.Status.CanTransitionTo(enums.PaymentIntentStatusCanceled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot cancel intent in status %s", locked.Status))
		}
		now := time.Now().UTC()
		locked.Status = enums.PaymentIntentStatusCanceled
		locked.CanceledAt = &now
		if err := repo.Save(ctx, locked); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment intent")
		}
		intent = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// Confirm reconciles an intent against the gateway's current state.
// Checkout frontends call it when the webhook is slow; it routes the
// gateway state through the same transitions the webhook would.
func (s *service) Confirm(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	intent, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if intent.Status.IsTerminal() || intent.GatewayIntentID == nil {
		return intent, nil
	}

	snapshot, err := s.gateway.GetIntent(ctx, *intent.GatewayIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch gateway intent")
	}

	switch snapshot.Status {
	case enums.PaymentIntentStatusSucceeded:
		if err := s.Complete(ctx, snapshot); err != nil {
			return nil, err
		}
	case enums.PaymentIntentStatusFailed:
		if err := s.Fail(ctx, snapshot.ID, snapshot.FailureCode, snapshot.FailureDetail); err != nil {
			return nil, err
		}
	case enums.PaymentIntentStatusCanceled:
		// Already canceled on the gateway side, only the local row moves.
		err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			locked, err := repo.FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if locked.Status.CanTransitionTo(enums.PaymentIntentStatusCanceled) {
				now := time.Now().UTC()
				locked.Status = enums.PaymentIntentStatusCanceled
				locked.CanceledAt = &now
				return repo.Save(ctx, locked)
			}
			return nil
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment intent")
		}
	case enums.PaymentIntentStatusProcessing:
		if intent.Status == enums.PaymentIntentStatusRequiresPaymentMethod {
			err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
				repo := s.repo.WithTx(tx)
				locked, err := repo.FindByIDForUpdate(ctx, id)
				if err != nil {
					return err
				}
				if locked.Status.CanTransitionTo(enums.PaymentIntentStatusProcessing) {
					locked.Status = enums.PaymentIntentStatusProcessing
					return repo.Save(ctx, locked)
				}
				return nil
			})
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment intent")
			}
		}
	}
	return s.Get(ctx, id)
}
