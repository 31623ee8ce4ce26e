package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordicloop/nordicloop-backend/internal/gateway"
	"github.com/nordicloop/nordicloop-backend/internal/notifications"
	"github.com/nordicloop/nordicloop-backend/pkg/db/models"
	"github.com/nordicloop/nordicloop-backend/pkg/enums"
	pkgerrors "github.com/nordicloop/nordicloop-backend/pkg/errors"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OnboardInput opens a gateway account for a seller company.
type OnboardInput struct {
	CompanyID uuid.UUID
	Country   string
	Email     string
}

// Service keeps the local view of seller gateway accounts in sync.
type Service interface {
	Onboard(ctx context.Context, input OnboardInput) (*models.SellerAccount, error)
	Get(ctx context.Context, companyID uuid.UUID) (*models.SellerAccount, error)
	Refresh(ctx context.Context, companyID uuid.UUID) (*models.SellerAccount, error)
	SyncFromGateway(ctx context.Context, snapshot *gateway.Account) (*models.SellerAccount, error)
}

// ServiceParams groups dependencies for the accounts service.
type ServiceParams struct {
	Repo              Repository
	Gateway           gateway.Gateway
	Notifications     notifications.Service
	Outbox            outboxEmitter
	TransactionRunner txRunner
	Logger            *logger.Logger
}

type service struct {
	repo     Repository
	gateway  gateway.Gateway
	notifier notifications.Service
	outbox   outboxEmitter
	txRunner txRunner
	logg     *logger.Logger
}

// NewService wires the accounts service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
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
		repo:     params.Repo,
		gateway:  params.Gateway,
		notifier: params.Notifications,
		outbox:   params.Outbox,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

// Onboard opens a connected account at the gateway and stores the local
// row. The gateway call carries an idempotency key derived from the
// company id, so a retried onboarding resolves to the same account.
func (s *service) Onboard(ctx context.Context, input OnboardInput) (*models.SellerAccount, error) {
	if input.CompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}

	if _, err := s.repo.FindByCompanyID(ctx, input.CompanyID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "seller account already exists")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup seller account")
	}

	country := input.Country
	if country == "" {
		country = "SE"
	}

	snapshot, err := s.gateway.CreateAccount(ctx, gateway.CreateAccountInput{
		ReferenceID: input.CompanyID.String(),
		Country:     country,
		Email:       input.Email,
	})
	if err != nil {
		return nil, err
	}

	requirements, err := json.Marshal(snapshot.RequirementsDue)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode requirements")
	}

	account := &models.SellerAccount{
		CompanyID:        input.CompanyID,
		GatewayAccountID: snapshot.ID,
		Status:           DeriveStatus(snapshot),
		ChargesEnabled:   snapshot.ChargesEnabled,
		PayoutsEnabled:   snapshot.PayoutsEnabled,
		DetailsSubmitted: snapshot.DetailsSubmitted,
		RequirementsDue:  requirements,
		Country:          country,
	}
	if snapshot.DefaultCurrency != "" {
		account.DefaultCurrency = snapshot.DefaultCurrency
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, account); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save seller account")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellerAccountUpdated,
			AggregateType: enums.AggregateSellerAccount,
			AggregateID:   account.ID,
			Data: map[string]any{
				"company_id":      account.CompanyID,
				"status":          account.Status,
				"charges_enabled": account.ChargesEnabled,
				"payouts_enabled": account.PayoutsEnabled,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"company_id":         account.CompanyID.String(),
		"gateway_account_id": account.GatewayAccountID,
	})
	s.logg.Info(logCtx, "seller account onboarded")
	return account, nil
}

func (s *service) Get(ctx context.Context, companyID uuid.UUID) (*models.SellerAccount, error) {
	if companyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}
	account, err := s.repo.FindByCompanyID(ctx, companyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup seller account")
	}
	return account, nil
}

// Refresh pulls the account's current state from the gateway and applies
// it. Used by the cron refresher as a safety net for missed webhooks.
func (s *service) Refresh(ctx context.Context, companyID uuid.UUID) (*models.SellerAccount, error) {
	account, err := s.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.gateway.GetAccount(ctx, account.GatewayAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch gateway account")
	}
	return s.SyncFromGateway(ctx, snapshot)
}

// SyncFromGateway applies a gateway account snapshot to the stored row,
// rederives the status, and raises a notification when the seller has
// outstanding requirements. A snapshot for an unknown account is ignored:
// onboarding may not have committed yet, the next webhook catches up.
func (s *service) SyncFromGateway(ctx context.Context, snapshot *gateway.Account) (*models.SellerAccount, error) {
	if snapshot == nil || snapshot.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account snapshot is required")
	}

	account, err := s.repo.FindByGatewayAccountID(ctx, snapshot.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logCtx := s.logg.WithField(ctx, "gateway_account_id", snapshot.ID)
			s.logg.Warn(logCtx, "gateway account has no local row, skipping sync")
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup seller account")
	}

	previousStatus := account.Status
	account.ChargesEnabled = snapshot.ChargesEnabled
	account.PayoutsEnabled = snapshot.PayoutsEnabled
	account.DetailsSubmitted = snapshot.DetailsSubmitted
	if snapshot.Country != "" {
		account.Country = snapshot.Country
	}
	if snapshot.DefaultCurrency != "" {
		account.DefaultCurrency = snapshot.DefaultCurrency
	}

	requirements, err := json.Marshal(snapshot.RequirementsDue)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode requirements")
	}
	account.RequirementsDue = requirements
	account.Status = DeriveStatus(snapshot)

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, account); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save seller account")
		}

		if account.Status == enums.AccountStatusRestricted && previousStatus != enums.AccountStatusRestricted {
			if err := s.notifier.NotifyTx(ctx, tx, notifications.NotifyInput{
				CompanyID: account.CompanyID,
				Type:      enums.NotificationTypeAccountAction,
				Title:     "Action required on your payout account",
				Message:   "Your payout account needs attention before you can receive funds.",
			}); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellerAccountUpdated,
			AggregateType: enums.AggregateSellerAccount,
			AggregateID:   account.ID,
			Data: map[string]any{
				"company_id":      account.CompanyID,
				"status":          account.Status,
				"charges_enabled": account.ChargesEnabled,
				"payouts_enabled": account.PayoutsEnabled,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if account.Status != previousStatus {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"company_id": account.CompanyID.String(),
			"from":       string(previousStatus),
			"to":         string(account.Status),
		})
		s.logg.Info(logCtx, "seller account status changed")
	}
	return account, nil
}

// DeriveStatus maps gateway capability flags onto the account lifecycle.
// Fully capable accounts are active; accounts that submitted details but
// lost a capability are restricted; everything else is still onboarding.
func DeriveStatus(snapshot *gateway.Account) enums.AccountStatus {
	switch {
	case snapshot.ChargesEnabled && snapshot.PayoutsEnabled:
		return enums.AccountStatusActive
	case snapshot.DetailsSubmitted:
		return enums.AccountStatusRestricted
	default:
		return enums.AccountStatusPending
	}
}
