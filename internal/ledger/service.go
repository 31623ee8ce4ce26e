package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordicloop/nordicloop-backend/pkg/db/models"
	"github.com/nordicloop/nordicloop-backend/pkg/enums"
	pkgerrors "github.com/nordicloop/nordicloop-backend/pkg/errors"
	"github.com/nordicloop/nordicloop-backend/pkg/pagination"
)

// Service records and reads the double-entry view of each settlement.
// Materialization happens inside the caller's transaction so ledger rows
// commit atomically with the payment transition that produced them.
type Service interface {
	Materialize(ctx context.Context, tx *gorm.DB, intent *models.PaymentIntent) ([]models.Transaction, error)
	ListByIntent(ctx context.Context, intentID uuid.UUID) ([]models.Transaction, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.Transaction, string, error)
	MarkPayoutInTransit(ctx context.Context, tx *gorm.DB, intentID uuid.UUID, gatewayReference string) error
	MarkPayoutCompleted(ctx context.Context, tx *gorm.DB, intentID uuid.UUID, completedAt time.Time) error
	MarkPayoutFailed(ctx context.Context, tx *gorm.DB, intentID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// Materialize writes the commission and payout entries for a succeeded
// intent. Calling it twice for the same intent returns the existing
// rows, so webhook replays never double-book.
func (s *service) Materialize(ctx context.Context, tx *gorm.DB, intent *models.PaymentIntent) ([]models.Transaction, error) {
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent is required")
	}
	if intent.Status != enums.PaymentIntentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "intent has not succeeded")
	}
	if intent.CommissionCents+intent.SellerAmountCents != intent.AmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "intent amounts do not balance")
	}

	repo := s.repo.WithTx(tx)

	existing, err := repo.ListByIntentID(ctx, intent.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	if len(existing) > 0 {
		return existing, nil
	}

	now := time.Now().UTC()
	entries := []models.Transaction{
		{
			PaymentIntentID: intent.ID,
			BidID:           intent.BidID,
			CompanyID:       intent.SellerCompanyID,
			Type:            enums.TransactionTypeCommission,
			Status:          enums.TransactionStatusCompleted,
			AmountCents:     intent.CommissionCents,
			Currency:        intent.Currency,
			GatewayReference: intent.GatewayIntentID,
			Description:     fmt.Sprintf("platform commission (%s%%)", intent.CommissionRate.StringFixed(2)),
			CompletedAt:     &now,
		},
		{
			PaymentIntentID: intent.ID,
			BidID:           intent.BidID,
			CompanyID:       intent.SellerCompanyID,
			Type:            enums.TransactionTypePayout,
			Status:          enums.TransactionStatusPending,
			AmountCents:     intent.SellerAmountCents,
			Currency:        intent.Currency,
			Description:     "seller proceeds",
		},
	}

	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ledger entry")
		}
	}
	return entries, nil
}

func (s *service) ListByIntent(ctx context.Context, intentID uuid.UUID) ([]models.Transaction, error) {
	if intentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id is required")
	}
	entries, err := s.repo.ListByIntentID(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, nil
}

// ListByCompany returns a page of the company's ledger entries plus the
// cursor for the next page, empty when there is none.
func (s *service) ListByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.Transaction, string, error) {
	if companyID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}

	entries, err := s.repo.ListByCompanyID(ctx, companyID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return entries, nextCursor, nil
}

func (s *service) MarkPayoutInTransit(ctx context.Context, tx *gorm.DB, intentID uuid.UUID, gatewayReference string) error {
	entry, err := s.payoutEntry(ctx, tx, intentID)
	if err != nil {
		return err
	}
	if entry.Status == enums.TransactionStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payout entry already completed")
	}
	ref := &gatewayReference
	if gatewayReference == "" {
		ref = nil
	}
	if err := s.repo.WithTx(tx).UpdateStatus(ctx, entry.ID, enums.TransactionStatusInTransit, ref, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ledger entry")
	}
	return nil
}

func (s *service) MarkPayoutCompleted(ctx context.Context, tx *gorm.DB, intentID uuid.UUID, completedAt time.Time) error {
	entry, err := s.payoutEntry(ctx, tx, intentID)
	if err != nil {
		return err
	}
	if entry.Status == enums.TransactionStatusCompleted {
		return nil
	}
	if err := s.repo.WithTx(tx).UpdateStatus(ctx, entry.ID, enums.TransactionStatusCompleted, nil, &completedAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ledger entry")
	}
	return nil
}

func (s *service) MarkPayoutFailed(ctx context.Context, tx *gorm.DB, intentID uuid.UUID) error {
	entry, err := s.payoutEntry(ctx, tx, intentID)
	if err != nil {
		return err
	}
	if entry.Status == enums.TransactionStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payout entry already completed")
	}
	if err := s.repo.WithTx(tx).UpdateStatus(ctx, entry.ID, enums.TransactionStatusFailed, nil, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ledger entry")
	}
	return nil
}

func (s *service) payoutEntry(ctx context.Context, tx *gorm.DB, intentID uuid.UUID) (*models.Transaction, error) {
	if intentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id is required")
	}
	entry, err := s.repo.WithTx(tx).FindByIntentAndType(ctx, intentID, enums.TransactionTypePayout)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payout entry")
	}
	return entry, nil
}
