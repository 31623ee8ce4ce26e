package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordicloop/nordicloop-backend/pkg/db/models"
)

// ErrNotFound is returned when a seller account does not exist.
var ErrNotFound = errors.New("seller account not found")

// Repository manages persistence for seller gateway accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCompanyID(ctx context.Context, companyID uuid.UUID) (*models.SellerAccount, error)
	FindByGatewayAccountID(ctx context.Context, gatewayAccountID string) (*models.SellerAccount, error)
	Save(ctx context.Context, account *models.SellerAccount) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCompanyID(ctx context.Context, companyID uuid.UUID) (*models.SellerAccount, error) {
	var account models.SellerAccount
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByGatewayAccountID(ctx context.Context, gatewayAccountID string) (*models.SellerAccount, error) {
	var account models.SellerAccount
	err := r.db.WithContext(ctx).Where("gateway_account_id = ?", gatewayAccountID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) Save(ctx context.Context, account *models.SellerAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}
