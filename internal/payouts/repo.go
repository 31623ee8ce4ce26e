package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nordicloop/nordicloop-backend/pkg/db/models"
	"github.com/nordicloop/nordicloop-backend/pkg/enums"
	"github.com/nordicloop/nordicloop-backend/pkg/pagination"
)

// ErrNotFound is returned when a payout schedule does not exist.
var ErrNotFound = errors.New("payout schedule not found")

// Repository manages persistence for payout schedules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, schedule *models.PayoutSchedule) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutSchedule, error)
	FindByPaymentIntentID(ctx context.Context, intentID uuid.UUID) (*models.PayoutSchedule, error)
	FindByGatewayPayoutID(ctx context.Context, gatewayPayoutID string) (*models.PayoutSchedule, error)
	FindDueForUpdate(ctx context.Context, now time.Time, limit int) ([]models.PayoutSchedule, error)
	ListBySellerCompanyID(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PayoutSchedule, error)
	Save(ctx context.Context, schedule *models.PayoutSchedule) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payouts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, schedule *models.PayoutSchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutSchedule, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindByPaymentIntentID(ctx context.Context, intentID uuid.UUID) (*models.PayoutSchedule, error) {
	return r.findOne(ctx, "payment_intent_id = ?", intentID)
}

func (r *repository) FindByGatewayPayoutID(ctx context.Context, gatewayPayoutID string) (*models.PayoutSchedule, error) {
	return r.findOne(ctx, "gateway_payout_id = ?", gatewayPayoutID)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.PayoutSchedule, error) {
	var schedule models.PayoutSchedule
	err := r.db.WithContext(ctx).Where(query, arg).First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

// FindDueForUpdate locks and returns schedules whose hold window elapsed
// and whose funding backoff, if any, has passed. SKIP LOCKED lets
// concurrent workers share a batch without double-funding.
func (r *repository) FindDueForUpdate(ctx context.Context, now time.Time, limit int) ([]models.PayoutSchedule, error) {
	var schedules []models.PayoutSchedule
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", enums.PayoutStatusScheduled).
		Where("scheduled_for <= ?", now).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

// ListBySellerCompanyID returns the seller's payout schedules, newest
// first.
func (r *repository) ListBySellerCompanyID(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PayoutSchedule, error) {
	query := r.db.WithContext(ctx).
		Where("seller_company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var schedules []models.PayoutSchedule
	if err := query.Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *repository) Save(ctx context.Context, schedule *models.PayoutSchedule) error {
	return r.db.WithContext(ctx).Save(schedule).Error
}
