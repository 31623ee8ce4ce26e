package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordicloop/nordicloop-backend/pkg/enums"
)

// Subscription records a seller company's commercial plan. The plan in
// force when an intent is created decides the commission rate.
type Subscription struct {
	ID                   uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID            uuid.UUID              `gorm:"column:company_id;type:uuid;not null;uniqueIndex"`
	Plan                 enums.SubscriptionPlan `gorm:"column:plan;type:subscription_plan;not null;default:'free'"`
	StripeSubscriptionID *string                `gorm:"column:stripe_subscription_id;uniqueIndex"`
	CurrentPeriodEnd     *time.Time             `gorm:"column:current_period_end"`
	CancelAtPeriodEnd    bool                   `gorm:"column:cancel_at_period_end;not null;default:false"`
	CreatedAt            time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
