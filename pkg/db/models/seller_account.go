package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nordicloop/nordicloop-backend/pkg/enums"
)

// SellerAccount mirrors a seller company's connected gateway account.
// Capability flags are refreshed from account.updated webhooks.
type SellerAccount struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID        uuid.UUID           `gorm:"column:company_id;type:uuid;not null;uniqueIndex"`
	GatewayAccountID string              `gorm:"column:gateway_account_id;not null;uniqueIndex"`
	Status           enums.AccountStatus `gorm:"column:status;type:account_status;not null;default:'pending'"`
	ChargesEnabled   bool                `gorm:"column:charges_enabled;not null;default:false"`
	PayoutsEnabled   bool                `gorm:"column:payouts_enabled;not null;default:false"`
	DetailsSubmitted bool                `gorm:"column:details_submitted;not null;default:false"`
	RequirementsDue  json.RawMessage     `gorm:"column:requirements_due;type:jsonb"`
	Country          string              `gorm:"column:country;type:text;not null;default:'SE'"`
	DefaultCurrency  enums.Currency      `gorm:"column:default_currency;type:text;not null;default:'sek'"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
