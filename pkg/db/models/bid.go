package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordicloop/nordicloop-backend/pkg/enums"
)

// Bid is a buyer's offer on a material listing, priced per unit for a
// requested volume. Settlement only touches bids once they reach won.
type Bid struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID         uuid.UUID       `gorm:"column:listing_id;type:uuid;not null;index"`
	BuyerCompanyID    uuid.UUID       `gorm:"column:buyer_company_id;type:uuid;not null;index"`
	SellerCompanyID   uuid.UUID       `gorm:"column:seller_company_id;type:uuid;not null;index"`
	PricePerUnitCents int64           `gorm:"column:price_per_unit_cents;not null"`
	Volume            int64           `gorm:"column:volume;not null"`
	Currency          enums.Currency  `gorm:"column:currency;type:text;not null;default:'sek'"`
	Status            enums.BidStatus `gorm:"column:status;type:bid_status;not null;default:'active'"`
	WonAt             *time.Time      `gorm:"column:won_at"`
	PaidAt            *time.Time      `gorm:"column:paid_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalCents is the settlement amount: unit price times volume.
func (b Bid) TotalCents() int64 {
	return b.PricePerUnitCents * b.Volume
}
