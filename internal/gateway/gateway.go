package gateway

import (
	"context"

	"github.com/nordicloop/nordicloop-backend/pkg/enums"
)

// Gateway is the payment processor surface the settlement flows depend
// on. Implementations translate processor responses into the neutral
// types below so services never touch provider SDK structs.
type Gateway interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error)
	GetIntent(ctx context.Context, gatewayIntentID string) (*Intent, error)
	CancelIntent(ctx context.Context, gatewayIntentID string) (*Intent, error)
	CreatePayout(ctx context.Context, input CreatePayoutInput) (*Payout, error)
	CreateAccount(ctx context.Context, input CreateAccountInput) (*Account, error)
	GetAccount(ctx context.Context, gatewayAccountID string) (*Account, error)
}

// CreateIntentInput describes a destination charge: the platform takes
// its commission as the application fee and the remainder routes to the
// seller's connected account.
type CreateIntentInput struct {
	ReferenceID        string
	AmountCents        int64
	CommissionCents    int64
	Currency           enums.Currency
	DestinationAccount string
	Description        string
	Metadata           map[string]string
}

// Intent is the provider-neutral view of a payment intent.
type Intent struct {
	ID            string
	ClientSecret  string
	Status        enums.PaymentIntentStatus
	AmountCents   int64
	Currency      enums.Currency
	FailureCode   string
	FailureDetail string
}

// CreatePayoutInput moves settled funds out of a connected account.
type CreatePayoutInput struct {
	ReferenceID    string
	AmountCents    int64
	Currency       enums.Currency
	GatewayAccount string
	Description    string
}

// Payout is the provider-neutral view of a payout.
type Payout struct {
	ID     string
	Status enums.PayoutStatus
}

// CreateAccountInput opens a connected account for a seller company.
type CreateAccountInput struct {
	ReferenceID string
	Country     string
	Email       string
}

// Account is the provider-neutral view of a connected account.
type Account struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	RequirementsDue  []string
	Country          string
	DefaultCurrency  enums.Currency
}
