package gateway

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/payout"

	"github.com/nordicloop/nordicloop-backend/pkg/enums"
	pkgstripe "github.com/nordicloop/nordicloop-backend/pkg/stripe"
)

// StripeGateway implements Gateway on top of Stripe Connect destination
// charges. Every mutating call carries an idempotency key derived from
// the entity id and operation so processor-side retries collapse.
type StripeGateway struct {
	client *pkgstripe.Client
}

// NewStripeGateway wraps the shared Stripe client.
func NewStripeGateway(client *pkgstripe.Client) (*StripeGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &StripeGateway{client: client}, nil
}

func idempotencyKey(referenceID, operation string) string {
	return fmt.Sprintf("%s:%s", referenceID, operation)
}

func (g *StripeGateway) CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	if input.ReferenceID == "" {
		return nil, fmt.Errorf("reference id required")
	}
	if input.DestinationAccount == "" {
		return nil, fmt.Errorf("destination account required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(input.AmountCents),
		Currency:             stripe.String(string(input.Currency)),
		ApplicationFeeAmount: stripe.Int64(input.CommissionCents),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(input.DestinationAccount),
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey(input.ReferenceID, "create_intent"))

	var created *stripe.PaymentIntent
	err := WithRetry(ctx, func(ctx context.Context) error {
		var callErr error
		created, callErr = paymentintent.New(params)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return IntentFromStripe(created), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, gatewayIntentID string) (*Intent, error) {
	if gatewayIntentID == "" {
		return nil, fmt.Errorf("gateway intent id required")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	var fetched *stripe.PaymentIntent
	err := WithRetry(ctx, func(ctx context.Context) error {
		var callErr error
		fetched, callErr = paymentintent.Get(gatewayIntentID, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return IntentFromStripe(fetched), nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, gatewayIntentID string) (*Intent, error) {
	if gatewayIntentID == "" {
		return nil, fmt.Errorf("gateway intent id required")
	}
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey(gatewayIntentID, "cancel_intent"))

	var canceled *stripe.PaymentIntent
	err := WithRetry(ctx, func(ctx context.Context) error {
		var callErr error
		canceled, callErr = paymentintent.Cancel(gatewayIntentID, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return IntentFromStripe(canceled), nil
}

func (g *StripeGateway) CreatePayout(ctx context.Context, input CreatePayoutInput) (*Payout, error) {
	if input.ReferenceID == "" {
		return nil, fmt.Errorf("reference id required")
	}
	if input.GatewayAccount == "" {
		return nil, fmt.Errorf("gateway account required")
	}

	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(string(input.Currency)),
	}
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}
	params.Context = ctx
	params.SetStripeAccount(input.GatewayAccount)
	params.SetIdempotencyKey(idempotencyKey(input.ReferenceID, "create_payout"))

	var created *stripe.Payout
	err := WithRetry(ctx, func(ctx context.Context) error {
		var callErr error
		created, callErr = payout.New(params)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return payoutFromStripe(created), nil
}

func (g *StripeGateway) CreateAccount(ctx context.Context, input CreateAccountInput) (*Account, error) {
	if input.ReferenceID == "" {
		return nil, fmt.Errorf("reference id required")
	}
	if input.Country == "" {
		return nil, fmt.Errorf("country required")
	}

	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeCustom)),
		Country: stripe.String(input.Country),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
	}
	if input.Email != "" {
		params.Email = stripe.String(input.Email)
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey(input.ReferenceID, "create_account"))

	var created *stripe.Account
	err := WithRetry(ctx, func(ctx context.Context) error {
		var callErr error
		created, callErr = account.New(params)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return AccountFromStripe(created), nil
}

func (g *StripeGateway) GetAccount(ctx context.Context, gatewayAccountID string) (*Account, error) {
	if gatewayAccountID == "" {
		return nil, fmt.Errorf("gateway account id required")
	}
	params := &stripe.AccountParams{}
	params.Context = ctx

	var fetched *stripe.Account
	err := WithRetry(ctx, func(ctx context.Context) error {
		var callErr error
		fetched, callErr = account.GetByID(gatewayAccountID, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return AccountFromStripe(fetched), nil
}

// IntentFromStripe converts a gateway payment intent to the neutral
// shape. Exported because the webhook reconciler decodes intent events
// straight into stripe.PaymentIntent.
func IntentFromStripe(pi *stripe.PaymentIntent) *Intent {
	if pi == nil {
		return nil
	}
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       IntentStatusFromStripe(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     enums.Currency(pi.Currency),
	}
	if pi.LastPaymentError != nil {
		intent.FailureCode = string(pi.LastPaymentError.DeclineCode)
		if intent.FailureCode == "" {
			intent.FailureCode = string(pi.LastPaymentError.Code)
		}
		intent.FailureDetail = pi.LastPaymentError.Msg
	}
	return intent
}

// IntentStatusFromStripe collapses Stripe's intent states onto the
// domain state machine. Confirmation and action states count as
// processing: the money is in flight from the platform's perspective.
func IntentStatusFromStripe(status stripe.PaymentIntentStatus) enums.PaymentIntentStatus {
	switch status {
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return enums.PaymentIntentStatusRequiresPaymentMethod
	case stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusRequiresCapture,
		stripe.PaymentIntentStatusProcessing:
		return enums.PaymentIntentStatusProcessing
	case stripe.PaymentIntentStatusSucceeded:
		return enums.PaymentIntentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return enums.PaymentIntentStatusCanceled
	default:
		return enums.PaymentIntentStatusFailed
	}
}

func payoutFromStripe(p *stripe.Payout) *Payout {
	if p == nil {
		return nil
	}
	return &Payout{
		ID:     p.ID,
		Status: PayoutStatusFromStripe(p.Status),
	}
}

// PayoutStatusFromStripe maps Stripe payout states onto the domain's.
func PayoutStatusFromStripe(status stripe.PayoutStatus) enums.PayoutStatus {
	switch status {
	case stripe.PayoutStatusPaid:
		return enums.PayoutStatusPaid
	case stripe.PayoutStatusPending, stripe.PayoutStatusInTransit:
		return enums.PayoutStatusProcessing
	default:
		return enums.PayoutStatusFailed
	}
}

// AccountFromStripe converts a connected account to the neutral shape.
// Exported because the webhook reconciler decodes account.updated
// events straight into stripe.Account.
func AccountFromStripe(acct *stripe.Account) *Account {
	if acct == nil {
		return nil
	}
	out := &Account{
		ID:               acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
		Country:          acct.Country,
		DefaultCurrency:  enums.Currency(acct.DefaultCurrency),
	}
	if acct.Requirements != nil {
		out.RequirementsDue = append(out.RequirementsDue, acct.Requirements.CurrentlyDue...)
	}
	return out
}
