package stripewebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/nordicloop/nordicloop-backend/internal/accounts"
	"github.com/nordicloop/nordicloop-backend/internal/gateway"
	"github.com/nordicloop/nordicloop-backend/internal/payments"
	"github.com/nordicloop/nordicloop-backend/internal/payouts"
	pkgerrors "github.com/nordicloop/nordicloop-backend/pkg/errors"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
)

// ServiceParams groups dependencies for the webhook reconciler.
type ServiceParams struct {
	Payments payments.Service
	Payouts  payouts.Service
	Accounts accounts.Service
	Logger   *logger.Logger
}

// Service applies gateway webhook events to local settlement state.
// Handlers are idempotent; the transport layer additionally drops
// duplicate deliveries via the idempotency guard.
type Service struct {
	payments payments.Service
	payouts  payouts.Service
	accounts accounts.Service
	logg     *logger.Logger
}

// NewService wires the webhook reconciler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Payouts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts service required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "accounts service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments: params.Payments,
		payouts:  params.Payouts,
		accounts: params.Accounts,
		logg:     params.Logger,
	}, nil
}

// HandleEvent routes a verified gateway event. Unhandled event types
// are acknowledged without action so the gateway stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
	})

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		return s.payments.Complete(ctx, gateway.IntentFromStripe(&pi))

	case stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		snapshot := gateway.IntentFromStripe(&pi)
		return s.payments.Fail(ctx, snapshot.ID, snapshot.FailureCode, snapshot.FailureDetail)

	case stripe.EventTypeAccountUpdated:
		var acct stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode account event")
		}
		_, err := s.accounts.SyncFromGateway(ctx, gateway.AccountFromStripe(&acct))
		return err

	case stripe.EventTypePayoutPaid:
		var payout stripe.Payout
		if err := json.Unmarshal(event.Data.Raw, &payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payout event")
		}
		paidAt := time.Now().UTC()
		if payout.ArrivalDate > 0 {
			paidAt = time.Unix(payout.ArrivalDate, 0).UTC()
		}
		return s.payouts.MarkPaid(ctx, payout.ID, paidAt)

	case stripe.EventTypePayoutFailed:
		var payout stripe.Payout
		if err := json.Unmarshal(event.Data.Raw, &payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payout event")
		}
		return s.payouts.MarkFailed(ctx, payout.ID, payout.FailureMessage)

	default:
		s.logg.Info(logCtx, "ignoring unhandled webhook event")
		return nil
	}
}
