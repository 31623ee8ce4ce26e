package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/nordicloop/nordicloop-backend/internal/accounts"
	"github.com/nordicloop/nordicloop-backend/internal/gateway"
	"github.com/nordicloop/nordicloop-backend/internal/payments"
	"github.com/nordicloop/nordicloop-backend/internal/payouts"
	"github.com/nordicloop/nordicloop-backend/pkg/db/models"
	"github.com/nordicloop/nordicloop-backend/pkg/enums"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/pagination"
)

type stubPayments struct {
	completed []*gateway.Intent
	failed    []string
}

func (s *stubPayments) CreateIntent(ctx context.Context, input payments.CreateIntentInput) (*models.PaymentIntent, error) {
	return nil, nil
}

func (s *stubPayments) Get(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	return nil, nil
}

func (s *stubPayments) Complete(ctx context.Context, snapshot *gateway.Intent) error {
	s.completed = append(s.completed, snapshot)
	return nil
}

func (s *stubPayments) Fail(ctx context.Context, gatewayIntentID, failureCode, failureMessage string) error {
	s.failed = append(s.failed, gatewayIntentID)
	return nil
}

func (s *stubPayments) Cancel(ctx context.Context, id uuid.UUID, buyerCompanyID uuid.UUID) (*models.PaymentIntent, error) {
	return nil, nil
}

func (s *stubPayments) Confirm(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	return nil, nil
}

func (s *stubPayments) ListByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PaymentIntent, string, error) {
	return nil, "", nil
}

type stubPayouts struct {
	paid   []string
	failed []string
}

func (s *stubPayouts) ScheduleTx(ctx context.Context, tx *gorm.DB, intent *models.PaymentIntent) (*models.PayoutSchedule, error) {
	return nil, nil
}

func (s *stubPayouts) ExecuteDue(ctx context.Context, now time.Time) (payouts.RunStats, error) {
	return payouts.RunStats{}, nil
}

func (s *stubPayouts) MarkPaid(ctx context.Context, gatewayPayoutID string, paidAt time.Time) error {
	s.paid = append(s.paid, gatewayPayoutID)
	return nil
}

func (s *stubPayouts) MarkFailed(ctx context.Context, gatewayPayoutID string, failureMessage string) error {
	s.failed = append(s.failed, gatewayPayoutID)
	return nil
}

func (s *stubPayouts) GetByIntent(ctx context.Context, intentID uuid.UUID) (*models.PayoutSchedule, error) {
	return nil, nil
}

func (s *stubPayouts) ListBySeller(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PayoutSchedule, string, error) {
	return nil, "", nil
}

type stubAccounts struct {
	synced []*gateway.Account
}

func (s *stubAccounts) Onboard(ctx context.Context, input accounts.OnboardInput) (*models.SellerAccount, error) {
	return nil, nil
}

func (s *stubAccounts) Get(ctx context.Context, companyID uuid.UUID) (*models.SellerAccount, error) {
	return nil, nil
}

func (s *stubAccounts) Refresh(ctx context.Context, companyID uuid.UUID) (*models.SellerAccount, error) {
	return nil, nil
}

func (s *stubAccounts) SyncFromGateway(ctx context.Context, snapshot *gateway.Account) (*models.SellerAccount, error) {
	s.synced = append(s.synced, snapshot)
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *stubPayments, *stubPayouts, *stubAccounts) {
	t.Helper()
	paymentsSvc := &stubPayments{}
	payoutsSvc := &stubPayouts{}
	accountsSvc := &stubAccounts{}
	svc, err := NewService(ServiceParams{
		Payments: paymentsSvc,
		Payouts:  payoutsSvc,
		Accounts: accountsSvc,
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc, paymentsSvc, payoutsSvc, accountsSvc
}

func eventWith(t *testing.T, eventType stripe.EventType, payload any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_1",
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEvent_PaymentIntentSucceeded(t *testing.T) {
	svc, paymentsSvc, _, _ := newTestService(t)

	event := eventWith(t, stripe.EventTypePaymentIntentSucceeded, &stripe.PaymentIntent{
		ID:     "pi_1",
		Status: stripe.PaymentIntentStatusSucceeded,
		Amount: 1100000,
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent error: %v", err)
	}
	if len(paymentsSvc.completed) != 1 {
		t.Fatalf("expected 1 completion, got %d", len(paymentsSvc.completed))
	}
	snapshot := paymentsSvc.completed[0]
	if snapshot.ID != "pi_1" || snapshot.Status != enums.PaymentIntentStatusSucceeded {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestHandleEvent_PaymentIntentFailed(t *testing.T) {
	svc, paymentsSvc, _, _ := newTestService(t)

	event := eventWith(t, stripe.EventTypePaymentIntentPaymentFailed, &stripe.PaymentIntent{
		ID:     "pi_2",
		Status: stripe.PaymentIntentStatusRequiresPaymentMethod,
		LastPaymentError: &stripe.Error{
			DeclineCode: stripe.DeclineCodeInsufficientFunds,
			Msg:         "insufficient funds",
		},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent error: %v", err)
	}
	if len(paymentsSvc.failed) != 1 || paymentsSvc.failed[0] != "pi_2" {
		t.Fatalf("expected pi_2 failure, got %v", paymentsSvc.failed)
	}
}

func TestHandleEvent_AccountUpdated(t *testing.T) {
	svc, _, _, accountsSvc := newTestService(t)

	event := eventWith(t, stripe.EventTypeAccountUpdated, &stripe.Account{
		ID:             "acct_1",
		ChargesEnabled: true,
		PayoutsEnabled: true,
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent error: %v", err)
	}
	if len(accountsSvc.synced) != 1 || accountsSvc.synced[0].ID != "acct_1" {
		t.Fatalf("expected account sync, got %+v", accountsSvc.synced)
	}
}

func TestHandleEvent_PayoutPaidAndFailed(t *testing.T) {
	svc, _, payoutsSvc, _ := newTestService(t)

	paid := eventWith(t, stripe.EventTypePayoutPaid, &stripe.Payout{ID: "po_1"})
	if err := svc.HandleEvent(context.Background(), paid); err != nil {
		t.Fatalf("HandleEvent error: %v", err)
	}
	if len(payoutsSvc.paid) != 1 || payoutsSvc.paid[0] != "po_1" {
		t.Fatalf("expected po_1 paid, got %v", payoutsSvc.paid)
	}

	failed := eventWith(t, stripe.EventTypePayoutFailed, &stripe.Payout{ID: "po_2", FailureMessage: "bank rejected"})
	if err := svc.HandleEvent(context.Background(), failed); err != nil {
		t.Fatalf("HandleEvent error: %v", err)
	}
	if len(payoutsSvc.failed) != 1 || payoutsSvc.failed[0] != "po_2" {
		t.Fatalf("expected po_2 failed, got %v", payoutsSvc.failed)
	}
}

func TestHandleEvent_IgnoresUnknownEvents(t *testing.T) {
	svc, paymentsSvc, payoutsSvc, accountsSvc := newTestService(t)

	event := eventWith(t, stripe.EventType("charge.refunded"), &stripe.Charge{ID: "ch_1"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent error: %v", err)
	}
	if len(paymentsSvc.completed)+len(payoutsSvc.paid)+len(accountsSvc.synced) != 0 {
		t.Fatal("unknown events must be no-ops")
	}
}

func TestHandleEvent_RejectsMissingData(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if err := svc.HandleEvent(context.Background(), &stripe.Event{Type: stripe.EventTypePayoutPaid}); err == nil {
		t.Fatal("expected validation error")
	}
}
