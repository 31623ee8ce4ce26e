package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nordicloop/nordicloop-backend/internal/stats/types"
	"github.com/nordicloop/nordicloop-backend/pkg/enums"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/outbox/payloads"
)

type fakeWriter struct {
	rows []types.SettlementEventRow
	err  error
}

func (f *fakeWriter) InsertSettlement(_ context.Context, row types.SettlementEventRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "stats-router-test", Output: io.Discard})
}

func buildEnvelope(t *testing.T, eventType enums.OutboxEventType, payload any) types.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return types.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateType: enums.AggregatePaymentIntent,
		AggregateID:   uuid.NewString(),
		OccurredAt:    time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		Payload:       data,
	}
}

func TestRouterHandlesPaymentSucceeded(t *testing.T) {
	writer := &fakeWriter{}
	router, err := NewRouter(writer, testLogger(), nil)
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}

	succeededAt := time.Date(2026, 2, 11, 9, 30, 0, 0, time.UTC)
	event := payloads.PaymentSucceededEvent{
		PaymentIntentID:   uuid.New(),
		BidID:             uuid.New(),
		BuyerCompanyID:    uuid.New(),
		SellerCompanyID:   uuid.New(),
		AmountCents:       1100000,
		CommissionCents:   77000,
		SellerAmountCents: 1023000,
		Currency:          "SEK",
		SucceededAt:       succeededAt,
	}
	envelope := buildEnvelope(t, enums.EventPaymentSucceeded, event)

	if err := router.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writer.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(writer.rows))
	}
	row := writer.rows[0]
	if row.EventType != string(enums.EventPaymentSucceeded) {
		t.Fatalf("unexpected event type %s", row.EventType)
	}
	if row.AmountCents == nil || *row.AmountCents != 1100000 {
		t.Fatalf("unexpected amount %+v", row.AmountCents)
	}
	if row.CommissionCents == nil || row.SellerAmountCents == nil ||
		*row.CommissionCents+*row.SellerAmountCents != *row.AmountCents {
		t.Fatal("row amounts do not balance")
	}
	if !row.OccurredAt.Equal(succeededAt) {
		t.Fatalf("expected succeeded_at used as occurred_at, got %s", row.OccurredAt)
	}
	if !row.Payload.Valid {
		t.Fatal("expected payload recorded")
	}
}

func TestRouterHandlesPayoutPaid(t *testing.T) {
	writer := &fakeWriter{}
	router, err := NewRouter(writer, testLogger(), nil)
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}

	event := payloads.PayoutPaidEvent{
		PayoutScheduleID:  uuid.New(),
		PaymentIntentID:   uuid.New(),
		SellerCompanyID:   uuid.New(),
		AmountCents:       1023000,
		Currency:          "SEK",
		GatewayTransferID: "tr_1",
		PaidAt:            time.Date(2026, 2, 21, 6, 0, 0, 0, time.UTC),
	}
	envelope := buildEnvelope(t, enums.EventPayoutPaid, event)

	if err := router.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writer.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(writer.rows))
	}
	row := writer.rows[0]
	if row.PayoutScheduleID == nil || *row.PayoutScheduleID != event.PayoutScheduleID.String() {
		t.Fatalf("unexpected payout schedule id %+v", row.PayoutScheduleID)
	}
	if row.SellerCompanyID == nil {
		t.Fatal("expected seller company recorded")
	}
}

func TestRouterRejectsUnsupportedEvent(t *testing.T) {
	router, err := NewRouter(&fakeWriter{}, testLogger(), nil)
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}

	envelope := buildEnvelope(t, enums.OutboxEventType("invoice.created"), map[string]string{})
	err = router.Handle(context.Background(), envelope)
	if !errors.Is(err, ErrUnsupportedEventType) {
		t.Fatalf("expected unsupported event error, got %v", err)
	}
}

func TestRouterRejectsMalformedPayload(t *testing.T) {
	router, err := NewRouter(&fakeWriter{}, testLogger(), nil)
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}

	envelope := types.Envelope{
		EventID:    uuid.NewString(),
		EventType:  enums.EventPaymentSucceeded,
		OccurredAt: time.Now().UTC(),
		Payload:    json.RawMessage(`{"amount_cents":"not-a-number"}`),
	}
	if err := router.Handle(context.Background(), envelope); err == nil {
		t.Fatal("expected decode error")
	}
}

type overrideHandler struct {
	called bool
}

func (h *overrideHandler) Handle(context.Context, types.Envelope, any) error {
	h.called = true
	return nil
}

func TestRouterAppliesOverrides(t *testing.T) {
	custom := &overrideHandler{}
	router, err := NewRouter(&fakeWriter{}, testLogger(), map[enums.OutboxEventType]Handler{
		enums.EventPaymentFailed: custom,
	})
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}

	envelope := buildEnvelope(t, enums.EventPaymentFailed, payloads.PaymentFailedEvent{
		PaymentIntentID: uuid.New(),
	})
	if err := router.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !custom.called {
		t.Fatal("expected override handler invoked")
	}
}
