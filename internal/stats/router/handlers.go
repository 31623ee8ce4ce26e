package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/nordicloop/nordicloop-backend/internal/stats/types"
	"github.com/nordicloop/nordicloop-backend/internal/stats/writer"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/outbox/payloads"
)

type paymentSucceededHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newPaymentSucceededHandler(writer Writer, logg *logger.Logger) Handler {
	return &paymentSucceededHandler{writer: writer, logg: logg}
}

func (h *paymentSucceededHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.PaymentSucceededEvent)
	if !ok {
		return fmt.Errorf("invalid payload for payment.succeeded")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":        envelope.EventType,
		"payment_intent_id": event.PaymentIntentID,
		"amount_cents":      event.AmountCents,
	})

	row, err := baseRow(envelope)
	if err != nil {
		return err
	}
	row.PaymentIntentID = stringPtr(event.PaymentIntentID.String())
	row.BidID = stringPtr(event.BidID.String())
	row.BuyerCompanyID = stringPtr(event.BuyerCompanyID.String())
	row.SellerCompanyID = stringPtr(event.SellerCompanyID.String())
	row.Currency = stringPtr(event.Currency)
	row.AmountCents = int64Ptr(event.AmountCents)
	row.CommissionCents = int64Ptr(event.CommissionCents)
	row.SellerAmountCents = int64Ptr(event.SellerAmountCents)
	if !event.SucceededAt.IsZero() {
		row.OccurredAt = event.SucceededAt.UTC()
	}

	if err := h.writer.InsertSettlement(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert settlement row", err)
		return err
	}
	h.logg.Info(logCtx, "payment.succeeded row inserted")
	return nil
}

type paymentFailedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newPaymentFailedHandler(writer Writer, logg *logger.Logger) Handler {
	return &paymentFailedHandler{writer: writer, logg: logg}
}

func (h *paymentFailedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.PaymentFailedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for payment.failed")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":        envelope.EventType,
		"payment_intent_id": event.PaymentIntentID,
		"failure_code":      event.FailureCode,
	})

	row, err := baseRow(envelope)
	if err != nil {
		return err
	}
	row.PaymentIntentID = stringPtr(event.PaymentIntentID.String())
	row.BidID = stringPtr(event.BidID.String())
	row.BuyerCompanyID = stringPtr(event.BuyerCompanyID.String())
	row.SellerCompanyID = stringPtr(event.SellerCompanyID.String())
	row.FailureCode = stringPtr(event.FailureCode)
	if !event.FailedAt.IsZero() {
		row.OccurredAt = event.FailedAt.UTC()
	}

	if err := h.writer.InsertSettlement(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert settlement row", err)
		return err
	}
	h.logg.Info(logCtx, "payment.failed row inserted")
	return nil
}

type payoutScheduledHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newPayoutScheduledHandler(writer Writer, logg *logger.Logger) Handler {
	return &payoutScheduledHandler{writer: writer, logg: logg}
}

func (h *payoutScheduledHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.PayoutScheduledEvent)
	if !ok {
		return fmt.Errorf("invalid payload for payout.scheduled")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":         envelope.EventType,
		"payout_schedule_id": event.PayoutScheduleID,
	})

	row, err := baseRow(envelope)
	if err != nil {
		return err
	}
	row.PayoutScheduleID = stringPtr(event.PayoutScheduleID.String())
	row.PaymentIntentID = stringPtr(event.PaymentIntentID.String())
	row.SellerCompanyID = stringPtr(event.SellerCompanyID.String())
	row.Currency = stringPtr(event.Currency)
	row.AmountCents = int64Ptr(event.AmountCents)

	if err := h.writer.InsertSettlement(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert settlement row", err)
		return err
	}
	h.logg.Info(logCtx, "payout.scheduled row inserted")
	return nil
}

type payoutPaidHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newPayoutPaidHandler(writer Writer, logg *logger.Logger) Handler {
	return &payoutPaidHandler{writer: writer, logg: logg}
}

func (h *payoutPaidHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.PayoutPaidEvent)
	if !ok {
		return fmt.Errorf("invalid payload for payout.paid")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":         envelope.EventType,
		"payout_schedule_id": event.PayoutScheduleID,
		"amount_cents":       event.AmountCents,
	})

	row, err := baseRow(envelope)
	if err != nil {
		return err
	}
	row.PayoutScheduleID = stringPtr(event.PayoutScheduleID.String())
	row.PaymentIntentID = stringPtr(event.PaymentIntentID.String())
	row.SellerCompanyID = stringPtr(event.SellerCompanyID.String())
	row.Currency = stringPtr(event.Currency)
	row.AmountCents = int64Ptr(event.AmountCents)
	if !event.PaidAt.IsZero() {
		row.OccurredAt = event.PaidAt.UTC()
	}

	if err := h.writer.InsertSettlement(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert settlement row", err)
		return err
	}
	h.logg.Info(logCtx, "payout.paid row inserted")
	return nil
}

type payoutFailedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newPayoutFailedHandler(writer Writer, logg *logger.Logger) Handler {
	return &payoutFailedHandler{writer: writer, logg: logg}
}

func (h *payoutFailedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.PayoutFailedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for payout.failed")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":         envelope.EventType,
		"payout_schedule_id": event.PayoutScheduleID,
		"failure_reason":     event.FailureReason,
	})

	row, err := baseRow(envelope)
	if err != nil {
		return err
	}
	row.PayoutScheduleID = stringPtr(event.PayoutScheduleID.String())
	row.PaymentIntentID = stringPtr(event.PaymentIntentID.String())
	row.SellerCompanyID = stringPtr(event.SellerCompanyID.String())
	row.AmountCents = int64Ptr(event.AmountCents)
	row.FailureCode = stringPtr(event.FailureReason)
	if !event.FailedAt.IsZero() {
		row.OccurredAt = event.FailedAt.UTC()
	}

	if err := h.writer.InsertSettlement(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert settlement row", err)
		return err
	}
	h.logg.Info(logCtx, "payout.failed row inserted")
	return nil
}

type sellerAccountUpdatedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newSellerAccountUpdatedHandler(writer Writer, logg *logger.Logger) Handler {
	return &sellerAccountUpdatedHandler{writer: writer, logg: logg}
}

func (h *sellerAccountUpdatedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.SellerAccountUpdatedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for seller_account.updated")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":        envelope.EventType,
		"seller_account_id": event.SellerAccountID,
		"status":            event.Status,
	})

	row, err := baseRow(envelope)
	if err != nil {
		return err
	}
	row.SellerCompanyID = stringPtr(event.CompanyID.String())
	if !event.UpdatedAt.IsZero() {
		row.OccurredAt = event.UpdatedAt.UTC()
	}

	if err := h.writer.InsertSettlement(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert settlement row", err)
		return err
	}
	h.logg.Info(logCtx, "seller_account.updated row inserted")
	return nil
}

func baseRow(envelope types.Envelope) (types.SettlementEventRow, error) {
	payloadJSON, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		return types.SettlementEventRow{}, fmt.Errorf("encode payload: %w", err)
	}
	return types.SettlementEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt.UTC(),
		Payload:    payloadJSON,
	}, nil
}

// stringPtr returns a trimmed pointer or nil when the input is empty.
func stringPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// int64Ptr returns a pointer to the provided int64 value.
func int64Ptr(value int64) *int64 {
	return &value
}
