package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nordicloop/nordicloop-backend/internal/stats/types"
	"github.com/nordicloop/nordicloop-backend/pkg/enums"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/outbox/payloads"
)

var ErrUnsupportedEventType = errors.New("unsupported settlement event type")

// Writer delivers BigQuery rows produced by stats handlers.
type Writer interface {
	InsertSettlement(ctx context.Context, row types.SettlementEventRow) error
}

// Handler receives an envelope plus a decoded event payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

type handlerEntry struct {
	factory func() any
	handler Handler
}

// Router dispatches settlement envelopes to the configured handler per event type.
type Router struct {
	handlers map[enums.OutboxEventType]handlerEntry
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	entries := map[enums.OutboxEventType]handlerEntry{
		enums.EventPaymentSucceeded: {
			factory: func() any { return &payloads.PaymentSucceededEvent{} },
			handler: newPaymentSucceededHandler(writer, logg),
		},
		enums.EventPaymentFailed: {
			factory: func() any { return &payloads.PaymentFailedEvent{} },
			handler: newPaymentFailedHandler(writer, logg),
		},
		enums.EventPayoutScheduled: {
			factory: func() any { return &payloads.PayoutScheduledEvent{} },
			handler: newPayoutScheduledHandler(writer, logg),
		},
		enums.EventPayoutPaid: {
			factory: func() any { return &payloads.PayoutPaidEvent{} },
			handler: newPayoutPaidHandler(writer, logg),
		},
		enums.EventPayoutFailed: {
			factory: func() any { return &payloads.PayoutFailedEvent{} },
			handler: newPayoutFailedHandler(writer, logg),
		},
		enums.EventSellerAccountUpdated: {
			factory: func() any { return &payloads.SellerAccountUpdatedEvent{} },
			handler: newSellerAccountUpdatedHandler(writer, logg),
		},
	}

	for event, custom := range overrides {
		entry, ok := entries[event]
		if !ok || custom == nil {
			continue
		}
		entry.handler = custom
		entries[event] = entry
	}

	return &Router{
		handlers: entries,
		logg:     logg,
	}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	entry, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	payload := entry.factory()
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}

	return entry.handler.Handle(ctx, envelope, payload)
}
