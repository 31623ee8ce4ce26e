package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordicloop/nordicloop-backend/api/responses"
	"github.com/nordicloop/nordicloop-backend/api/validators"
	"github.com/nordicloop/nordicloop-backend/internal/payments"
	"github.com/nordicloop/nordicloop-backend/pkg/db/models"
	pkgerrors "github.com/nordicloop/nordicloop-backend/pkg/errors"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/pagination"
)

type createPaymentRequest struct {
	BidID string `json:"bid_id" validate:"required,uuid"`
}

type paymentIntentResponse struct {
	ID                uuid.UUID       `json:"id"`
	BidID             uuid.UUID       `json:"bid_id"`
	BuyerCompanyID    uuid.UUID       `json:"buyer_company_id"`
	SellerCompanyID   uuid.UUID       `json:"seller_company_id"`
	AmountCents       int64           `json:"amount_cents"`
	CommissionCents   int64           `json:"commission_cents"`
	SellerAmountCents int64           `json:"seller_amount_cents"`
	CommissionRate    decimal.Decimal `json:"commission_rate"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	ClientSecret      *string         `json:"client_secret,omitempty"`
	FailureCode       *string         `json:"failure_code,omitempty"`
	FailureMessage    *string         `json:"failure_message,omitempty"`
	SucceededAt       *time.Time      `json:"succeeded_at,omitempty"`
	CanceledAt        *time.Time      `json:"canceled_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// The client secret is only disclosed to the buyer, who needs it to
// confirm the payment on the gateway's client SDK.
func paymentIntentToResponse(intent *models.PaymentIntent, viewer uuid.UUID) paymentIntentResponse {
	resp := paymentIntentResponse{
		ID:                intent.ID,
		BidID:             intent.BidID,
		BuyerCompanyID:    intent.BuyerCompanyID,
		SellerCompanyID:   intent.SellerCompanyID,
		AmountCents:       intent.AmountCents,
		CommissionCents:   intent.CommissionCents,
		SellerAmountCents: intent.SellerAmountCents,
		CommissionRate:    intent.CommissionRate,
		Currency:          string(intent.Currency),
		Status:            string(intent.Status),
		FailureCode:       intent.FailureCode,
		FailureMessage:    intent.FailureMessage,
		SucceededAt:       intent.SucceededAt,
		CanceledAt:        intent.CanceledAt,
		CreatedAt:         intent.CreatedAt,
	}
	if viewer == intent.BuyerCompanyID {
		resp.ClientSecret = intent.GatewayClientSecret
	}
	return resp
}

// CreatePayment opens a payment intent for a won bid.
func CreatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		companyID, err := companyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bidID, err := uuid.Parse(req.BidID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bid id"))
			return
		}

		intent, err := svc.CreateIntent(r.Context(), payments.CreateIntentInput{
			BidID:          bidID,
			BuyerCompanyID: companyID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, paymentIntentToResponse(intent, companyID))
	}
}

// ListPayments returns the calling company's payment intents, as buyer
// or seller, newest first, with cursor pagination.
func ListPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		companyID, err := companyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		intents, nextCursor, err := svc.ListByCompany(r.Context(), companyID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]paymentIntentResponse, 0, len(intents))
		for i := range intents {
			out = append(out, paymentIntentToResponse(&intents[i], companyID))
		}
		responses.WriteSuccess(w, map[string]any{
			"payments": out,
			"cursor":   nextCursor,
		})
	}
}

// GetPayment returns a payment intent to its buyer or seller.
func GetPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		companyID, intent, err := loadOwnedIntent(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentIntentToResponse(intent, companyID))
	}
}

// CancelPayment aborts an open payment intent. Only the buyer may cancel.
func CancelPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		companyID, err := companyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		intentID, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		intent, err := svc.Cancel(r.Context(), intentID, companyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentIntentToResponse(intent, companyID))
	}
}

// ConfirmPayment reconciles the intent against the gateway's view and
// returns the settled state. Used by clients that cannot wait for the
// webhook round trip.
func ConfirmPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		companyID, intent, err := loadOwnedIntent(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		confirmed, err := svc.Confirm(r.Context(), intent.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentIntentToResponse(confirmed, companyID))
	}
}

func loadOwnedIntent(r *http.Request, svc payments.Service) (uuid.UUID, *models.PaymentIntent, error) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		return uuid.Nil, nil, err
	}
	intentID, err := uuid.Parse(chi.URLParam(r, "paymentId"))
	if err != nil {
		return uuid.Nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id")
	}
	intent, err := svc.Get(r.Context(), intentID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if intent.BuyerCompanyID != companyID && intent.SellerCompanyID != companyID {
		return uuid.Nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	return companyID, intent, nil
}
