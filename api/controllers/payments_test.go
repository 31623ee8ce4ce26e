package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordicloop/nordicloop-backend/api/middleware"
	"github.com/nordicloop/nordicloop-backend/internal/gateway"
	"github.com/nordicloop/nordicloop-backend/internal/payments"
	"github.com/nordicloop/nordicloop-backend/pkg/db/models"
	"github.com/nordicloop/nordicloop-backend/pkg/enums"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/pagination"
)

type testPaymentsService struct {
	createFn  func(ctx context.Context, input payments.CreateIntentInput) (*models.PaymentIntent, error)
	getFn     func(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	cancelFn  func(ctx context.Context, id, buyerCompanyID uuid.UUID) (*models.PaymentIntent, error)
	confirmFn func(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	listFn    func(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PaymentIntent, string, error)
}

func (s *testPaymentsService) CreateIntent(ctx context.Context, input payments.CreateIntentInput) (*models.PaymentIntent, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return nil, nil
}

func (s *testPaymentsService) Get(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, nil
}

func (s *testPaymentsService) Complete(ctx context.Context, snapshot *gateway.Intent) error {
	return nil
}

func (s *testPaymentsService) Fail(ctx context.Context, gatewayIntentID, failureCode, failureMessage string) error {
	return nil
}

func (s *testPaymentsService) Cancel(ctx context.Context, id, buyerCompanyID uuid.UUID) (*models.PaymentIntent, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, id, buyerCompanyID)
	}
	return nil, nil
}

func (s *testPaymentsService) Confirm(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, id)
	}
	return nil, nil
}

func (s *testPaymentsService) ListByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PaymentIntent, string, error) {
	if s.listFn != nil {
		return s.listFn(ctx, companyID, params)
	}
	return nil, "", nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func sampleIntent(buyer, seller uuid.UUID) *models.PaymentIntent {
	secret := "pi_1_secret"
	gatewayID := "pi_1"
	return &models.PaymentIntent{
		ID:                  uuid.New(),
		BidID:               uuid.New(),
		BuyerCompanyID:      buyer,
		SellerCompanyID:     seller,
		AmountCents:         1100000,
		CommissionCents:     77000,
		SellerAmountCents:   1023000,
		CommissionRate:      decimal.RequireFromString("7.00"),
		Currency:            enums.CurrencySEK,
		Status:              enums.PaymentIntentStatusRequiresPaymentMethod,
		GatewayIntentID:     &gatewayID,
		GatewayClientSecret: &secret,
	}
}

func TestCreatePayment(t *testing.T) {
	buyer := uuid.New()
	seller := uuid.New()
	bidID := uuid.New()
	svc := &testPaymentsService{
		createFn: func(ctx context.Context, input payments.CreateIntentInput) (*models.PaymentIntent, error) {
			if input.BidID != bidID {
				t.Fatalf("unexpected bid %s", input.BidID)
			}
			if input.BuyerCompanyID != buyer {
				t.Fatalf("unexpected buyer %s", input.BuyerCompanyID)
			}
			intent := sampleIntent(buyer, seller)
			intent.BidID = bidID
			return intent, nil
		},
	}

	body := `{"bid_id":"` + bidID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	req = req.WithContext(middleware.WithCompanyID(req.Context(), buyer.String()))
	resp := httptest.NewRecorder()
	CreatePayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data paymentIntentResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.ClientSecret == nil || *envelope.Data.ClientSecret != "pi_1_secret" {
		t.Fatal("buyer should receive the client secret")
	}
	if envelope.Data.CommissionCents+envelope.Data.SellerAmountCents != envelope.Data.AmountCents {
		t.Fatal("response amounts do not balance")
	}
}

func TestCreatePaymentRejectsBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{"bid_id":"not-a-uuid"}`))
	req = req.WithContext(middleware.WithCompanyID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	CreatePayment(&testPaymentsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetPaymentHidesSecretFromSeller(t *testing.T) {
	buyer := uuid.New()
	seller := uuid.New()
	intent := sampleIntent(buyer, seller)
	svc := &testPaymentsService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
			return intent, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+intent.ID.String(), nil)
	req = req.WithContext(middleware.WithCompanyID(req.Context(), seller.String()))
	req = addRouteParam(req, "paymentId", intent.ID.String())
	resp := httptest.NewRecorder()
	GetPayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data paymentIntentResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.ClientSecret != nil {
		t.Fatal("seller must not see the client secret")
	}
}

func TestGetPaymentRejectsStranger(t *testing.T) {
	intent := sampleIntent(uuid.New(), uuid.New())
	svc := &testPaymentsService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
			return intent, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+intent.ID.String(), nil)
	req = req.WithContext(middleware.WithCompanyID(req.Context(), uuid.NewString()))
	req = addRouteParam(req, "paymentId", intent.ID.String())
	resp := httptest.NewRecorder()
	GetPayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCancelPaymentPassesBuyer(t *testing.T) {
	buyer := uuid.New()
	intent := sampleIntent(buyer, uuid.New())
	canceledStatus := enums.PaymentIntentStatusCanceled
	svc := &testPaymentsService{
		cancelFn: func(ctx context.Context, id, buyerCompanyID uuid.UUID) (*models.PaymentIntent, error) {
			if buyerCompanyID != buyer {
				t.Fatalf("unexpected buyer %s", buyerCompanyID)
			}
			out := *intent
			out.Status = canceledStatus
			return &out, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+intent.ID.String()+"/cancel", nil)
	req = req.WithContext(middleware.WithCompanyID(req.Context(), buyer.String()))
	req = addRouteParam(req, "paymentId", intent.ID.String())
	resp := httptest.NewRecorder()
	CancelPayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data paymentIntentResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Status != string(enums.PaymentIntentStatusCanceled) {
		t.Fatalf("expected canceled status, got %s", envelope.Data.Status)
	}
}

func TestListPaymentsPassesPaginationAndViewer(t *testing.T) {
	buyer := uuid.New()
	seller := uuid.New()
	svc := &testPaymentsService{
		listFn: func(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PaymentIntent, string, error) {
			if companyID != seller {
				t.Fatalf("unexpected company %s", companyID)
			}
			if params.Limit != 10 || params.Cursor != "abc" {
				t.Fatalf("unexpected params %+v", params)
			}
			return []models.PaymentIntent{*sampleIntent(buyer, seller)}, "next-cursor", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments?limit=10&cursor=abc", nil)
	req = req.WithContext(middleware.WithCompanyID(req.Context(), seller.String()))
	resp := httptest.NewRecorder()
	ListPayments(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			Payments []paymentIntentResponse `json:"payments"`
			Cursor   string                  `json:"cursor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Payments) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(envelope.Data.Payments))
	}
	if envelope.Data.Cursor != "next-cursor" {
		t.Fatalf("cursor = %q", envelope.Data.Cursor)
	}
	if envelope.Data.Payments[0].ClientSecret != nil {
		t.Fatal("seller must not see the client secret in listings")
	}
}

func TestListPaymentsRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments?limit=0", nil)
	req = req.WithContext(middleware.WithCompanyID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	ListPayments(&testPaymentsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
