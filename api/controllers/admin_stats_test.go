package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	statstypes "github.com/nordicloop/nordicloop-backend/internal/stats/types"
)

type testStatsService struct {
	lastReq statstypes.StatsRequest
	resp    *statstypes.StatsResponse
	err     error
}

func (s *testStatsService) Stats(ctx context.Context, req statstypes.StatsRequest) (*statstypes.StatsResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	if s.resp == nil {
		s.resp = &statstypes.StatsResponse{}
	}
	return s.resp, nil
}

func TestAdminPaymentStatsDefaultsToTrailingMonth(t *testing.T) {
	svc := &testStatsService{}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payments/stats", nil)
	resp := httptest.NewRecorder()
	AdminPaymentStats(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	window := svc.lastReq.End.Sub(svc.lastReq.Start)
	if window != 30*24*time.Hour {
		t.Fatalf("expected 30 day window, got %s", window)
	}
}

func TestAdminPaymentStatsParsesRange(t *testing.T) {
	svc := &testStatsService{}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payments/stats?start=2026-02-01&end=2026-02-28", nil)
	resp := httptest.NewRecorder()
	AdminPaymentStats(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.lastReq.Start != time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected start %s", svc.lastReq.Start)
	}
	if svc.lastReq.End != time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected end %s", svc.lastReq.End)
	}
}

func TestAdminPaymentStatsRejectsBadRange(t *testing.T) {
	svc := &testStatsService{}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payments/stats?start=not-a-date", nil)
	resp := httptest.NewRecorder()
	AdminPaymentStats(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminPaymentStatsWithoutBackend(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payments/stats", nil)
	resp := httptest.NewRecorder()
	AdminPaymentStats(nil, testLogger())(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
