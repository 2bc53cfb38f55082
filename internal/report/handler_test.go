package report_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/impexflow/backend-impex/internal/report"
)

type stubStore struct {
	suppliers []report.SupplierSummary
	monthly   []report.MonthlySummary
	statuses  []report.ShipmentStatusCount
	from, to  time.Time
}

func (s *stubStore) SupplierSummaries(_ context.Context, from, to time.Time) ([]report.SupplierSummary, error) {
	s.from, s.to = from, to
	return s.suppliers, nil
}

func (s *stubStore) MonthlySummaries(_ context.Context, from, to time.Time) ([]report.MonthlySummary, error) {
	s.from, s.to = from, to
	return s.monthly, nil
}

func (s *stubStore) ShipmentStatusCounts(_ context.Context) ([]report.ShipmentStatusCount, error) {
	return s.statuses, nil
}

func TestSupplierReport(t *testing.T) {
	store := &stubStore{suppliers: []report.SupplierSummary{
		{SupplierName: "Frango Exports", EstimateCount: 3, TotalCostZAR: 1500000, TotalWeightKg: 75000, AvgCostPerKg: 20},
	}}
	router := report.NewHandler(report.HandlerConfig{Store: store}).Routes()

	req := httptest.NewRequest(http.MethodGet, "/suppliers?from=2026-01-01&to=2026-06-30", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Data []report.SupplierSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)
	require.Equal(t, "Frango Exports", payload.Data[0].SupplierName)

	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), store.from)
	// the "to" date is applied inclusively
	require.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), store.to)
}

func TestSupplierReportRejectsBadRange(t *testing.T) {
	router := report.NewHandler(report.HandlerConfig{Store: &stubStore{}}).Routes()

	for _, query := range []string{
		"?from=January",
		"?from=2026-06-30&to=2026-01-01",
	} {
		req := httptest.NewRequest(http.MethodGet, "/suppliers"+query, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestMonthlyReportEmpty(t *testing.T) {
	router := report.NewHandler(report.HandlerConfig{Store: &stubStore{}}).Routes()

	req := httptest.NewRequest(http.MethodGet, "/monthly", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data": []}`, rec.Body.String())
}

func TestShipmentStatusReport(t *testing.T) {
	store := &stubStore{statuses: []report.ShipmentStatusCount{
		{Status: "AT_PORT", Count: 2},
		{Status: "IN_TRANSIT", Count: 5},
	}}
	router := report.NewHandler(report.HandlerConfig{Store: store}).Routes()

	req := httptest.NewRequest(http.MethodGet, "/shipments", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Data []report.ShipmentStatusCount `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 2)
}
