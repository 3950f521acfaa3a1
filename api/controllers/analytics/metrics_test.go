package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
	"github.com/angelmondragon/insights/pkg/logger"
)

func newTestRouter(service *testAnalyticsService) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test"})
	r := chi.NewRouter()
	r.Get("/entities/{entityID}/metrics/{metricKind}", MetricAnalytics(service, logg))
	r.Post("/query", QueryAnalytics(service, logg))
	r.Delete("/cache", InvalidateCache(service, logg))
	return r
}

func freezeNow(t *testing.T, now time.Time) {
	t.Helper()
	timeNowUTC = func() time.Time { return now }
	t.Cleanup(func() { timeNowUTC = func() time.Time { return time.Now().UTC() } })
}

func TestMetricAnalyticsDefaultsToLast30Days(t *testing.T) {
	freezeNow(t, time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC))
	service := &testAnalyticsService{}

	rec := httptest.NewRecorder()
	newTestRouter(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entities/store-1/metrics/time_series", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	desc := service.last.Descriptor
	if desc.EntityID != "store-1" || desc.MetricKind != enums.MetricKindTimeSeries {
		t.Fatalf("unexpected descriptor %+v", desc)
	}
	if desc.Range.StartDate() != "2024-12-12" || desc.Range.EndDate() != "2025-01-10" {
		t.Fatalf("unexpected range %s", desc.Range)
	}
	if service.last.Hint != enums.PeriodLast30Days || service.last.Compare {
		t.Fatalf("unexpected hint/compare %s/%v", service.last.Hint, service.last.Compare)
	}
}

func TestMetricAnalyticsExplicitRangeWithPresetHint(t *testing.T) {
	service := &testAnalyticsService{}

	target := "/entities/store-1/metrics/kpi_summary?start=2024-06-01&end=2024-06-15&preset=this_month&compare=true&sources=meta,google&interval=week"
	rec := httptest.NewRecorder()
	newTestRouter(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	req := service.last
	if req.Descriptor.Range.String() != mustRange(t, "2024-06-01", "2024-06-15").String() {
		t.Fatalf("unexpected range %s", req.Descriptor.Range)
	}
	if req.Hint != enums.PeriodThisMonth || !req.Compare {
		t.Fatalf("unexpected hint/compare %s/%v", req.Hint, req.Compare)
	}
	if len(req.Descriptor.Params.Sources) != 2 || req.Descriptor.Params.Interval != "week" {
		t.Fatalf("unexpected params %+v", req.Descriptor.Params)
	}
}

func TestMetricAnalyticsValidation(t *testing.T) {
	cases := map[string]string{
		"unknown kind":      "/entities/store-1/metrics/funnel",
		"start without end": "/entities/store-1/metrics/kpi_summary?start=2024-06-01",
		"bad date":          "/entities/store-1/metrics/kpi_summary?start=06-01-2024&end=2024-06-30",
		"inverted range":    "/entities/store-1/metrics/kpi_summary?start=2024-06-30&end=2024-06-01",
		"unanchored preset": "/entities/store-1/metrics/kpi_summary?preset=quarter",
		"unknown preset":    "/entities/store-1/metrics/kpi_summary?preset=fortnight",
		"bad interval":      "/entities/store-1/metrics/time_series?interval=hour",
		"bad compare":       "/entities/store-1/metrics/time_series?compare=maybe",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			service := &testAnalyticsService{}
			rec := httptest.NewRecorder()
			newTestRouter(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if service.called() {
				t.Fatal("service should not be invoked for invalid requests")
			}
		})
	}
}

func TestMetricAnalyticsMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "backend failure", err: types.BackendFailure("quota exceeded"), status: http.StatusBadGateway},
		{name: "protocol", err: types.ProtocolError("bad shape"), status: http.StatusBadGateway},
		{name: "transport", err: types.TransportError("submit", errors.New("reset")), status: http.StatusServiceUnavailable},
		{name: "canceled", err: context.Canceled, status: 499},
		{name: "deadline", err: context.DeadlineExceeded, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := &testAnalyticsService{err: tc.err}
			rec := httptest.NewRecorder()
			newTestRouter(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entities/store-1/metrics/kpi_summary?start=2024-06-01&end=2024-06-30", nil))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestMetricAnalyticsFillsGaps(t *testing.T) {
	r := mustRange(t, "2024-06-01", "2024-06-03")
	service := &testAnalyticsService{response: &types.QueryResponse{
		MetricKind:  enums.MetricKindTimeSeries,
		EntityID:    "store-1",
		Current:     r,
		Granularity: enums.GranularityDay,
		Series: []types.Point{
			{Date: r.Start, Values: map[string]float64{"revenue": 5}},
		},
	}}

	rec := httptest.NewRecorder()
	newTestRouter(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entities/store-1/metrics/time_series?start=2024-06-01&end=2024-06-03&fill=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var envelope struct {
		Data struct {
			Series []map[string]any `json:"series"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Series) != 3 {
		t.Fatalf("expected 3 filled days, got %d", len(envelope.Data.Series))
	}
	if envelope.Data.Series[2]["date"] != "2024-06-03" || envelope.Data.Series[2]["revenue"] != float64(0) {
		t.Fatalf("unexpected filled point %v", envelope.Data.Series[2])
	}
}

func TestQueryAnalyticsFromBody(t *testing.T) {
	service := &testAnalyticsService{}
	body := `{"entity_id":"store-1","metric_kind":"platform_comparison","start":"2024-06-01","end":"2024-06-30","preset":"month","compare":true,"sources":[" Meta ",""]}`

	rec := httptest.NewRecorder()
	newTestRouter(service).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	req := service.last
	if req.Descriptor.MetricKind != enums.MetricKindPlatformComparison || req.Descriptor.EntityID != "store-1" {
		t.Fatalf("unexpected descriptor %+v", req.Descriptor)
	}
	if req.Hint != enums.PeriodMonth || !req.Compare {
		t.Fatalf("unexpected hint/compare %s/%v", req.Hint, req.Compare)
	}
	if len(req.Descriptor.Params.Sources) != 1 || req.Descriptor.Params.Sources[0] != "Meta" {
		t.Fatalf("unexpected sources %v", req.Descriptor.Params.Sources)
	}
}

func TestQueryAnalyticsBodyValidation(t *testing.T) {
	cases := map[string]string{
		"malformed":      `{"entity_id":`,
		"unknown field":  `{"entity_id":"store-1","metric_kind":"kpi_summary","range":"all"}`,
		"missing entity": `{"metric_kind":"kpi_summary"}`,
		"unknown kind":   `{"entity_id":"store-1","metric_kind":"funnel"}`,
		"end only":       `{"entity_id":"store-1","metric_kind":"kpi_summary","end":"2024-06-30"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			service := &testAnalyticsService{}
			rec := httptest.NewRecorder()
			newTestRouter(service).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if service.called() {
				t.Fatal("service should not be invoked for invalid bodies")
			}
		})
	}
}

func TestInvalidateCache(t *testing.T) {
	service := &testAnalyticsService{}
	rec := httptest.NewRecorder()
	newTestRouter(service).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cache", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if service.invalidated != 1 {
		t.Fatalf("expected one invalidation, got %d", service.invalidated)
	}
}

func mustRange(t *testing.T, start, end string) types.DateRange {
	t.Helper()
	r, err := types.ParseDateRange(start, end)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	return r
}
