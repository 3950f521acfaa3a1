package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
	pkgerrors "github.com/angelmondragon/insights/pkg/errors"
)

type fakeResolver struct {
	mu          sync.Mutex
	payloads    map[string]json.RawMessage
	errs        map[string]error
	seen        []types.RequestDescriptor
	invalidated int
}

func (f *fakeResolver) Resolve(_ context.Context, desc types.RequestDescriptor) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, desc)
	key := desc.Range.String()
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.payloads[key], nil
}

func (f *fakeResolver) Invalidate(context.Context) error {
	f.invalidated++
	return nil
}

func mustRange(t *testing.T, start, end string) types.DateRange {
	t.Helper()
	r, err := types.ParseDateRange(start, end)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	return r
}

func TestServiceQueryKPISummaryComparesPeriods(t *testing.T) {
	current := mustRange(t, "2024-06-01", "2024-06-30")
	previous := mustRange(t, "2024-05-01", "2024-05-31")
	fake := &fakeResolver{payloads: map[string]json.RawMessage{
		current.String():  json.RawMessage(`{"revenue":150,"orders":"30","label":"x"}`),
		previous.String(): json.RawMessage(`[{"revenue":100,"orders":0}]`),
	}}
	srv, err := NewService(fake, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	resp, err := srv.Query(context.Background(), types.QueryRequest{
		Descriptor: types.RequestDescriptor{MetricKind: enums.MetricKindKPISummary, EntityID: "store-1", Range: current},
		Hint:       enums.PeriodMonth,
		Compare:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Previous == nil || resp.Previous.String() != previous.String() {
		t.Fatalf("unexpected previous range: %v", resp.Previous)
	}
	if len(resp.Summary) != 2 {
		t.Fatalf("expected numeric fields only, got %v", resp.Summary)
	}
	revenue := resp.Summary["revenue"]
	if revenue.Value.String() != "150" || revenue.CompareValue == nil || revenue.CompareValue.String() != "100" {
		t.Fatalf("unexpected revenue comparison: %+v", revenue)
	}
	if revenue.ChangePct == nil || *revenue.ChangePct != 50 {
		t.Fatalf("expected +50%%, got %v", revenue.ChangePct)
	}
	if resp.Summary["orders"].ChangePct != nil {
		t.Fatalf("change from zero must be undefined")
	}
}

func TestServiceQuerySeriesUsesSameGranularityForBothPeriods(t *testing.T) {
	current := mustRange(t, "2024-01-01", "2024-12-31")
	fake := &fakeResolver{payloads: map[string]json.RawMessage{}}
	fake.payloads[mustRange(t, "2023-01-01", "2023-12-31").String()] = json.RawMessage(`{"rows":[{"date":"2023-03-01","revenue":7}]}`)
	fake.payloads[current.String()] = json.RawMessage(`[
		{"date":"2024-01-05","revenue":100,"churn_rate":0.1},
		{"date":"2024-01-20","revenue":200,"churn_rate":0.3}
	]`)
	srv := &service{resolver: fake}

	resp, err := srv.Query(context.Background(), types.QueryRequest{
		Descriptor: types.RequestDescriptor{MetricKind: enums.MetricKindTimeSeries, EntityID: "store-1", Range: current},
		Hint:       enums.PeriodYear,
		Compare:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Granularity != enums.GranularityMonth {
		t.Fatalf("expected month buckets, got %s", resp.Granularity)
	}
	if len(resp.Series) != 12 || len(resp.PreviousSeries) != 12 {
		t.Fatalf("expected 12 buckets per period, got %d/%d", len(resp.Series), len(resp.PreviousSeries))
	}
	if resp.PreviousSeries[2].Values["revenue"] != 7 {
		t.Fatalf("previous march bucket mismatch: %v", resp.PreviousSeries[2].Values)
	}
	jan := resp.Series[0].Values
	if jan["revenue"] != 300 {
		t.Fatalf("revenue must be summed, got %v", jan["revenue"])
	}
	if jan["churn_rate"] < 0.1999 || jan["churn_rate"] > 0.2001 {
		t.Fatalf("churn must be averaged, got %v", jan["churn_rate"])
	}
}

func TestServiceQueryIntervalOverride(t *testing.T) {
	current := mustRange(t, "2024-06-01", "2024-06-30")
	fake := &fakeResolver{payloads: map[string]json.RawMessage{
		current.String(): json.RawMessage(`[{"date":"2024-06-03","orders":1},{"date":"2024-06-04","orders":2}]`),
	}}
	srv := &service{resolver: fake}

	resp, err := srv.Query(context.Background(), types.QueryRequest{
		Descriptor: types.RequestDescriptor{
			MetricKind: enums.MetricKindTimeSeries,
			EntityID:   "store-1",
			Range:      current,
			Params:     types.ExtraParams{Interval: "Week"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Granularity != enums.GranularityWeek {
		t.Fatalf("expected week override, got %s", resp.Granularity)
	}
	if resp.Previous != nil || resp.PreviousSeries != nil {
		t.Fatalf("no comparison requested")
	}
	if len(fake.seen) != 1 {
		t.Fatalf("expected one resolution, got %d", len(fake.seen))
	}
}

func TestServiceQueryPassesThroughOtherKinds(t *testing.T) {
	current := mustRange(t, "2024-06-01", "2024-06-30")
	fake := &fakeResolver{payloads: map[string]json.RawMessage{
		current.String(): json.RawMessage(`[{"source":"meta","revenue":5}]`),
	}}
	srv := &service{resolver: fake}

	resp, err := srv.Query(context.Background(), types.QueryRequest{
		Descriptor: types.RequestDescriptor{MetricKind: enums.MetricKindPlatformComparison, EntityID: "store-1", Range: current},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Data) != `[{"source":"meta","revenue":5}]` {
		t.Fatalf("unexpected data: %s", resp.Data)
	}
}

func TestServiceQueryFailsWholeQueryOnPreviousError(t *testing.T) {
	current := mustRange(t, "2024-06-01", "2024-06-30")
	previous := mustRange(t, "2024-05-01", "2024-05-31")
	want := errors.New("backend down")
	fake := &fakeResolver{
		payloads: map[string]json.RawMessage{current.String(): json.RawMessage(`{"revenue":1}`)},
		errs:     map[string]error{previous.String(): want},
	}
	srv := &service{resolver: fake}

	resp, err := srv.Query(context.Background(), types.QueryRequest{
		Descriptor: types.RequestDescriptor{MetricKind: enums.MetricKindKPISummary, EntityID: "store-1", Range: current},
		Hint:       enums.PeriodMonth,
		Compare:    true,
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if resp != nil {
		t.Fatalf("expected no partial response")
	}
}

func TestServiceQueryValidation(t *testing.T) {
	srv := &service{resolver: &fakeResolver{}}
	current := mustRange(t, "2024-06-01", "2024-06-30")

	cases := []types.QueryRequest{
		{Descriptor: types.RequestDescriptor{MetricKind: enums.MetricKindKPISummary, Range: current}},
		{Descriptor: types.RequestDescriptor{MetricKind: "funnel", EntityID: "s", Range: current}},
		{Descriptor: types.RequestDescriptor{MetricKind: enums.MetricKindKPISummary, EntityID: "s"}},
		{Descriptor: types.RequestDescriptor{MetricKind: enums.MetricKindKPISummary, EntityID: "s", Range: current}, Hint: "fortnight"},
	}
	for i, req := range cases {
		_, err := srv.Query(context.Background(), req)
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestServiceQueryRejectsUndecodableSeries(t *testing.T) {
	current := mustRange(t, "2024-06-01", "2024-06-30")
	fake := &fakeResolver{payloads: map[string]json.RawMessage{current.String(): json.RawMessage(`"oops"`)}}
	srv := &service{resolver: fake}

	_, err := srv.Query(context.Background(), types.QueryRequest{
		Descriptor: types.RequestDescriptor{MetricKind: enums.MetricKindRetention, EntityID: "store-1", Range: current},
	})
	if !errors.Is(err, types.ErrProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestServiceInvalidate(t *testing.T) {
	fake := &fakeResolver{}
	srv := &service{resolver: fake}
	if err := srv.Invalidate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.invalidated != 1 {
		t.Fatalf("expected resolver invalidation")
	}
}
