package resultcache

import (
	"testing"
	"time"

	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
)

func mustRange(t *testing.T, start, end string) types.DateRange {
	t.Helper()
	r, err := types.ParseDateRange(start, end)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	return r
}

func TestBuildKeyDeterministic(t *testing.T) {
	r := mustRange(t, "2024-06-01", "2024-06-30")
	a := BuildKey(enums.MetricKindTimeSeries, "store-1", r)
	b := BuildKey(enums.MetricKindTimeSeries, "store-1", types.NewDateRange(r.Start.Add(5*time.Hour), r.End))
	if a == "" || a != b {
		t.Fatalf("expected identical keys, got %q and %q", a, b)
	}
	if a != "time_series|store-1|2024-06-01|2024-06-30" {
		t.Fatalf("unexpected key %q", a)
	}
}

func TestBuildKeyDistinguishesComponents(t *testing.T) {
	r := mustRange(t, "2024-06-01", "2024-06-30")
	base := BuildKey(enums.MetricKindTimeSeries, "store-1", r)
	variants := []string{
		BuildKey(enums.MetricKindKPISummary, "store-1", r),
		BuildKey(enums.MetricKindTimeSeries, "store-2", r),
		BuildKey(enums.MetricKindTimeSeries, "store-1", mustRange(t, "2024-06-02", "2024-06-30")),
		BuildKey(enums.MetricKindTimeSeries, "store-1", mustRange(t, "2024-06-01", "2024-06-29")),
		BuildKey(enums.MetricKindTimeSeries, " store-1", r),
		BuildKey(enums.MetricKind("time_series "), "store-1", r),
	}
	for _, v := range variants {
		if v == base {
			t.Fatalf("expected %q to differ from %q", v, base)
		}
	}
}

func TestBuildKeyDelimiterCannotCollide(t *testing.T) {
	r := mustRange(t, "2024-06-01", "2024-06-30")
	a := BuildKey(enums.MetricKind("a|b"), "c", r)
	b := BuildKey(enums.MetricKind("a"), "b|c", r)
	if a == b {
		t.Fatalf("escaped components must not collide: %q", a)
	}
}

func TestBuildKeyMissingParts(t *testing.T) {
	r := mustRange(t, "2024-06-01", "2024-06-30")
	tests := []struct {
		name   string
		kind   enums.MetricKind
		entity string
		r      types.DateRange
	}{
		{name: "no kind", entity: "store-1", r: r},
		{name: "no entity", kind: enums.MetricKindKPISummary, r: r},
		{name: "blank entity", kind: enums.MetricKindKPISummary, entity: "  ", r: r},
		{name: "no start", kind: enums.MetricKindKPISummary, entity: "store-1", r: types.DateRange{End: r.End}},
		{name: "no end", kind: enums.MetricKindKPISummary, entity: "store-1", r: types.DateRange{Start: r.Start}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildKey(tt.kind, tt.entity, tt.r); got != "" {
				t.Fatalf("expected empty key, got %q", got)
			}
		})
	}
}

func TestKeyForIgnoresExtraParams(t *testing.T) {
	d := types.RequestDescriptor{
		MetricKind: enums.MetricKindPlatformComparison,
		EntityID:   "store-1",
		Range:      mustRange(t, "2024-06-01", "2024-06-30"),
	}
	withSources := d
	withSources.Params = types.ExtraParams{Sources: []string{"shopify"}, Interval: "week"}
	if KeyFor(d) != KeyFor(withSources) {
		t.Fatalf("extra params must not change the key")
	}
}
