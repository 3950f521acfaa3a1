package series

import (
	"math"
	"sort"
	"time"

	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
	"github.com/shopspring/decimal"
)

type accumulator struct {
	sums   map[string]decimal.Decimal
	counts map[string]int64
}

// Aggregate resamples daily rows. A valid hint picks the granularity;
// otherwise it follows from the span of r.
func Aggregate(rows []types.Point, r types.DateRange, hint enums.Granularity) ([]types.Point, enums.Granularity) {
	g := hint
	if !g.IsValid() {
		g = ResolveGranularity(r)
	}
	return AggregateAs(rows, r, g), g
}

// AggregateAs resamples daily rows into g buckets. Day granularity returns rows unchanged.
// Week and month series contain every bucket touched by r, zero-valued when empty.
// Rows dated outside r are dropped.
func AggregateAs(rows []types.Point, r types.DateRange, g enums.Granularity) []types.Point {
	if len(rows) == 0 {
		return []types.Point{}
	}
	if g == enums.GranularityDay || !g.IsValid() {
		return rows
	}

	fields := fieldUnion(rows)
	starts := Buckets(r, g)
	buckets := make(map[time.Time]*accumulator, len(starts))
	for _, start := range starts {
		buckets[start] = &accumulator{
			sums:   make(map[string]decimal.Decimal, len(fields)),
			counts: make(map[string]int64, len(fields)),
		}
	}

	for _, row := range rows {
		if !r.Contains(row.Date) {
			continue
		}
		acc, ok := buckets[BucketStart(row.Date, g)]
		if !ok {
			continue
		}
		for name, value := range row.Values {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				continue
			}
			acc.sums[name] = acc.sums[name].Add(decimal.NewFromFloat(value))
			acc.counts[name]++
		}
	}

	out := make([]types.Point, 0, len(starts))
	for _, start := range starts {
		acc := buckets[start]
		values := make(map[string]float64, len(fields))
		for _, name := range fields {
			values[name] = fold(name, acc.sums[name], acc.counts[name])
		}
		out = append(out, types.Point{Date: start, Values: values})
	}
	return out
}

func fold(name string, sum decimal.Decimal, count int64) float64 {
	if Classify(name) == Average {
		if count == 0 {
			return 0
		}
		sum = sum.Div(decimal.NewFromInt(count))
	}
	f, _ := sum.Float64()
	return f
}

func fieldUnion(rows []types.Point) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for name := range row.Values {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FillGaps returns one point per bucket of r, keeping existing points and
// inserting zero-valued ones for the missing buckets.
func FillGaps(points []types.Point, r types.DateRange, g enums.Granularity) []types.Point {
	byDate := make(map[time.Time]types.Point, len(points))
	for _, p := range points {
		byDate[BucketStart(p.Date, g)] = p
	}
	fields := fieldUnion(points)
	var out []types.Point
	for _, start := range Buckets(r, g) {
		if p, ok := byDate[start]; ok {
			out = append(out, p)
			continue
		}
		values := make(map[string]float64, len(fields))
		for _, name := range fields {
			values[name] = 0
		}
		out = append(out, types.Point{Date: start, Values: values})
	}
	return out
}
