package types

import (
	"encoding/json"
	"sort"
	"time"
)

// Point is one dated row of numeric metrics, either a raw day or a bucket.
type Point struct {
	Date   time.Time
	Values map[string]float64
}

// Fields returns the metric names present on the point, sorted.
func (p Point) Fields() []string {
	out := make([]string, 0, len(p.Values))
	for k := range p.Values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON flattens values next to the date: {"date":"2024-06-01","revenue":12}.
func (p Point) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(p.Values)+1)
	for k, v := range p.Values {
		flat[k] = v
	}
	flat["date"] = p.Date.Format(DateLayout)
	return json.Marshal(flat)
}
