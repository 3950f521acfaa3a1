package types

import (
	"encoding/json"

	"github.com/angelmondragon/insights/pkg/enums"
	"github.com/shopspring/decimal"
)

// QueryRequest is a dashboard request for one metric, optionally with its comparison period.
type QueryRequest struct {
	Descriptor RequestDescriptor
	Hint       enums.PeriodHint
	Compare    bool
}

// MetricComparison pairs a value with its previous-period value.
type MetricComparison struct {
	Value        decimal.Decimal  `json:"value"`
	CompareValue *decimal.Decimal `json:"compare_value,omitempty"`
	ChangePct    *float64         `json:"change_pct,omitempty"`
}

// QueryResponse is what the dashboard renders for one metric.
type QueryResponse struct {
	MetricKind     enums.MetricKind            `json:"metric_kind"`
	EntityID       string                      `json:"entity_id"`
	Current        DateRange                   `json:"current"`
	Previous       *DateRange                  `json:"previous,omitempty"`
	Granularity    enums.Granularity           `json:"granularity,omitempty"`
	Series         []Point                     `json:"series,omitempty"`
	PreviousSeries []Point                     `json:"previous_series,omitempty"`
	Summary        map[string]MetricComparison `json:"summary,omitempty"`
	Data           json.RawMessage             `json:"data,omitempty"`
	PreviousData   json.RawMessage             `json:"previous_data,omitempty"`
}
