package types

import (
	"github.com/angelmondragon/insights/pkg/enums"
)

// ExtraParams are forwarded to the backend but do not take part in cache identity.
type ExtraParams struct {
	Sources  []string `json:"sources,omitempty"`
	Interval string   `json:"interval,omitempty"`
}

// RequestDescriptor identifies one metric computation for one entity over one range.
type RequestDescriptor struct {
	MetricKind enums.MetricKind
	EntityID   string
	Range      DateRange
	Params     ExtraParams
}

// WithRange returns a copy of the descriptor covering r.
func (d RequestDescriptor) WithRange(r DateRange) RequestDescriptor {
	d.Range = r
	if len(d.Params.Sources) > 0 {
		d.Params.Sources = append([]string(nil), d.Params.Sources...)
	}
	return d
}
