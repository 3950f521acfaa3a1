package enums

import "fmt"

// MetricKind names the pre-aggregated computation requested from the backend.
type MetricKind string

const (
	MetricKindKPISummary         MetricKind = "kpi_summary"
	MetricKindTimeSeries         MetricKind = "time_series"
	MetricKindPlatformComparison MetricKind = "platform_comparison"
	MetricKindRetention          MetricKind = "retention"
)

var validMetricKinds = []MetricKind{
	MetricKindKPISummary,
	MetricKindTimeSeries,
	MetricKindPlatformComparison,
	MetricKindRetention,
}

// String implements fmt.Stringer.
func (m MetricKind) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MetricKind.
func (m MetricKind) IsValid() bool {
	for _, candidate := range validMetricKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsSeries reports whether the payload is a list of daily rows.
func (m MetricKind) IsSeries() bool {
	return m == MetricKindTimeSeries || m == MetricKindRetention
}

// ParseMetricKind converts raw input into a MetricKind.
func ParseMetricKind(value string) (MetricKind, error) {
	for _, candidate := range validMetricKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid metric kind %q", value)
}
