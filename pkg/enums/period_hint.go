package enums

import "fmt"

// PeriodHint tags how a date range was chosen; it selects the comparison policy.
type PeriodHint string

const (
	PeriodThisMonth   PeriodHint = "this_month"
	PeriodLastMonth   PeriodHint = "last_month"
	PeriodThisQuarter PeriodHint = "this_quarter"
	PeriodLastQuarter PeriodHint = "last_quarter"
	PeriodThisYear    PeriodHint = "this_year"
	PeriodLastYear    PeriodHint = "last_year"
	PeriodMonth       PeriodHint = "month"
	PeriodQuarter     PeriodHint = "quarter"
	PeriodYear        PeriodHint = "year"
	PeriodLast7Days   PeriodHint = "last_7_days"
	PeriodLast14Days  PeriodHint = "last_14_days"
	PeriodLast28Days  PeriodHint = "last_28_days"
	PeriodLast30Days  PeriodHint = "last_30_days"
	PeriodLast90Days  PeriodHint = "last_90_days"
	PeriodCustom      PeriodHint = "custom"
)

var validPeriodHints = []PeriodHint{
	PeriodThisMonth,
	PeriodLastMonth,
	PeriodThisQuarter,
	PeriodLastQuarter,
	PeriodThisYear,
	PeriodLastYear,
	PeriodMonth,
	PeriodQuarter,
	PeriodYear,
	PeriodLast7Days,
	PeriodLast14Days,
	PeriodLast28Days,
	PeriodLast30Days,
	PeriodLast90Days,
	PeriodCustom,
}

// String implements fmt.Stringer.
func (p PeriodHint) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PeriodHint.
func (p PeriodHint) IsValid() bool {
	for _, candidate := range validPeriodHints {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePeriodHint converts raw input into a PeriodHint. Empty input is custom.
func ParsePeriodHint(value string) (PeriodHint, error) {
	if value == "" {
		return PeriodCustom, nil
	}
	for _, candidate := range validPeriodHints {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid period hint %q", value)
}
