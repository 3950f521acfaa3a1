package period

import (
	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
)

// Policy is the rule used to derive a comparison range.
type Policy string

const (
	// PolicyCalendar steps back by whole calendar months.
	PolicyCalendar Policy = "calendar"
	// PolicyDayAligned keeps the same days of the previous month.
	PolicyDayAligned Policy = "day_aligned"
	// PolicyDayCount steps back by the same number of days.
	PolicyDayCount Policy = "day_count"
)

// Pair is a range together with its comparison range.
type Pair struct {
	Current  types.DateRange  `json:"current"`
	Previous types.DateRange  `json:"previous"`
	Hint     enums.PeriodHint `json:"hint"`
	Policy   Policy           `json:"policy"`
}

// PolicyFor maps a hint to its canonical policy. Unknown hints count days.
func PolicyFor(hint enums.PeriodHint) Policy {
	switch hint {
	case enums.PeriodThisMonth:
		return PolicyDayAligned
	case enums.PeriodMonth, enums.PeriodQuarter, enums.PeriodYear,
		enums.PeriodLastMonth, enums.PeriodThisQuarter, enums.PeriodLastQuarter,
		enums.PeriodThisYear, enums.PeriodLastYear:
		return PolicyCalendar
	default:
		return PolicyDayCount
	}
}

// Previous derives the comparison range for r. The result always ends before r starts.
func Previous(r types.DateRange, hint enums.PeriodHint) (types.DateRange, Policy) {
	r = types.NewDateRange(r.Start, r.End)
	policy := PolicyFor(hint)
	switch policy {
	case PolicyDayAligned:
		if sameMonth(r) {
			return dayAligned(r), PolicyDayAligned
		}
		return calendar(r), PolicyCalendar
	case PolicyCalendar:
		return calendar(r), PolicyCalendar
	default:
		return dayCount(r), PolicyDayCount
	}
}

// Compare bundles r with its comparison range.
func Compare(r types.DateRange, hint enums.PeriodHint) Pair {
	prev, policy := Previous(r, hint)
	return Pair{
		Current:  types.NewDateRange(r.Start, r.End),
		Previous: prev,
		Hint:     hint,
		Policy:   policy,
	}
}

func calendar(r types.DateRange) types.DateRange {
	span := monthsBetween(r) + 1
	return types.DateRange{
		Start: startOfMonth(r.Start).AddDate(0, -span, 0),
		End:   r.Start.AddDate(0, 0, -1),
	}
}

func dayAligned(r types.DateRange) types.DateRange {
	prevMonth := startOfMonth(r.Start).AddDate(0, -1, 0)
	last := daysIn(prevMonth)
	return types.DateRange{
		Start: prevMonth.AddDate(0, 0, min(r.Start.Day(), last)-1),
		End:   prevMonth.AddDate(0, 0, min(r.End.Day(), last)-1),
	}
}

func dayCount(r types.DateRange) types.DateRange {
	n := r.Days() - 1
	prevEnd := r.Start.AddDate(0, 0, -1)
	return types.DateRange{
		Start: prevEnd.AddDate(0, 0, -n),
		End:   prevEnd,
	}
}
