package period

import (
	"fmt"
	"time"

	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
)

// RangeFor resolves a preset relative to today. Ranges that are still running end today.
// Hints without a fixed anchor (month, quarter, year, custom) need explicit dates.
func RangeFor(hint enums.PeriodHint, today time.Time) (types.DateRange, error) {
	today = types.Day(today)
	switch hint {
	case enums.PeriodThisMonth:
		return types.DateRange{Start: startOfMonth(today), End: today}, nil
	case enums.PeriodLastMonth:
		start := startOfMonth(today).AddDate(0, -1, 0)
		return types.DateRange{Start: start, End: endOfMonth(start)}, nil
	case enums.PeriodThisQuarter:
		return types.DateRange{Start: startOfQuarter(today), End: today}, nil
	case enums.PeriodLastQuarter:
		start := startOfQuarter(today).AddDate(0, -3, 0)
		return types.DateRange{Start: start, End: startOfQuarter(today).AddDate(0, 0, -1)}, nil
	case enums.PeriodThisYear:
		return types.DateRange{Start: startOfYear(today), End: today}, nil
	case enums.PeriodLastYear:
		start := startOfYear(today).AddDate(-1, 0, 0)
		return types.DateRange{Start: start, End: startOfYear(today).AddDate(0, 0, -1)}, nil
	case enums.PeriodLast7Days:
		return trailing(today, 7), nil
	case enums.PeriodLast14Days:
		return trailing(today, 14), nil
	case enums.PeriodLast28Days:
		return trailing(today, 28), nil
	case enums.PeriodLast30Days:
		return trailing(today, 30), nil
	case enums.PeriodLast90Days:
		return trailing(today, 90), nil
	default:
		return types.DateRange{}, fmt.Errorf("period %q requires explicit start and end dates", hint)
	}
}

func trailing(today time.Time, days int) types.DateRange {
	return types.DateRange{Start: today.AddDate(0, 0, -(days - 1)), End: today}
}
