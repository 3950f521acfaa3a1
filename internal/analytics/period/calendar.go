package period

import (
	"time"

	"github.com/angelmondragon/insights/internal/analytics/types"
)

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func endOfMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, -1)
}

func startOfQuarter(t time.Time) time.Time {
	m := ((int(t.Month())-1)/3)*3 + 1
	return time.Date(t.Year(), time.Month(m), 1, 0, 0, 0, 0, time.UTC)
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

func daysIn(t time.Time) int {
	return endOfMonth(t).Day()
}

func monthsBetween(r types.DateRange) int {
	return (r.End.Year()-r.Start.Year())*12 + int(r.End.Month()) - int(r.Start.Month())
}

func sameMonth(r types.DateRange) bool {
	return r.Start.Year() == r.End.Year() && r.Start.Month() == r.End.Month()
}
