package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used on the wire and in cache keys.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// DateRange is an inclusive span of calendar dates. Both ends sit on UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDateRange normalizes both ends to calendar dates.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// ParseDateRange parses two YYYY-MM-DD dates and rejects inverted ranges.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q", start)
	}
	e, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q", end)
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return DateRange{Start: s, End: e}, nil
}

// Complete reports whether both endpoints are present.
func (r DateRange) Complete() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Days is the inclusive number of calendar days covered.
func (r DateRange) Days() int {
	if !r.Complete() || r.End.Before(r.Start) {
		return 0
	}
	return int(Day(r.End).Sub(Day(r.Start))/day) + 1
}

// Contains reports whether t falls on a date inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(r.Start)) && !d.After(Day(r.End))
}

// Overlaps reports whether both ranges share at least one date.
func (r DateRange) Overlaps(other DateRange) bool {
	return !Day(r.End).Before(Day(other.Start)) && !Day(other.End).Before(Day(r.Start))
}

func (r DateRange) StartDate() string {
	if r.Start.IsZero() {
		return ""
	}
	return r.Start.Format(DateLayout)
}

func (r DateRange) EndDate() string {
	if r.End.IsZero() {
		return ""
	}
	return r.End.Format(DateLayout)
}

func (r DateRange) String() string {
	return r.StartDate() + ".." + r.EndDate()
}

type dateRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{Start: r.StartDate(), End: r.EndDate()})
}

func (r *DateRange) UnmarshalJSON(data []byte) error {
	var raw dateRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDateRange(raw.Start, raw.End)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
