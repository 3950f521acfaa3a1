package series

import (
	"time"

	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
)

const (
	daysPerMonth     = 30.4375
	monthlyThreshold = 11.5
	weeklyThreshold  = 2.2
)

// ResolveGranularity picks the bucket size from the inclusive span of r.
// 66 days or fewer stay daily, 67 to 350 days are weekly, longer spans are monthly.
func ResolveGranularity(r types.DateRange) enums.Granularity {
	spanMonths := float64(r.Days()) / daysPerMonth
	switch {
	case spanMonths >= monthlyThreshold:
		return enums.GranularityMonth
	case spanMonths > weeklyThreshold:
		return enums.GranularityWeek
	default:
		return enums.GranularityDay
	}
}

// BucketStart returns the first day of the bucket holding t. Weeks start on Monday.
func BucketStart(t time.Time, g enums.Granularity) time.Time {
	t = types.Day(t)
	switch g {
	case enums.GranularityWeek:
		daysBack := (int(t.Weekday()) + 6) % 7
		return time.Date(t.Year(), t.Month(), t.Day()-daysBack, 0, 0, 0, 0, time.UTC)
	case enums.GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

func bucketNext(t time.Time, g enums.Granularity) time.Time {
	switch g {
	case enums.GranularityWeek:
		return t.AddDate(0, 0, 7)
	case enums.GranularityMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Buckets lists the start date of every bucket touched by r.
func Buckets(r types.DateRange, g enums.Granularity) []time.Time {
	if !r.Complete() {
		return nil
	}
	var out []time.Time
	end := types.Day(r.End)
	for cur := BucketStart(r.Start, g); !cur.After(end); cur = bucketNext(cur, g) {
		out = append(out, cur)
	}
	return out
}
