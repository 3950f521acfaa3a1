package resultcache

import (
	"net/url"
	"strings"

	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
)

const keyDelimiter = "|"

// BuildKey derives the cache identity of a computation. It returns "" when the
// metric kind, the entity or either end of the range is missing or blank, in
// which case nothing should be requested or cached. Parts are used verbatim,
// so the key covers exactly what the backend receives.
func BuildKey(kind enums.MetricKind, entityID string, r types.DateRange) string {
	if strings.TrimSpace(string(kind)) == "" || strings.TrimSpace(entityID) == "" || !r.Complete() {
		return ""
	}
	return strings.Join([]string{
		url.PathEscape(string(kind)),
		url.PathEscape(entityID),
		r.StartDate(),
		r.EndDate(),
	}, keyDelimiter)
}

// KeyFor builds the key of a descriptor. Extra params are not part of the identity.
func KeyFor(d types.RequestDescriptor) string {
	return BuildKey(d.MetricKind, d.EntityID, d.Range)
}
