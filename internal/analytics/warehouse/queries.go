package warehouse

import (
	"fmt"
	"strings"

	cloudbigquery "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
	pkgerrors "github.com/angelmondragon/insights/pkg/errors"
)

// Every statement reads the daily table, one row per entity, source and day.
const (
	kpiSummarySQL = `
SELECT
  SUM(COALESCE(revenue, 0)) AS revenue,
  SUM(COALESCE(orders, 0)) AS orders,
  SUM(COALESCE(sessions, 0)) AS sessions,
  SUM(COALESCE(ad_spend, 0)) AS ad_spend,
  SUM(COALESCE(new_customers, 0)) AS new_customers,
  SAFE_DIVIDE(SUM(COALESCE(revenue, 0)), NULLIF(SUM(COALESCE(orders, 0)), 0)) AS avg_order_value,
  SAFE_DIVIDE(SUM(COALESCE(orders, 0)), NULLIF(SUM(COALESCE(sessions, 0)), 0)) AS conversion_rate,
  SAFE_DIVIDE(SUM(COALESCE(revenue, 0)), NULLIF(SUM(COALESCE(ad_spend, 0)), 0)) AS roas
FROM %s
WHERE entity_id = @entity_id
  AND date BETWEEN @start AND @end%s
`

	timeSeriesSQL = `
SELECT
  FORMAT_DATE('%%F', date) AS date,
  SUM(COALESCE(revenue, 0)) AS revenue,
  SUM(COALESCE(orders, 0)) AS orders,
  SUM(COALESCE(sessions, 0)) AS sessions,
  SUM(COALESCE(ad_spend, 0)) AS ad_spend,
  SAFE_DIVIDE(SUM(COALESCE(revenue, 0)), NULLIF(SUM(COALESCE(orders, 0)), 0)) AS avg_order_value,
  SAFE_DIVIDE(SUM(COALESCE(orders, 0)), NULLIF(SUM(COALESCE(sessions, 0)), 0)) AS conversion_rate
FROM %s
WHERE entity_id = @entity_id
  AND date BETWEEN @start AND @end%s
GROUP BY date
ORDER BY date ASC
`

	platformComparisonSQL = `
SELECT
  source,
  SUM(COALESCE(revenue, 0)) AS revenue,
  SUM(COALESCE(orders, 0)) AS orders,
  SUM(COALESCE(ad_spend, 0)) AS ad_spend,
  SAFE_DIVIDE(SUM(COALESCE(revenue, 0)), NULLIF(SUM(COALESCE(ad_spend, 0)), 0)) AS roas
FROM %s
WHERE entity_id = @entity_id
  AND date BETWEEN @start AND @end%s
GROUP BY source
ORDER BY revenue DESC
`

	retentionSQL = `
SELECT
  FORMAT_DATE('%%F', date) AS date,
  SUM(COALESCE(returning_customers, 0)) AS returning_customers,
  SUM(COALESCE(new_customers, 0)) AS new_customers,
  AVG(retention_rate) AS retention_rate,
  AVG(churn_rate) AS churn_rate
FROM %s
WHERE entity_id = @entity_id
  AND date BETWEEN @start AND @end%s
GROUP BY date
ORDER BY date ASC
`

	sourceClause = "\n  AND source IN UNNEST(@sources)"
)

var statements = map[enums.MetricKind]string{
	enums.MetricKindKPISummary:         kpiSummarySQL,
	enums.MetricKindTimeSeries:         timeSeriesSQL,
	enums.MetricKindPlatformComparison: platformComparisonSQL,
	enums.MetricKindRetention:          retentionSQL,
}

// buildQuery renders the statement and parameters for desc against table.
func buildQuery(table string, desc types.RequestDescriptor) (string, []cloudbigquery.QueryParameter, error) {
	tmpl, ok := statements[desc.MetricKind]
	if !ok {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported metric kind %q", desc.MetricKind))
	}
	if strings.TrimSpace(desc.EntityID) == "" || !desc.Range.Complete() {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id and date range are required")
	}

	params := []cloudbigquery.QueryParameter{
		{Name: "entity_id", Value: desc.EntityID},
		{Name: "start", Value: civil.DateOf(desc.Range.Start)},
		{Name: "end", Value: civil.DateOf(desc.Range.End)},
	}
	filter := ""
	if sources := cleanSources(desc.Params.Sources); len(sources) > 0 {
		filter = sourceClause
		params = append(params, cloudbigquery.QueryParameter{Name: "sources", Value: sources})
	}
	return fmt.Sprintf(tmpl, table, filter), params, nil
}

func cleanSources(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if trimmed := strings.ToLower(strings.TrimSpace(s)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
