package series

import "strings"

// FieldKind decides how a metric folds into a bucket.
type FieldKind int

const (
	// Additive metrics are summed.
	Additive FieldKind = iota
	// Average metrics are averaged over the rows that carried them.
	Average
)

func (k FieldKind) String() string {
	if k == Average {
		return "average"
	}
	return "additive"
}

var averageFields = map[string]struct{}{
	"avg_order_value":       {},
	"average_order_value":   {},
	"aov":                   {},
	"avg_items_per_order":   {},
	"repurchase_cycle_days": {},
	"avg_repurchase_cycle":  {},
	"avg_session_duration":  {},
	"retention_rate":        {},
	"repeat_purchase_rate":  {},
	"churn_rate":            {},
	"conversion_rate":       {},
	"click_through_rate":    {},
	"ctr":                   {},
	"bounce_rate":           {},
	"roi":                   {},
	"roas":                  {},
	"cpc":                   {},
	"cpm":                   {},
	"cac":                   {},
	"ltv":                   {},
	"margin_rate":           {},
}

// Classify reports whether name is summed or averaged. Unknown names are additive.
func Classify(name string) FieldKind {
	if _, ok := averageFields[strings.ToLower(strings.TrimSpace(name))]; ok {
		return Average
	}
	return Additive
}

// AverageFields lists the averaged metric names.
func AverageFields() []string {
	out := make([]string, 0, len(averageFields))
	for name := range averageFields {
		out = append(out, name)
	}
	return out
}
