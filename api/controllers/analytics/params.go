package analytics

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/insights/api/validators"
	"github.com/angelmondragon/insights/internal/analytics/period"
	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
	pkgerrors "github.com/angelmondragon/insights/pkg/errors"
)

const (
	maxEntityIDLength = 128
	maxSources        = 10
	defaultPreset     = enums.PeriodLast30Days
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

type metricQuery struct {
	Start    string `json:"start" validate:"required_with=End,omitempty,datetime=2006-01-02"`
	End      string `json:"end" validate:"required_with=Start,omitempty,datetime=2006-01-02"`
	Preset   string `json:"preset" validate:"omitempty,max=32"`
	Interval string `json:"interval" validate:"omitempty,oneof=day week month"`
}

type metricQueryBody struct {
	EntityID   string   `json:"entity_id" validate:"required,max=128"`
	MetricKind string   `json:"metric_kind" validate:"required"`
	Sources    []string `json:"sources" validate:"max=10,dive,max=64"`
	Compare    bool     `json:"compare"`
	Fill       bool     `json:"fill"`
	metricQuery
}

func parseMetricBody(r *http.Request, now time.Time) (types.QueryRequest, bool, error) {
	var body metricQueryBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return types.QueryRequest{}, false, err
	}
	entityID := validators.SanitizeString(body.EntityID, maxEntityIDLength)
	if entityID == "" {
		return types.QueryRequest{}, false, pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	kind, err := enums.ParseMetricKind(strings.TrimSpace(body.MetricKind))
	if err != nil {
		return types.QueryRequest{}, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid metric kind")
	}

	params := body.metricQuery
	params.Preset = strings.ToLower(strings.TrimSpace(params.Preset))
	params.Interval = strings.ToLower(strings.TrimSpace(params.Interval))
	rng, hint, err := resolveRange(params, now)
	if err != nil {
		return types.QueryRequest{}, false, err
	}

	var sources []string
	for _, source := range body.Sources {
		if trimmed := validators.SanitizeString(source, 64); trimmed != "" {
			sources = append(sources, trimmed)
		}
	}

	return types.QueryRequest{
		Descriptor: types.RequestDescriptor{
			MetricKind: kind,
			EntityID:   entityID,
			Range:      rng,
			Params:     types.ExtraParams{Sources: sources, Interval: params.Interval},
		},
		Hint:    hint,
		Compare: body.Compare,
	}, body.Fill, nil
}

func parseMetricRequest(r *http.Request, entityID, metricKind string, now time.Time) (types.QueryRequest, bool, error) {
	entityID = validators.SanitizeString(entityID, maxEntityIDLength)
	if entityID == "" {
		return types.QueryRequest{}, false, pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	kind, err := enums.ParseMetricKind(strings.TrimSpace(metricKind))
	if err != nil {
		return types.QueryRequest{}, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid metric kind")
	}

	query := r.URL.Query()
	params := metricQuery{
		Start:    strings.TrimSpace(query.Get("start")),
		End:      strings.TrimSpace(query.Get("end")),
		Preset:   strings.ToLower(strings.TrimSpace(query.Get("preset"))),
		Interval: strings.ToLower(strings.TrimSpace(query.Get("interval"))),
	}
	if err := validators.ValidateStruct(&params); err != nil {
		return types.QueryRequest{}, false, err
	}

	rng, hint, err := resolveRange(params, now)
	if err != nil {
		return types.QueryRequest{}, false, err
	}
	compare, err := validators.ParseQueryBool(r, "compare", false)
	if err != nil {
		return types.QueryRequest{}, false, err
	}
	fill, err := validators.ParseQueryBool(r, "fill", false)
	if err != nil {
		return types.QueryRequest{}, false, err
	}
	sources, err := validators.ParseQueryList(r, "sources", maxSources)
	if err != nil {
		return types.QueryRequest{}, false, err
	}

	return types.QueryRequest{
		Descriptor: types.RequestDescriptor{
			MetricKind: kind,
			EntityID:   entityID,
			Range:      rng,
			Params:     types.ExtraParams{Sources: sources, Interval: params.Interval},
		},
		Hint:    hint,
		Compare: compare,
	}, fill, nil
}

// resolveRange prefers an explicit start/end pair. The preset then acts as the
// comparison hint only. Without dates the preset (default last_30_days) picks the range.
func resolveRange(params metricQuery, now time.Time) (types.DateRange, enums.PeriodHint, error) {
	var hint enums.PeriodHint
	if params.Preset != "" {
		parsed, err := enums.ParsePeriodHint(params.Preset)
		if err != nil {
			return types.DateRange{}, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid preset")
		}
		hint = parsed
	}

	if params.Start != "" {
		rng, err := types.ParseDateRange(params.Start, params.End)
		if err != nil {
			return types.DateRange{}, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date range")
		}
		if hint == "" {
			hint = enums.PeriodCustom
		}
		return rng, hint, nil
	}

	if hint == "" {
		hint = defaultPreset
	}
	rng, err := period.RangeFor(hint, now)
	if err != nil {
		return types.DateRange{}, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "preset requires explicit start and end")
	}
	return rng, hint, nil
}
