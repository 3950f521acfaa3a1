package series

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/insights/internal/analytics/types"
)

var dateFields = []string{"date", "day", "bucket"}

var rowContainers = []string{"rows", "series", "data", "points"}

// ParseRows decodes a payload of daily rows. It accepts a bare array or an object
// wrapping the array under rows, series, data or points. Non-numeric fields are
// ignored and numeric-looking strings are parsed. Rows are returned oldest first.
func ParseRows(payload json.RawMessage) ([]types.Point, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []types.Point{}, nil
	}

	raw, err := rowArray(trimmed)
	if err != nil {
		return nil, err
	}

	points := make([]types.Point, 0, len(raw))
	for i, obj := range raw {
		p, err := parseRow(obj)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		points = append(points, p)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func rowArray(payload []byte) ([]map[string]json.RawMessage, error) {
	var rows []map[string]json.RawMessage
	if payload[0] == '[' {
		if err := json.Unmarshal(payload, &rows); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
		return rows, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	for _, key := range rowContainers {
		inner, ok := wrapper[key]
		if !ok {
			continue
		}
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && inner[0] == '[' {
			if err := json.Unmarshal(inner, &rows); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			return rows, nil
		}
	}
	return nil, fmt.Errorf("payload holds no row array")
}

func parseRow(obj map[string]json.RawMessage) (types.Point, error) {
	var (
		date      time.Time
		dateField string
	)
	for _, name := range dateFields {
		raw, ok := obj[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return types.Point{}, fmt.Errorf("%s is not a string", name)
		}
		d, err := parseDate(s)
		if err != nil {
			return types.Point{}, err
		}
		date, dateField = d, name
		break
	}
	if dateField == "" {
		return types.Point{}, fmt.Errorf("missing date")
	}

	values := map[string]float64{}
	for name, raw := range obj {
		if name == dateField {
			continue
		}
		if v, ok := numeric(raw); ok {
			values[name] = v
		}
	}
	return types.Point{Date: date, Values: values}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(types.DateLayout, s); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return types.Day(ts), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func numeric(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case 't', 'f', 'n', '{', '[':
		return 0, false
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, false
		}
		v, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return v, true
	}
}
