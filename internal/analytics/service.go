package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/insights/internal/analytics/period"
	"github.com/angelmondragon/insights/internal/analytics/series"
	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
	pkgerrors "github.com/angelmondragon/insights/pkg/errors"
	"github.com/angelmondragon/insights/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Resolver produces payloads for request descriptors. *orchestrator.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, desc types.RequestDescriptor) (json.RawMessage, error)
	Invalidate(ctx context.Context) error
}

// Service shapes resolved payloads into dashboard responses.
type Service interface {
	// Query resolves one metric for one entity, with its comparison period when requested.
	Query(ctx context.Context, req types.QueryRequest) (*types.QueryResponse, error)
	// Invalidate drops every cached result.
	Invalidate(ctx context.Context) error
}

type service struct {
	resolver Resolver
	logg     *logger.Logger
}

// NewService builds an analytics service on top of a resolver.
func NewService(resolver Resolver, logg *logger.Logger) (Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	return &service{resolver: resolver, logg: logg}, nil
}

func (s *service) Query(ctx context.Context, req types.QueryRequest) (*types.QueryResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	desc := req.Descriptor
	resp := &types.QueryResponse{
		MetricKind: desc.MetricKind,
		EntityID:   desc.EntityID,
		Current:    desc.Range,
	}
	if req.Compare {
		previous, _ := period.Previous(desc.Range, req.Hint)
		resp.Previous = &previous
	}

	var current, previous json.RawMessage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		payload, err := s.resolver.Resolve(gctx, desc)
		current = payload
		return err
	})
	if resp.Previous != nil {
		prevDesc := desc.WithRange(*resp.Previous)
		g.Go(func() error {
			payload, err := s.resolver.Resolve(gctx, prevDesc)
			previous = payload
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch {
	case desc.MetricKind.IsSeries():
		if err := shapeSeries(resp, desc, current, previous); err != nil {
			return nil, err
		}
	case desc.MetricKind == enums.MetricKindKPISummary:
		if err := shapeSummary(resp, current, previous); err != nil {
			return nil, err
		}
	default:
		resp.Data = current
		resp.PreviousData = previous
	}

	if s.logg != nil {
		logCtx := s.logg.WithEntityID(ctx, desc.EntityID)
		logCtx = s.logg.WithMetricKind(logCtx, desc.MetricKind.String())
		s.logg.Debug(logCtx, "analytics.query_served")
	}
	return resp, nil
}

func (s *service) Invalidate(ctx context.Context) error {
	if err := s.resolver.Invalidate(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear analytics cache")
	}
	return nil
}

func validateRequest(req types.QueryRequest) error {
	desc := req.Descriptor
	if strings.TrimSpace(desc.EntityID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	if !desc.MetricKind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid metric kind")
	}
	if !desc.Range.Complete() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if desc.Range.End.Before(desc.Range.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must not be before start")
	}
	if req.Hint != "" && !req.Hint.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid period hint")
	}
	return nil
}

func shapeSeries(resp *types.QueryResponse, desc types.RequestDescriptor, current, previous json.RawMessage) error {
	rows, err := series.ParseRows(current)
	if err != nil {
		return undecodable(err)
	}
	resp.Series, resp.Granularity = series.Aggregate(rows, desc.Range, intervalHint(desc.Params.Interval))
	if resp.Previous == nil {
		return nil
	}
	prevRows, err := series.ParseRows(previous)
	if err != nil {
		return undecodable(err)
	}
	resp.PreviousSeries = series.AggregateAs(prevRows, *resp.Previous, resp.Granularity)
	return nil
}

// intervalHint returns "" for a blank or unknown interval so the span decides.
func intervalHint(raw string) enums.Granularity {
	g, err := enums.ParseGranularity(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return ""
	}
	return g
}

func shapeSummary(resp *types.QueryResponse, current, previous json.RawMessage) error {
	cur, err := decodeMetrics(current)
	if err != nil {
		return undecodable(err)
	}
	var prev map[string]decimal.Decimal
	if resp.Previous != nil {
		if prev, err = decodeMetrics(previous); err != nil {
			return undecodable(err)
		}
	}
	resp.Summary = make(map[string]types.MetricComparison, len(cur))
	for name, value := range cur {
		cmp := types.MetricComparison{Value: value}
		if resp.Previous != nil {
			before := prev[name]
			cmp.CompareValue = ptr(before)
			cmp.ChangePct = changePct(value, before)
		}
		resp.Summary[name] = cmp
	}
	return nil
}

// decodeMetrics reads a flat object of numbers, or the first object of an array.
func decodeMetrics(payload json.RawMessage) (map[string]decimal.Decimal, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if list, ok := raw.([]any); ok {
		if len(list) == 0 {
			return map[string]decimal.Decimal{}, nil
		}
		raw = list[0]
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("summary payload is not an object")
	}
	out := make(map[string]decimal.Decimal, len(obj))
	for name, value := range obj {
		var text string
		switch v := value.(type) {
		case json.Number:
			text = v.String()
		case string:
			text = strings.TrimSpace(v)
		default:
			continue
		}
		d, err := decimal.NewFromString(text)
		if err != nil {
			continue
		}
		out[name] = d
	}
	return out, nil
}

func undecodable(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeProtocol, fmt.Errorf("%w: %w", types.ErrProtocol, err), "undecodable analytics payload")
}

func changePct(current, previous decimal.Decimal) *float64 {
	if previous.IsZero() {
		return nil
	}
	diff := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
	f, _ := diff.Float64()
	return &f
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
