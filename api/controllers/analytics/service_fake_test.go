package analytics

import (
	"context"

	"github.com/angelmondragon/insights/internal/analytics/types"
)

type testAnalyticsService struct {
	last        types.QueryRequest
	calls       int
	response    *types.QueryResponse
	err         error
	invalidated int
	invalidErr  error
}

func (s *testAnalyticsService) Query(ctx context.Context, req types.QueryRequest) (*types.QueryResponse, error) {
	s.last = req
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.response == nil {
		s.response = &types.QueryResponse{MetricKind: req.Descriptor.MetricKind, EntityID: req.Descriptor.EntityID, Current: req.Descriptor.Range}
	}
	return s.response, nil
}

func (s *testAnalyticsService) Invalidate(ctx context.Context) error {
	s.invalidated++
	return s.invalidErr
}

func (s *testAnalyticsService) called() bool {
	return s.calls > 0
}
