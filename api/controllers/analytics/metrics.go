package analytics

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/insights/api/responses"
	"github.com/angelmondragon/insights/internal/analytics"
	"github.com/angelmondragon/insights/internal/analytics/series"
	"github.com/angelmondragon/insights/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/insights/pkg/errors"
	"github.com/angelmondragon/insights/pkg/logger"
)

// MetricAnalytics serves one metric for one entity, optionally with its comparison period.
func MetricAnalytics(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, fill, err := parseMetricRequest(r, chi.URLParam(r, "entityID"), chi.URLParam(r, "metricKind"), timeNowUTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serveQuery(w, r, service, logg, req, fill)
	}
}

// QueryAnalytics serves the same payload as MetricAnalytics from a JSON body.
func QueryAnalytics(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, fill, err := parseMetricBody(r, timeNowUTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serveQuery(w, r, service, logg, req, fill)
	}
}

func serveQuery(w http.ResponseWriter, r *http.Request, service analytics.Service, logg *logger.Logger, req types.QueryRequest, fill bool) {
	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithEntityID(ctx, req.Descriptor.EntityID)
		ctx = logg.WithMetricKind(ctx, req.Descriptor.MetricKind.String())
	}

	result, err := service.Query(ctx, req)
	if err != nil {
		responses.WriteError(ctx, logg, w, contextError(err))
		return
	}

	if fill && result.Series != nil {
		result.Series = series.FillGaps(result.Series, result.Current, result.Granularity)
		if result.Previous != nil {
			result.PreviousSeries = series.FillGaps(result.PreviousSeries, *result.Previous, result.Granularity)
		}
	}

	responses.WriteSuccess(w, result)
}

// InvalidateCache drops every cached analytics result.
func InvalidateCache(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := service.Invalidate(ctx); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(ctx, "analytics.cache_invalidated")
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

func contextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return pkgerrors.Wrap(pkgerrors.CodeCanceled, err, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "analytics request timed out")
	default:
		return err
	}
}
