package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/bigquery"
	"github.com/angelmondragon/insights/pkg/enums"
	"github.com/angelmondragon/insights/pkg/logger"
)

const tokenSeparator = "/"

// jobRunner is the slice of *bigquery.Client the backend drives.
type jobRunner interface {
	StartQuery(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (bigquery.JobSnapshot, error)
	JobStatus(ctx context.Context, jobID, location string) (bigquery.JobSnapshot, error)
	ReadJob(ctx context.Context, jobID, location string) ([]map[string]cloudbigquery.Value, error)
	DailyTable() string
}

// Backend answers analytics requests with BigQuery jobs over the daily
// metrics table. Poll tokens have the form "<location>/<jobID>".
type Backend struct {
	runner jobRunner
	logg   *logger.Logger
}

// New builds a warehouse backend.
func New(runner jobRunner, logg *logger.Logger) (*Backend, error) {
	if runner == nil {
		return nil, errors.New("bigquery client required")
	}
	if strings.TrimSpace(runner.DailyTable()) == "" {
		return nil, errors.New("daily metrics table required")
	}
	return &Backend{runner: runner, logg: logg}, nil
}

// Submit starts the query job for desc. A job that finishes during submission
// is answered inline; anything else is handed back as a poll token.
func (b *Backend) Submit(ctx context.Context, desc types.RequestDescriptor) (types.TaskStatus, error) {
	sql, params, err := buildQuery(b.runner.DailyTable(), desc)
	if err != nil {
		return types.TaskStatus{}, err
	}
	snap, err := b.runner.StartQuery(ctx, sql, params)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.TaskStatus{}, ctxErr
		}
		return types.TaskStatus{}, types.TransportError("start analytics job", err)
	}
	if snap.Done && snap.Err == nil {
		return b.collect(ctx, snap)
	}
	if b.logg != nil {
		b.logg.Debug(b.logg.WithField(ctx, "job_id", snap.ID), "analytics.warehouse_job_started")
	}
	return types.TaskStatus{State: enums.TaskStateProcessing, Token: encodeToken(snap)}, nil
}

// PollStatus reports the job named by token.
func (b *Backend) PollStatus(ctx context.Context, token string) (types.TaskStatus, error) {
	location, jobID, err := decodeToken(token)
	if err != nil {
		return types.TaskStatus{}, err
	}
	snap, err := b.runner.JobStatus(ctx, jobID, location)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.TaskStatus{}, ctxErr
		}
		if bigquery.IsNotFound(err) {
			return types.TaskStatus{State: enums.TaskStateFailed, Error: "analytics job expired"}, nil
		}
		return types.TaskStatus{}, types.TransportError("analytics job status", err)
	}
	switch {
	case !snap.Done:
		return types.TaskStatus{State: enums.TaskStateProcessing}, nil
	case snap.Err != nil:
		return types.TaskStatus{State: enums.TaskStateFailed, Error: snap.Err.Error()}, nil
	default:
		if snap.ID == "" {
			snap.ID, snap.Location = jobID, location
		}
		return b.collect(ctx, snap)
	}
}

func (b *Backend) collect(ctx context.Context, snap bigquery.JobSnapshot) (types.TaskStatus, error) {
	rows, err := b.runner.ReadJob(ctx, snap.ID, snap.Location)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.TaskStatus{}, ctxErr
		}
		return types.TaskStatus{}, types.TransportError("read analytics job", err)
	}
	data, err := encodeRows(rows)
	if err != nil {
		return types.TaskStatus{}, types.TransportError("encode analytics rows", err)
	}
	return types.TaskStatus{State: enums.TaskStateSuccess, Data: data}, nil
}

func encodeToken(snap bigquery.JobSnapshot) string {
	return snap.Location + tokenSeparator + snap.ID
}

func decodeToken(token string) (location, jobID string, err error) {
	location, jobID, ok := strings.Cut(strings.TrimSpace(token), tokenSeparator)
	if !ok || strings.TrimSpace(jobID) == "" {
		return "", "", types.ProtocolError(fmt.Sprintf("malformed poll token %q", token))
	}
	return location, jobID, nil
}

func encodeRows(rows []map[string]cloudbigquery.Value) (json.RawMessage, error) {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		converted := make(map[string]any, len(row))
		for name, value := range row {
			converted[name] = jsonValue(value)
		}
		out = append(out, converted)
	}
	return json.Marshal(out)
}

// jsonValue maps BigQuery cell types onto values encoding/json can represent.
func jsonValue(v cloudbigquery.Value) any {
	switch value := v.(type) {
	case nil:
		return nil
	case civil.Date:
		return value.String()
	case civil.DateTime:
		return value.String()
	case civil.Time:
		return value.String()
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil
		}
		return value
	case *big.Rat:
		if value == nil {
			return nil
		}
		f, _ := value.Float64()
		return f
	case []cloudbigquery.Value:
		items := make([]any, len(value))
		for i, item := range value {
			items[i] = jsonValue(item)
		}
		return items
	default:
		return value
	}
}
