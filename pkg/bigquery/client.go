package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/angelmondragon/insights/pkg/config"
	"github.com/angelmondragon/insights/pkg/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	metadataCheckTimeout = 10 * time.Second
)

type Client struct {
	client    *bigquery.Client
	dataset   *bigquery.Dataset
	projectID string
	tables    []string
	cfg       config.BigQueryConfig
}

// JobSnapshot is the observable state of an asynchronous query job.
type JobSnapshot struct {
	ID       string
	Location string
	Done     bool
	Err      error
}

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
	errJobIDRequired        = errors.New("bigquery job id is required")
)

type Pinger interface {
	Ping(context.Context) error
}

// NewClient creates a BigQuery client and verifies the configured dataset + tables.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}

	tables := configuredTables(cfg)
	if len(tables) == 0 {
		return nil, errTableNameRequired
	}

	opts := clientOptions(gcp)
	bqClient, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	if loc := strings.TrimSpace(cfg.Location); loc != "" {
		bqClient.Location = loc
	}

	client := &Client{
		client:    bqClient,
		dataset:   bqClient.Dataset(datasetID),
		projectID: projectID,
		tables:    tables,
		cfg:       cfg,
	}

	if err := client.ensureDatasetAndTables(ctx); err != nil {
		_ = bqClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "bigquery client initialized")
	}

	return client, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	return opts
}

func configuredTables(cfg config.BigQueryConfig) []string {
	tables := []string{}
	if trimmed := strings.TrimSpace(cfg.DailyMetricsTable); trimmed != "" {
		tables = append(tables, trimmed)
	}
	return tables
}

// TableRef returns the fully-qualified, backtick-quoted reference for SQL.
func TableRef(projectID, dataset, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", strings.TrimSpace(projectID), strings.TrimSpace(dataset), strings.TrimSpace(table))
}

// DailyTable returns the SQL reference of the configured daily metrics table.
func (c *Client) DailyTable() string {
	if c == nil {
		return ""
	}
	return TableRef(c.projectID, c.cfg.Dataset, c.cfg.DailyMetricsTable)
}

func (c *Client) ensureDatasetAndTables(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}

	for _, name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			if isNotFound(err) {
				return fmt.Errorf("table %q does not exist", name)
			}
			return fmt.Errorf("checking table %q: %w", name, err)
		}
	}

	return nil
}

// Ping verifies the dataset + tables are accessible.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errClientNotInitialized
	}
	return c.ensureDatasetAndTables(ctx)
}

// StartQuery submits SQL as an asynchronous job without waiting for it.
func (c *Client) StartQuery(ctx context.Context, sql string, params []bigquery.QueryParameter) (JobSnapshot, error) {
	if c == nil || c.client == nil {
		return JobSnapshot{}, errClientNotInitialized
	}
	if strings.TrimSpace(sql) == "" {
		return JobSnapshot{}, errors.New("sql query is required")
	}
	q := c.client.Query(sql)
	q.Parameters = params
	job, err := q.Run(ctx)
	if err != nil {
		return JobSnapshot{}, fmt.Errorf("starting query job: %w", err)
	}
	return c.snapshot(ctx, job)
}

// JobStatus reports the state of a previously started job.
func (c *Client) JobStatus(ctx context.Context, jobID, location string) (JobSnapshot, error) {
	job, err := c.lookup(ctx, jobID, location)
	if err != nil {
		return JobSnapshot{}, err
	}
	return c.snapshot(ctx, job)
}

// ReadJob drains the result rows of a finished job.
func (c *Client) ReadJob(ctx context.Context, jobID, location string) ([]map[string]bigquery.Value, error) {
	job, err := c.lookup(ctx, jobID, location)
	if err != nil {
		return nil, err
	}
	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading job %s: %w", jobID, err)
	}
	rows := []map[string]bigquery.Value{}
	for {
		row := map[string]bigquery.Value{}
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("iterating job %s: %w", jobID, err)
		}
		rows = append(rows, row)
	}
}

func (c *Client) lookup(ctx context.Context, jobID, location string) (*bigquery.Job, error) {
	if c == nil || c.client == nil {
		return nil, errClientNotInitialized
	}
	if strings.TrimSpace(jobID) == "" {
		return nil, errJobIDRequired
	}
	if location == "" {
		location = c.client.Location
	}
	job, err := c.client.JobFromIDLocation(ctx, jobID, location)
	if err != nil {
		return nil, fmt.Errorf("loading job %s: %w", jobID, err)
	}
	return job, nil
}

func (c *Client) snapshot(ctx context.Context, job *bigquery.Job) (JobSnapshot, error) {
	status, err := job.Status(ctx)
	if err != nil {
		return JobSnapshot{}, fmt.Errorf("job %s status: %w", job.ID(), err)
	}
	return JobSnapshot{
		ID:       job.ID(),
		Location: job.Location(),
		Done:     status.Done(),
		Err:      status.Err(),
	}, nil
}

// Close releases the BigQuery client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Code == http.StatusNotFound
	}
	return false
}

// IsNotFound reports whether err is a BigQuery 404, such as an expired job.
func IsNotFound(err error) bool {
	return isNotFound(err)
}
