package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
)

const (
	submitPath                  = "/analytics/requests"
	statusPathFormat            = "/analytics/requests/%s/status"
	defaultTimeout              = 15 * time.Second
	errorBodyReadLimit    int64 = 1024
	responseBodyReadLimit int64 = 32 << 20
)

var errBaseURLRequired = errors.New("analytics backend base url is required")

// HTTPClient speaks the submit/poll protocol over JSON HTTP.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
}

// Option configures optional client behavior.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *HTTPClient) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithTimeout bounds every individual submit or status call. It applies to a
// copy of the HTTP client, so a client passed to WithHTTPClient is not modified.
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewHTTPClient builds a client rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid analytics backend base url: %w", err)
	}

	client := &HTTPClient{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.timeout > 0 {
		hc := *client.httpClient
		hc.Timeout = client.timeout
		client.httpClient = &hc
	}
	return client, nil
}

type submitParams struct {
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Sources   []string `json:"sources,omitempty"`
	Interval  string   `json:"interval,omitempty"`
}

type submitRequest struct {
	EntityID   string       `json:"entity_id"`
	MetricKind string       `json:"metric_kind"`
	Params     submitParams `json:"params"`
}

type statusResponse struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data,omitempty"`
	CacheKey string          `json:"cache_key,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func (c *HTTPClient) Submit(ctx context.Context, desc types.RequestDescriptor) (types.TaskStatus, error) {
	payload, err := json.Marshal(submitRequest{
		EntityID:   desc.EntityID,
		MetricKind: desc.MetricKind.String(),
		Params: submitParams{
			StartDate: desc.Range.StartDate(),
			EndDate:   desc.Range.EndDate(),
			Sources:   desc.Params.Sources,
			Interval:  desc.Params.Interval,
		},
	})
	if err != nil {
		return types.TaskStatus{}, types.TransportError("marshal submit request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(payload))
	if err != nil {
		return types.TaskStatus{}, types.TransportError("build submit request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, "submit")
}

func (c *HTTPClient) PollStatus(ctx context.Context, token string) (types.TaskStatus, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return types.TaskStatus{}, types.ProtocolError("poll token is empty")
	}
	endpoint := c.baseURL + fmt.Sprintf(statusPathFormat, url.PathEscape(trimmed))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.TaskStatus{}, types.TransportError("build status request", err)
	}
	return c.do(req, "status")
}

func (c *HTTPClient) do(req *http.Request, op string) (types.TaskStatus, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return types.TaskStatus{}, ctxErr
		}
		return types.TaskStatus{}, types.TransportError("execute "+op+" request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return types.TaskStatus{}, types.TransportError(op+" request failed", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var body statusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&body); err != nil {
		return types.TaskStatus{}, types.TransportError("decode "+op+" response", err)
	}

	return types.TaskStatus{
		State: enums.TaskState(strings.ToUpper(strings.TrimSpace(body.Status))),
		Data:  body.Data,
		Token: body.CacheKey,
		Error: body.Error,
	}, nil
}
