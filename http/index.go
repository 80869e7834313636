// Package http provides the HTTP client for the remote code-indexing API.
//
// The client layers the resilience machinery onto every call: requests
// are rate limited, retried with geometric backoff, and repository
// registrations are coalesced into bulk requests.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/repochat"
	"github.com/fwojciec/repochat/batch"
	"github.com/fwojciec/repochat/metrics"
	"github.com/fwojciec/repochat/retry"
	"golang.org/x/time/rate"
)

// DefaultRequestTimeout is the default timeout for API requests. Search
// and cognify calls can take a while on a cold index.
const DefaultRequestTimeout = 30 * time.Second

// Ensure IndexService implements repochat.IndexService at compile time.
var _ repochat.IndexService = (*IndexService)(nil)

// IndexService talks to the remote code-indexing API over HTTP.
type IndexService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	retry   *retry.Executor
	batcher *batch.Batcher[repochat.AddRequest, *repochat.AddResult]
	metrics *metrics.Registry

	retryCfg retry.Config
	batchCfg batch.Config
}

// Option configures an IndexService.
type Option func(*IndexService)

// WithTimeout sets the per-request timeout.
// Defaults to DefaultRequestTimeout (30s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(s *IndexService) {
		s.timeout = d
	}
}

// WithAPIKey sets the API key sent with every request.
func WithAPIKey(key string) Option {
	return func(s *IndexService) {
		s.apiKey = key
	}
}

// WithRateLimit caps outgoing requests at rps per second with the given
// burst. Zero rps disables rate limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *IndexService) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithRetry overrides the retry configuration.
func WithRetry(cfg retry.Config) Option {
	return func(s *IndexService) {
		s.retryCfg = cfg
	}
}

// WithBatch overrides the registration batching configuration.
func WithBatch(cfg batch.Config) Option {
	return func(s *IndexService) {
		s.batchCfg = cfg
	}
}

// WithMetrics sets the registry that receives client metrics.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *IndexService) {
		s.metrics = reg
	}
}

// WithHTTPClient replaces the underlying HTTP client. Mostly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *IndexService) {
		s.client = client
	}
}

// NewIndexService creates a client for the API at baseURL.
func NewIndexService(baseURL string, opts ...Option) *IndexService {
	s := &IndexService{
		baseURL: baseURL,
		timeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		s.client = &http.Client{Timeout: s.timeout}
	}

	var retryOpts []retry.Option
	var batchOpts []batch.Option
	if s.metrics != nil {
		retryOpts = append(retryOpts, retry.WithMetrics(s.metrics))
		batchOpts = append(batchOpts, batch.WithMetrics(s.metrics))
	}
	s.retry = retry.New(s.retryCfg, retryOpts...)
	s.batcher = batch.New(s.batchCfg, s.bulkAdd, batchOpts...)

	return s
}

// Close flushes pending registrations and shuts the client down.
func (s *IndexService) Close() error {
	s.batcher.Close()
	return nil
}

type searchRequest struct {
	Query      string   `json:"query"`
	SearchType string   `json:"search_type"`
	Datasets   []string `json:"datasets,omitempty"`
}

// Search runs a query against the index.
func (s *IndexService) Search(ctx context.Context, query string, searchType repochat.SearchType, repositoryIDs []string) (*repochat.SearchResult, error) {
	if query == "" {
		return nil, repochat.Errorf(repochat.EINVALID, "search query required")
	}
	if !searchType.Valid() {
		return nil, repochat.Errorf(repochat.EINVALID, "invalid search type %q", searchType)
	}

	var result repochat.SearchResult
	err := s.retry.Do(ctx, "search", func(ctx context.Context) error {
		return s.do(ctx, http.MethodPost, "/search", searchRequest{
			Query:      query,
			SearchType: string(searchType),
			Datasets:   repositoryIDs,
		}, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AddRepository registers a repository for indexing. Concurrent calls
// are coalesced into bulk /add requests.
func (s *IndexService) AddRepository(ctx context.Context, req repochat.AddRequest) (*repochat.AddResult, error) {
	if req.URL == "" {
		return nil, repochat.Errorf(repochat.EINVALID, "repository URL required")
	}
	return s.batcher.Submit(ctx, req)
}

type bulkAddRequest struct {
	Repositories []repochat.AddRequest `json:"repositories"`
}

type bulkAddResponse struct {
	Results []repochat.AddResult `json:"results"`
}

// bulkAdd sends one coalesced registration batch.
func (s *IndexService) bulkAdd(ctx context.Context, reqs []repochat.AddRequest) ([]*repochat.AddResult, error) {
	var resp bulkAddResponse
	err := s.retry.Do(ctx, "add", func(ctx context.Context) error {
		return s.do(ctx, http.MethodPost, "/add", bulkAddRequest{Repositories: reqs}, &resp)
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != len(reqs) {
		return nil, repochat.Errorf(repochat.EINTERNAL, "add returned %d results for %d repositories", len(resp.Results), len(reqs))
	}

	results := make([]*repochat.AddResult, len(resp.Results))
	for i := range resp.Results {
		results[i] = &resp.Results[i]
	}
	return results, nil
}

// DeleteRepository removes a dataset from the index.
func (s *IndexService) DeleteRepository(ctx context.Context, datasetID string) error {
	if datasetID == "" {
		return repochat.Errorf(repochat.EINVALID, "dataset ID required")
	}
	return s.retry.Do(ctx, "delete", func(ctx context.Context) error {
		return s.do(ctx, http.MethodDelete, "/datasets/"+datasetID, nil, nil)
	})
}

type cognifyRequest struct {
	Datasets []string `json:"datasets"`
}

// SyncRepository triggers re-indexing of a dataset. The call returns
// once the API has finished processing.
func (s *IndexService) SyncRepository(ctx context.Context, datasetID string) error {
	if datasetID == "" {
		return repochat.Errorf(repochat.EINVALID, "dataset ID required")
	}
	return s.retry.Do(ctx, "cognify", func(ctx context.Context) error {
		return s.do(ctx, http.MethodPost, "/cognify", cognifyRequest{Datasets: []string{datasetID}}, nil)
	})
}

type statusResponse struct {
	Datasets []repochat.RepositoryState `json:"datasets"`
}

// Status reports the state of every registered repository.
func (s *IndexService) Status(ctx context.Context) ([]repochat.RepositoryState, error) {
	var resp statusResponse
	err := s.retry.Do(ctx, "status", func(ctx context.Context) error {
		return s.do(ctx, http.MethodGet, "/datasets/status", nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Datasets, nil
}

// PruneData removes derived data from the index backend.
func (s *IndexService) PruneData(ctx context.Context) error {
	return s.retry.Do(ctx, "prune_data", func(ctx context.Context) error {
		return s.do(ctx, http.MethodPost, "/prune/data", nil, nil)
	})
}

// PruneSystem removes selected system data from the index backend.
func (s *IndexService) PruneSystem(ctx context.Context, opts repochat.PruneOptions) error {
	return s.retry.Do(ctx, "prune_system", func(ctx context.Context) error {
		return s.do(ctx, http.MethodPost, "/prune/system", opts, nil)
	})
}

// errorResponse is the API's error body shape.
type errorResponse struct {
	Detail string `json:"detail"`
}

// do sends one request and decodes the response into out (if non-nil).
// API failures are mapped onto application error codes so the retry
// layer can classify them.
func (s *IndexService) do(ctx context.Context, method, path string, body, out any) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return repochat.WrapErrorf(err, repochat.EINTERNAL, "failed to encode request")
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return repochat.WrapErrorf(err, repochat.EINTERNAL, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if s.metrics != nil {
		s.metrics.RecordTime("index.request", time.Since(start))
	}
	if err != nil {
		// Transport failures are worth retrying.
		return repochat.WrapErrorf(err, repochat.EUNAVAILABLE, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return repochat.WrapErrorf(err, repochat.EINTERNAL, "failed to decode response")
		}
		return nil
	}

	return s.statusError(resp)
}

// statusError maps an HTTP error status onto an application error.
func (s *IndexService) statusError(resp *http.Response) error {
	detail := http.StatusText(resp.StatusCode)
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Detail != "" {
		detail = body.Detail
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return repochat.Errorf(repochat.ENOTFOUND, "%s", detail)
	case resp.StatusCode == http.StatusConflict:
		return repochat.Errorf(repochat.ECONFLICT, "%s", detail)
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return repochat.Errorf(repochat.EINVALID, "%s", detail)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return repochat.Errorf(repochat.EUNAVAILABLE, "%s", detail)
	default:
		return repochat.Errorf(repochat.EINTERNAL, "unexpected status %d: %s", resp.StatusCode, detail)
	}
}
