// Package ethioguide is the HTTP client for the upstream EthioGuide backend.
// The backend has historically exposed the same logical resource under
// several route spellings and envelope shapes; this client owns the fallback
// path walking and hands decoded payloads to the normalizer untouched.
package ethioguide

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
	"github.com/ethioguide/procedure-gateway/internal/infrastructure/resilience"
)

// DefaultProcedurePaths are the candidate detail routes, tried in order.
// The trailing query-style spelling answers with a list envelope.
var DefaultProcedurePaths = []string{
	"/procedures/%s",
	"/procedure/%s",
	"/procedures?id=%s",
}

// Observer receives per-request outcomes for metrics. All methods must be
// safe for concurrent use.
type Observer interface {
	ObserveUpstreamRequest(path string, status int, duration time.Duration)
	ObserveSoftMiss(path string)
}

type Client struct {
	baseURL        string
	httpClient     *http.Client
	procedurePaths []string
	guard          *resilience.Guard
	observer       Observer
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithProcedurePaths(paths []string) Option {
	return func(c *Client) {
		if len(paths) > 0 {
			c.procedurePaths = paths
		}
	}
}

func WithGuard(guard *resilience.Guard) Option {
	return func(c *Client) {
		c.guard = guard
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("upstream base url is required")
	}
	client := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		procedurePaths: DefaultProcedurePaths,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Error is a transport failure: network error or non-2xx status, carrying an
// HTTP-like status and the (truncated) response body.
type Error struct {
	Status int
	Path   string
	Body   string
}

func (e *Error) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream %s status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("upstream %s status %d: %s", e.Path, e.Status, e.Body)
}

// Temporary reports whether the failure is worth counting against the
// circuit breaker. Client errors are the caller's problem, not the upstream's.
func (e *Error) Temporary() bool {
	return e.Status == 0 || e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

func (c *Client) FetchProcedureList(ctx context.Context, query domain.ProcedureListQuery) (any, error) {
	values := url.Values{}
	if query.Page > 0 {
		values.Set("page", strconv.Itoa(query.Page))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Name != "" {
		values.Set("name", query.Name)
	}
	if query.OrganizationID != "" {
		values.Set("organizationID", query.OrganizationID)
	}
	if query.GroupID != "" {
		values.Set("groupID", query.GroupID)
	}
	if query.MinProcessingDays > 0 {
		values.Set("minProcessingDays", strconv.Itoa(query.MinProcessingDays))
	}
	if query.MaxProcessingDays > 0 {
		values.Set("maxProcessingDays", strconv.Itoa(query.MaxProcessingDays))
	}
	if query.SortBy != "" {
		values.Set("sortBy", query.SortBy)
	}
	if query.SortOrder != "" {
		values.Set("sortOrder", query.SortOrder)
	}

	path := "/procedures"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return c.getJSON(ctx, "procedures.list", path, "")
}

func (c *Client) FetchFeedbackPage(ctx context.Context, procedureID string, page, limit int, status, authToken string) (any, error) {
	values := url.Values{}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if status != "" {
		values.Set("status", status)
	}

	path := fmt.Sprintf("/procedures/%s/feedback", url.PathEscape(procedureID))
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return c.getJSON(ctx, "feedback.list", path, authToken)
}

// CreateFeedback posts a new feedback item. Capitalized body keys are the
// upstream wire contract for write operations.
func (c *Client) CreateFeedback(ctx context.Context, params domain.SubmitFeedbackParams) (any, error) {
	body := map[string]any{
		"Content":     params.Content,
		"Type":        string(params.Type),
		"ProcedureID": params.ProcedureID,
	}
	if len(params.Tags) > 0 {
		body["Tags"] = params.Tags
	}
	path := fmt.Sprintf("/procedures/%s/feedback", url.PathEscape(params.ProcedureID))
	return c.sendJSON(ctx, "feedback.create", http.MethodPost, path, body, params.AuthToken)
}

func (c *Client) UpdateFeedback(ctx context.Context, params domain.RespondFeedbackParams) (string, error) {
	body := map[string]any{
		"admin_response": params.AdminResponse,
		"status":         params.Status,
	}
	path := fmt.Sprintf("/feedback/%s", url.PathEscape(params.FeedbackID))
	payload, err := c.sendJSON(ctx, "feedback.update", http.MethodPatch, path, body, params.AuthToken)
	if err != nil {
		var upstreamErr *Error
		if errors.As(err, &upstreamErr) && upstreamErr.Status == http.StatusNotFound {
			return "", domain.WrapError(domain.ErrFeedbackNotFound, "feedback.update", upstreamErr)
		}
		return "", err
	}
	if m, ok := payload.(map[string]any); ok {
		if message, ok := m["message"].(string); ok {
			return message, nil
		}
	}
	return "", nil
}

func (c *Client) getJSON(ctx context.Context, operation, path, authToken string) (any, error) {
	return c.sendJSON(ctx, operation, http.MethodGet, path, nil, authToken)
}

func (c *Client) sendJSON(ctx context.Context, operation, method, path string, body any, authToken string) (any, error) {
	var payload any
	call := func(ctx context.Context) error {
		decoded, err := c.roundTrip(ctx, method, path, body, authToken)
		if err != nil {
			return err
		}
		payload = decoded
		return nil
	}

	var err error
	if c.guard != nil {
		err = c.guard.Do(ctx, operation, call, ClassifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTransport(operation, err)
	}
	return payload, nil
}

// wrapTransport assigns the domain error kind the adapter layer maps to an
// HTTP status. The original *Error stays in the chain for classification.
func wrapTransport(operation string, err error) error {
	var upstreamErr *Error
	if !errors.As(err, &upstreamErr) {
		if resilience.IsCircuitOpen(err) {
			return domain.WrapError(domain.ErrTemporary, operation, err)
		}
		return domain.WrapError(domain.ErrUpstream, operation, err)
	}
	switch {
	case upstreamErr.Status == http.StatusUnauthorized || upstreamErr.Status == http.StatusForbidden:
		return domain.WrapError(domain.ErrUnauthorized, operation, err)
	case upstreamErr.Status == http.StatusBadRequest:
		return domain.WrapError(domain.ErrInvalidInput, operation, err)
	case upstreamErr.Temporary():
		return domain.WrapError(domain.ErrTemporary, operation, err)
	default:
		return domain.WrapError(domain.ErrUpstream, operation, err)
	}
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, authToken string) (any, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(path, 0, time.Since(start))
		return nil, &Error{Status: 0, Path: path, Body: err.Error()}
	}
	defer resp.Body.Close()
	c.observe(path, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &Error{Status: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(raw))}
	}

	var decoded any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, &Error{Status: resp.StatusCode, Path: path, Body: fmt.Sprintf("decode response: %v", err)}
	}
	return decoded, nil
}

func (c *Client) observe(path string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstreamRequest(path, status, duration)
	}
}

// ClassifyError drives the resilience guard: only temporary transport
// failures count against the breaker or qualify for retries.
func ClassifyError(err error) resilience.Classification {
	var upstreamErr *Error
	if errors.As(err, &upstreamErr) {
		temporary := upstreamErr.Temporary()
		return resilience.Classification{
			Retryable:       temporary,
			CountsAsFailure: temporary,
		}
	}
	return resilience.Classification{Retryable: false, CountsAsFailure: true}
}
