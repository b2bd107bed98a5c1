package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/time/rate"

	"racefeed/internal/logging"
	"racefeed/internal/retry"
)

const (
	restPrefix         = "/wp-json/wc/v3/"
	defaultMaxAttempts = 4
	defaultBaseDelay   = 1500 * time.Millisecond
	defaultTimeout     = 30 * time.Second
	listPageSize       = 100
	maxListPages       = 50
)

// Config holds the catalog endpoint and credentials.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	AdminUser      string
	AdminPass      string
	Timeout        time.Duration
	MaxAttempts    int
	BaseDelay      time.Duration
	// RequestsPerSecond limits outgoing requests; zero disables the limit.
	RequestsPerSecond float64
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "woocommerce")
	}
}

// WithSleeper overrides retry waits (tests).
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// Client talks to one WordPress/WooCommerce site.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error

	tokenMu sync.Mutex
	token   string
}

// New constructs a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("catalog url required")
	}
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, errors.New("catalog consumer key and secret required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logging.NewComponentLogger(nil, "woocommerce"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// APIError is a non-2xx response.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
	Data    json.RawMessage
	Body    string
}

func (e *APIError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.Body
	}
	if e.Code != "" {
		return fmt.Sprintf("%s %s: http %d %s: %s", e.Method, e.Path, e.Status, e.Code, detail)
	}
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.Status, detail)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// sameName compares catalog names ignoring case. A Caser keeps state, so a
// fresh one is used per comparison.
func sameName(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	raw     []byte
	headers map[string]string
	// basic selects consumer key auth; otherwise the caller sets headers.
	basic bool
	// respHeader receives the response headers of a successful call.
	respHeader *http.Header
}

// wc performs a wc/v3 request with basic auth and decodes the response into
// out when it is non-nil.
func (c *Client) wc(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.do(ctx, request{
		method: method,
		path:   restPrefix + strings.TrimLeft(path, "/"),
		query:  query,
		body:   body,
		basic:  true,
	}, out)
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	var payload []byte
	switch {
	case req.raw != nil:
		payload = req.raw
	case req.body != nil:
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", req.method, req.path, err)
		}
		payload = encoded
	}
	endpoint := c.cfg.BaseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}
	policy := retry.Policy{
		Attempts:  c.cfg.MaxAttempts,
		BaseDelay: c.cfg.BaseDelay,
		Sleep:     c.sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logging.WarnWithContext(logging.WithContext(ctx, c.logger), "catalog request failed; retrying", "catalog_retry",
				logging.String("method", req.method),
				logging.String("path", req.path),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.Error(err),
				logging.String(logging.FieldImpact, "group publish is delayed"),
			)
		},
	}
	var body []byte
	err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, reader)
		if err != nil {
			return retry.Permanent(fmt.Errorf("build request: %w", err))
		}
		if req.body != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		httpReq.Header.Set("Accept", "application/json")
		for key, value := range req.headers {
			httpReq.Header.Set(key, value)
		}
		if req.basic {
			httpReq.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)
		}
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			apiErr := newAPIError(req.method, req.path, resp.StatusCode, data)
			if transientStatus(resp.StatusCode) {
				return apiErr
			}
			return retry.Permanent(apiErr)
		}
		if req.respHeader != nil {
			*req.respHeader = resp.Header.Clone()
		}
		body = data
		return nil
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.method, req.path, err)
	}
	return nil
}

// transientStatus reports whether the catalog may answer differently on a
// later attempt.
func transientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: status, Body: strings.TrimSpace(string(body))}
	var parsed struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		apiErr.Code = parsed.Code
		apiErr.Message = parsed.Message
		apiErr.Data = parsed.Data
	}
	if len(apiErr.Body) > 512 {
		apiErr.Body = apiErr.Body[:512] + "..."
	}
	return apiErr
}

// listAll reads every page of a wc/v3 collection. It follows
// X-WP-TotalPages and falls back to stopping at a short page when the header
// is absent.
func listAll[T any](ctx context.Context, c *Client, path string, extra url.Values) ([]T, error) {
	var all []T
	for page := 1; page <= maxListPages; page++ {
		query := pageQuery(extra)
		query.Set("page", strconv.Itoa(page))
		var batch []T
		var header http.Header
		err := c.do(ctx, request{
			method:     http.MethodGet,
			path:       restPrefix + strings.TrimLeft(path, "/"),
			query:      query,
			basic:      true,
			respHeader: &header,
		}, &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		total, err := strconv.Atoi(header.Get("X-WP-TotalPages"))
		if err != nil {
			if len(batch) < listPageSize {
				break
			}
			continue
		}
		if page >= total {
			break
		}
	}
	return all, nil
}

func pageQuery(extra url.Values) url.Values {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(listPageSize))
	for key, values := range extra {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	return q
}
