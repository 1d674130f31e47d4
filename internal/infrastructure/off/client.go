package off

import (
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

	"github.com/recipepanel/foodsync/internal/domain"
	"github.com/recipepanel/foodsync/pkg/logger"
	"github.com/recipepanel/foodsync/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	// MaxPageSize is the largest page the upstream search endpoint is asked for
	MaxPageSize = 100

	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 8 << 20
)

// StatusError is returned for any non-2xx upstream answer
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned status %d", domain.ErrUpstreamUnavailable, e.Operation, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrUpstreamUnavailable
}

// StatusCode extracts the upstream HTTP status from err, or 0 when err carries none
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// ClientConfig configures the upstream catalog client
type ClientConfig struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerMinute int // 0 disables outbound pacing
}

// Client issues raw requests against the Open Food Facts search and product endpoints
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimiter *rate.Limiter
}

// NewClient creates a new upstream catalog client
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		// burst of a tenth of the minute budget, at least one
		burst := cfg.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:   cfg.UserAgent,
		rateLimiter: limiter,
	}
}

// Search runs a free-text search and returns the raw upstream payload
func (c *Client) Search(ctx context.Context, query, locale string, page, pageSize int) (json.RawMessage, error) {
	page, pageSize = clampPage(page, pageSize)

	params := url.Values{}
	params.Set("search_terms", query)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("fields", FieldList(locale))
	if locale != "" {
		params.Set("lc", locale)
	}

	reqURL := fmt.Sprintf("%s/cgi/search.pl?%s", c.baseURL, params.Encode())

	logger.Debug().Str("query", query).Str("lc", locale).Int("page", page).Int("page_size", pageSize).Msg("upstream search")
	return c.get(ctx, "search", reqURL)
}

// FetchByBarcode looks up a single item and returns the raw upstream payload
func (c *Client) FetchByBarcode(ctx context.Context, barcode, locale string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("fields", FieldList(locale))
	if locale != "" {
		params.Set("lc", locale)
	}

	reqURL := fmt.Sprintf("%s/api/v2/product/%s.json?%s", c.baseURL, url.PathEscape(barcode), params.Encode())

	logger.Debug().Str("barcode", barcode).Str("lc", locale).Msg("upstream product lookup")
	return c.get(ctx, "product", reqURL)
}

// get executes a single GET. Callers decide about retries; this never retries.
func (c *Client) get(ctx context.Context, operation, reqURL string) (json.RawMessage, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: pacing: %v", domain.ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	timer := metrics.NewUpstreamTimer(operation)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		timer.Observe(metrics.OutcomeNetworkError)
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		timer.Observe(metrics.OutcomeNetworkError)
		return nil, fmt.Errorf("%w: %s: reading body: %v", domain.ErrUpstreamUnavailable, operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		timer.Observe(metrics.OutcomeHTTPError)
		return nil, &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), 512),
		}
	}

	timer.Observe(metrics.OutcomeOK)
	return json.RawMessage(body), nil
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
