package naru

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/logging"
	"github.com/billmal071/narubooks/internal/metrics"
)

// DefaultBaseURL is the public 정보나루 endpoint
const DefaultBaseURL = "https://data4library.kr/api"

// Options configures a Client
type Options struct {
	APIKey            string
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 means unlimited
	BreakerFailures   uint32  // consecutive failures before the breaker opens; 0 disables
	BreakerTimeout    time.Duration
	HTTPClient        *http.Client
}

// Client talks to the 정보나루 REST API
type Client struct {
	apiKey    string
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a new API client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	c := &Client{
		apiKey:    opts.APIKey,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		http:      httpClient,
		limiter:   limiter,
	}
	c.breaker = newBreaker(opts.BreakerFailures, opts.BreakerTimeout)
	return c
}

// NewClientFromConfig creates a client from the application configuration
func NewClientFromConfig(cfg *config.Config) *Client {
	return NewClient(Options{
		APIKey:            cfg.Naru.APIKey,
		BaseURL:           cfg.Naru.BaseURL,
		UserAgent:         cfg.Network.UserAgent,
		Timeout:           cfg.Network.Timeout,
		RequestsPerSecond: cfg.Network.RequestsPerSecond,
		BreakerFailures:   uint32(max(cfg.Network.BreakerFailures, 0)),
		BreakerTimeout:    cfg.Network.BreakerTimeout,
	})
}

func newBreaker(failures uint32, timeout time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "naru-api",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= failures
		},
		// A 4xx means the upstream is answering; only outages count against it.
		IsSuccessful: func(err error) bool {
			return err == nil || CategorizeError(err) == ErrorNonRetryable
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.BreakerTransitions.WithLabelValues(to.String()).Inc()
		},
	})
}

// URL builds an endpoint URL carrying the API key and format=json
func (c *Client) URL(endpoint string, params url.Values) string {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("authKey", c.apiKey)
	q.Set("format", "json")
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/") + "?" + q.Encode()
}

// FetchJSON performs a GET on rawURL and decodes the JSON body into v.
// Non-2xx statuses return *HTTPError; transport and decode failures
// return *NetworkError. There is no retry.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, v interface{}) error {
	safeURL := redact(rawURL)
	endpoint := endpointName(rawURL)

	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Op: "wait", URL: safeURL, Err: err}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, rawURL, safeURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &NetworkError{Op: "circuit", URL: safeURL, Err: err}
		}
		metrics.UpstreamRequests.WithLabelValues(endpoint, CategorizeError(err).String()).Inc()
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "decode_error").Inc()
		return &NetworkError{Op: "decode", URL: safeURL, Err: err}
	}

	metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func (c *Client) get(ctx context.Context, rawURL, safeURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &NetworkError{Op: "request", URL: safeURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "request", URL: safeURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{Status: resp.StatusCode, URL: safeURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read", URL: safeURL, Err: err}
	}
	return body, nil
}

// fetchEnvelope fetches an endpoint and surfaces an embedded upstream error
func (c *Client) fetchEnvelope(ctx context.Context, endpoint string, params url.Values) (*envelope, error) {
	rawURL := c.URL(endpoint, params)
	var env envelope
	if err := c.FetchJSON(ctx, rawURL, &env); err != nil {
		return nil, err
	}
	if env.Response.Error != "" {
		return nil, &APIError{Message: env.Response.Error, URL: redact(rawURL)}
	}
	return &env, nil
}

func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("authKey") {
		q.Set("authKey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func endpointName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return path.Base(u.Path)
}

var _ API = (*Client)(nil)

func pageParams(page, size int) url.Values {
	return url.Values{
		"pageNo":   {fmt.Sprint(page)},
		"pageSize": {fmt.Sprint(size)},
	}
}
