package wallhaven

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"wallheaven-sync/pkg/config"
	errs "wallheaven-sync/pkg/errors"
	"wallheaven-sync/pkg/logger"
	"wallheaven-sync/pkg/ratelimit"
	"wallheaven-sync/pkg/retry"
	"wallheaven-sync/pkg/ui"
)

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client performs GET requests against Wallhaven and obeys its Retry-After quota signal.
// Responses without Retry-After are returned whatever their status; interpreting the
// status is up to the caller.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	policy     retry.Policy
	limiter    ratelimit.Limiter
	notifier   ui.Notifier
	logger     logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent sent with every request
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.headers["User-Agent"] = ua }
}

// WithAPIKey sends the key as X-API-Key; an empty key sends nothing
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.headers["X-API-Key"] = key
		}
	}
}

// WithPolicy sets the strategy deciding whether server-requested waits are honoured
func WithPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithLimiter paces requests on the client side
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithNotifier sets where wait announcements go
func WithNotifier(n ui.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSleep replaces the function used to wait out Retry-After
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient creates a client with the default user agent and an unbounded retry policy
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		headers: map[string]string{
			"User-Agent": "wallheaven_sync/" + config.Version,
		},
		policy:   retry.Unbounded{},
		limiter:  ratelimit.Unlimited{},
		notifier: ui.NopNotifier{},
		logger:   logger.NewNopLogger(),
		sleep:    retry.Wait,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a client from the loaded configuration
func NewClientFromConfig(cfg *config.Config, notifier ui.Notifier, log logger.Logger) *Client {
	return NewClient(
		WithHTTPClient(&http.Client{Timeout: cfg.Download.Timeout}),
		WithUserAgent(cfg.Wallhaven.UserAgent),
		WithAPIKey(cfg.Wallhaven.APIKey),
		WithPolicy(retry.NewPolicy(cfg.RateLimit.MaxWaits, cfg.RateLimit.MaxWait)),
		WithLimiter(ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)),
		WithNotifier(notifier),
		WithLogger(log),
	)
}

// Fetch issues a GET and returns the first response that carries no Retry-After header
func (c *Client) Fetch(ctx context.Context, url string) (*Response, error) {
	return c.fetch(ctx, url, nil)
}

// FetchText is Fetch with the body decoded as text
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	resp, err := c.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// DownloadAsset fetches image bytes; any status other than 200 is a download error
func (c *Client) DownloadAsset(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.fetch(ctx, url, map[string]string{"Accept": "image/*"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeDownload,
			Message: fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, url),
			Code:    resp.StatusCode,
		}
	}
	return resp.Body, nil
}

func (c *Client) fetch(ctx context.Context, url string, extra map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeProtocol, err, "invalid request URL")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeTransport, err, "request pacing interrupted")
		}

		resp, err := c.do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		values, limited := resp.Header["Retry-After"]
		if !limited {
			return resp, nil
		}
		raw := ""
		if len(values) > 0 {
			raw = values[0]
		}

		wait, err := retry.ParseRetryAfter(raw, c.now())
		if err != nil {
			return nil, err
		}
		if err := c.policy.Allow(attempt, wait); err != nil {
			c.logger.WarnWithFields("refusing server-requested wait", map[string]interface{}{
				"url":         url,
				"retry_after": wait,
				"attempt":     attempt,
			})
			return nil, err
		}

		c.notifier.Info("Reached request per minute limit, waiting %s seconds...",
			strconv.FormatFloat(wait.Seconds(), 'f', -1, 64))
		logger.LogRateLimit(c.logger, url, wait, attempt)

		if err := c.sleep(ctx, wait); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeTransport, err, "wait for quota interrupted")
		}
	}
}

// do sends one attempt and drains the body
func (c *Client) do(req *http.Request) (*Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method": req.Method,
			"url":    req.URL.String(),
			"error":  err.Error(),
		})
		return nil, errs.Wrap(errs.ErrorTypeTransport, err, fmt.Sprintf("GET %s", req.URL))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeTransport,
			Message: fmt.Sprintf("failed to read response body from %s", req.URL),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, time.Since(start))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
