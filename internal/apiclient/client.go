package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// RequestIDHeader carries a per-request identifier for server-side correlation.
	RequestIDHeader = "X-Request-ID"

	defaultTimeout  = 30 * time.Second
	maxResponseSize = 32 << 20
)

var (
	errMissingBaseURL = errors.New("apiclient: base url is required")
	errInvalidBaseURL = errors.New("apiclient: base url must be absolute")
)

// Config describes how to reach the diary API.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Client performs requests against the diary API and converts non-success
// responses into ProtocolErrors.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
}

// New constructs a Client. When no HTTP client is supplied one is built with a
// cookie jar so the session cookie issued at login is replayed on later calls.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, errMissingBaseURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBaseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidBaseURL, raw)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Jar: jar, Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{baseURL: parsed, http: httpClient, logger: logger}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Request describes a single API call.
type Request struct {
	Operation   string
	Method      string
	Path        string
	Body        io.Reader
	ContentType string
}

// Do executes the request and returns the response body. Any non-2xx status
// yields a *ProtocolError carrying the raw response text.
func (c *Client) Do(ctx context.Context, request Request) ([]byte, error) {
	target := c.baseURL.String() + request.Path
	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, target, request.Body)
	if err != nil {
		return nil, err
	}
	if request.ContentType != "" {
		httpRequest.Header.Set("Content-Type", request.ContentType)
	}
	requestID := uuid.NewString()
	httpRequest.Header.Set(RequestIDHeader, requestID)

	response, err := c.http.Do(httpRequest)
	if err != nil {
		c.logger.Warn("api request failed",
			zap.String("operation", request.Operation),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, fmt.Errorf("%s: %w", request.Operation, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", request.Operation, err)
	}

	c.logger.Debug("api request completed",
		zap.String("operation", request.Operation),
		zap.String("method", request.Method),
		zap.String("path", request.Path),
		zap.Int("status", response.StatusCode),
		zap.String("request_id", requestID))

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &ProtocolError{
			Operation:  request.Operation,
			StatusCode: response.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}

// Cookies returns the cookies the jar would send to the API root.
func (c *Client) Cookies() []*http.Cookie {
	if c.http.Jar == nil {
		return nil
	}
	return c.http.Jar.Cookies(c.baseURL)
}

// SetCookies seeds the jar, typically with a session restored from disk.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if c.http.Jar == nil || len(cookies) == 0 {
		return
	}
	c.http.Jar.SetCookies(c.baseURL, cookies)
}
