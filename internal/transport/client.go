// Package transport is the single HTTP path between the catalog client and
// the REST service: a configured http.Client with a fixed base URL, a cookie
// jar for credentials, and the CSRF interceptor on every request.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/mesh-intelligence/catalog/internal/metrics"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// RequestIDHeader carries a per-request UUID for log correlation.
const RequestIDHeader = "X-Request-ID"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 8 << 20

// Config configures a Client.
type Config struct {
	BaseURL  string
	TokenURL *url.URL // nil derives it from BaseURL
	Timeout  time.Duration

	// RequestsPerSecond paces requests when positive.
	RequestsPerSecond float64
	Burst             int

	Jar    http.CookieJar    // nil creates an in-memory jar
	Base   http.RoundTripper // nil uses http.DefaultTransport
	Tokens TokenSource       // nil reads tokens from Jar

	Log     *logrus.Entry
	Metrics *metrics.Metrics
}

// Client sends JSON requests relative to a base URL.
type Client struct {
	base    *url.URL
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	log     *logrus.Entry
	metrics *metrics.Metrics
}

// New builds a Client and its CSRF interceptor.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	tokenURL := cfg.TokenURL
	if tokenURL == nil {
		tokenURL = base.ResolveReference(&url.URL{Path: types.CSRFPath})
	}

	jar := cfg.Jar
	if jar == nil {
		if jar, err = NewJar(); err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
	}

	next := cfg.Base
	if next == nil {
		next = http.DefaultTransport
	}

	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = &CookieTokenSource{
			Jar:       jar,
			CookieURL: base,
			TokenURL:  tokenURL,
			Client:    &http.Client{Transport: next, Jar: jar, Timeout: cfg.Timeout},
		}
	}

	c := &Client{
		base: base,
		http: &http.Client{
			Transport: &CSRF{
				Next:     next,
				Tokens:   tokens,
				Jar:      jar,
				TokenURL: tokenURL,
				Log:      log,
				Metrics:  cfg.Metrics,
			},
			Jar:     jar,
			Timeout: cfg.Timeout,
		},
		tokens:  tokens,
		log:     log,
		metrics: cfg.Metrics,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

// Request describes one call relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // JSON-encoded when non-nil
}

// Do sends req and returns the response body. Statuses of 400 and above are
// returned as *APIError; failures to get any response wrap types.ErrTransport.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrTransport, err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.URL(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	requestID := newRequestID()
	httpReq.Header.Set(RequestIDHeader, requestID)

	log := c.log.WithFields(logrus.Fields{
		"method":     req.Method,
		"path":       req.Path,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.Method, 0, time.Since(start))
		log.WithError(err).Warn("request failed")
		return nil, fmt.Errorf("%w: %s %s: %w", types.ErrTransport, req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.metrics.ObserveRequest(req.Method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", types.ErrTransport, err)
	}

	log = log.WithField("status", resp.StatusCode)
	if resp.StatusCode >= 400 {
		apiErr := newAPIError(req.Method, req.Path, resp.StatusCode, data)
		log.WithField("message", apiErr.Message).Debug("request rejected")
		return nil, apiErr
	}
	log.Debug("request completed")
	return data, nil
}

// URL resolves path and query against the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.base.ResolveReference(&url.URL{Path: strings.TrimLeft(path, "/")})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Tokens returns the token source used by the interceptor.
func (c *Client) Tokens() TokenSource { return c.tokens }

// PrimeToken asks the service for a fresh token outside of any request.
func (c *Client) PrimeToken(ctx context.Context) error {
	c.metrics.IncPrime(metrics.PrimeManual)
	if err := c.tokens.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: prime csrf token: %w", types.ErrTransport, err)
	}
	return nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
