/*
Package fetch downloads source pages as text, applying a timeout to every fetch.
*/
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/shanehull/goldbot/internal/types"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; goldbot/1.0)"

	maxBodyBytes = 8 << 20
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-OK status code %d from %s", e.StatusCode, e.URL)
}

// Client fetches pages. It is safe for concurrent use.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Timeout   time.Duration

	logger *zap.Logger
}

// New returns a Client whose every Fetch is bounded by timeout.
func New(timeout time.Duration, userAgent string, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		HTTP:      &http.Client{Transport: transport},
		UserAgent: userAgent,
		Timeout:   timeout,
		logger:    logger,
	}
}

// Fetch GETs url and returns the body decoded to UTF-8. Every failure,
// including the timeout, wraps types.ErrFetch.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %v: %w", url, err, types.ErrFetch)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("fetch %s timed out after %s: %w", url, c.Timeout, types.ErrFetch)
		}
		return "", fmt.Errorf("failed to fetch URL %s: %v: %w", url, err, types.ErrFetch)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", zap.String("url", url), zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %w", &StatusError{URL: url, StatusCode: resp.StatusCode}, types.ErrFetch)
	}

	r, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode body of %s: %v: %w", url, err, types.ErrFetch)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body of %s: %v: %w", url, err, types.ErrFetch)
	}

	c.logger.Debug("fetched page",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(b)),
		zap.Duration("took", time.Since(start)),
	)
	return string(b), nil
}
