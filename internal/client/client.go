package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Policy constants for the portal. Overridable via Options.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultBackoffBase   = 2  // seconds, exponent base
	DefaultBackoffCap    = 10 // seconds
	DefaultRateLimitWait = 60 * time.Second
	DefaultUserAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

	listPath   = "/nn/nnb/nnba/selectBidPbancList.do"
	detailPath = "/nn/nnb/nnbb/selectBidNoceDetl.do"
)

// Options configures the client.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	BackoffBase    int
	BackoffCap     int
	RateLimitWait  time.Duration
	RequestsPerSec float64
	UserAgent      string
}

// Client talks to the Nuri G2B list/detail endpoints over POST-JSON. It owns
// the retry, backoff, and rate-limit policy; callers see either a decoded
// payload or one classified failure.
type Client struct {
	opts       Options
	httpClient *http.Client
	limiter    *rate.Limiter

	// sleep is swapped out in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client with the given options, filling in defaults.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://nuri.g2b.go.kr"
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.BackoffCap == 0 {
		opts.BackoffCap = DefaultBackoffCap
	}
	if opts.RateLimitWait == 0 {
		opts.RateLimitWait = DefaultRateLimitWait
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		opts: opts,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		sleep:   sleepCtx,
	}
}

// FetchNoticeList fetches one page of the bid-notice listing.
func (c *Client) FetchNoticeList(ctx context.Context, page, perPage, daysBack int) (map[string]any, error) {
	if page < 1 {
		return nil, eris.Errorf("client: page must be >= 1, got %d", page)
	}
	payload := listPayload(page, perPage, daysBack, time.Now())
	return c.post(ctx, c.opts.BaseURL+listPath, payload, "list page "+strconv.Itoa(page))
}

// FetchNoticeDetail fetches the detail record for one notice.
func (c *Client) FetchNoticeDetail(ctx context.Context, bidNo, bidOrd string) (map[string]any, error) {
	if bidNo == "" {
		return nil, eris.New("client: bid number is required")
	}
	if bidOrd == "" {
		bidOrd = "000"
	}
	payload := detailPayload(bidNo, bidOrd)
	return c.post(ctx, c.opts.BaseURL+detailPath, payload, "detail "+bidNo)
}

// post issues the request and applies the retry policy: exponential backoff on
// 5xx and transient network failures up to MaxRetries attempts, mandated waits
// on 429 that do not consume attempts, immediate failure on other 4xx.
func (c *Client) post(ctx context.Context, url string, payload map[string]any, op string) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "client: marshal %s payload", op)
	}

	var lastErr error
	attempt := 1
	for attempt <= c.opts.MaxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "client: rate limiter wait")
		}

		result, err := c.doOnce(ctx, url, body)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, eris.Wrapf(err, "client: %s cancelled", op)
		}

		var rle *RateLimitError
		if errors.As(err, &rle) {
			wait := rle.Wait
			if wait == 0 {
				wait = c.opts.RateLimitWait
			}
			zap.L().Warn("rate limited, honoring server wait",
				zap.String("op", op),
				zap.Duration("wait", wait),
			)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, eris.Wrapf(err, "client: %s cancelled", op)
			}
			// Compliance wait, not a failed attempt.
			continue
		}

		if !IsRetryable(err) {
			return nil, eris.Wrapf(err, "client: %s", op)
		}

		lastErr = err
		if attempt == c.opts.MaxRetries {
			break
		}

		delay := c.backoffDelay(attempt)
		zap.L().Warn("retryable failure, backing off",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, eris.Wrapf(err, "client: %s cancelled", op)
		}
		attempt++
	}

	return nil, eris.Wrapf(lastErr, "client: %s failed after %d attempts", op, c.opts.MaxRetries)
}

// doOnce performs a single request cycle and classifies the outcome.
func (c *Client) doOnce(ctx context.Context, url string, body []byte) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.opts.BaseURL+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{Wait: parseRetryAfter(resp.Header.Get("Retry-After"))}

	case resp.StatusCode >= 500:
		return nil, &ServerError{Status: resp.StatusCode}

	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, &RequestError{Status: resp.StatusCode, Body: string(snippet)}

	case resp.StatusCode == http.StatusOK:
		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, &RequestError{Status: resp.StatusCode, Body: "malformed JSON body"}
		}
		return result, nil

	default:
		return nil, &RequestError{Status: resp.StatusCode, Body: "unexpected status"}
	}
}

// backoffDelay returns the wait before the attempt following a failed attempt
// k: min(base^k, cap) seconds. With the defaults that is 2s, 4s, 8s, 10s, 10s.
func (c *Client) backoffDelay(attempt int) time.Duration {
	secs := math.Pow(float64(c.opts.BackoffBase), float64(attempt))
	if secs > float64(c.opts.BackoffCap) {
		secs = float64(c.opts.BackoffCap)
	}
	return time.Duration(secs * float64(time.Second))
}

// parseRetryAfter reads a Retry-After header in seconds form. Zero means no
// usable hint.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Close releases the connection pool.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
