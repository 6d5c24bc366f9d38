package client

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// RateLimitError reports a 429 response. Wait carries the server's Retry-After
// hint when present; zero means the caller's default applies. Rate-limit waits
// are compliance, not failure recovery, so they never consume a retry attempt.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Wait > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.Wait)
	}
	return "rate limited"
}

// ServerError reports a 5xx response. Retryable with backoff.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: http %d", e.Status)
}

// RequestError reports a 4xx response other than 429. Terminal: the request
// shape is wrong and retrying cannot help.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// IsTerminal reports whether err is a non-retryable client error.
func IsTerminal(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// IsRetryable reports whether err warrants an exponential-backoff retry:
// either an explicit ServerError or a transient network failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var se *ServerError
	if errors.As(err, &se) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from net/http.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
