package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/valyala/fasthttp"
)

const maxBackoff = 30 * time.Second

// StatusError is a non-2xx REST response.
type StatusError struct {
	URL        string
	Code       int
	RetryAfter time.Duration
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.Code, strings.TrimSpace(body))
}

type retryPolicy struct {
	maxRetries int
	base       time.Duration
}

// do runs fn until it succeeds, fails permanently or runs out of attempts.
func (p retryPolicy) do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		after, transient := classify(err)
		if !transient || attempt >= p.maxRetries {
			if transient {
				return fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
			}
			return err
		}

		wait := p.backoff(attempt)
		if after > 0 {
			wait = after
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p retryPolicy) backoff(attempt int) time.Duration {
	if attempt > 20 {
		return maxBackoff
	}
	d := p.base << attempt
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// classify tells whether err is worth another attempt and how long the server asked to wait.
func classify(err error) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) {
		return 0, false
	}
	// per-attempt timeout of a still-live parent context
	if errors.Is(err, context.DeadlineExceeded) {
		return 0, true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.RetryAfter, transientStatus(statusErr.Code)
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return 0, transientStatus(httpErr.StatusCode)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		// -32005: limit exceeded, used by most public providers for throttling
		return 0, rpcErr.ErrorCode() == -32005
	}

	switch {
	case errors.Is(err, fasthttp.ErrTimeout),
		errors.Is(err, fasthttp.ErrDialTimeout),
		errors.Is(err, fasthttp.ErrConnectionClosed),
		errors.Is(err, fasthttp.ErrNoFreeConns),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED):
		return 0, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return 0, true
	}
	return 0, false
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// parseRetryAfter reads delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
