// Package httpclient provides the resilient HTTP transport shared by the
// provider adapters: a token-bucket rate limiter, retries with exponential
// backoff, and a circuit breaker per upstream.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// BackoffConfig controls retry behaviour for transient upstream failures.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff suits the free-tier upstreams the resolver talks to.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// StatusError is returned for any non-2xx response that is not retried away,
// letting callers classify by status code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// AsStatus unwraps err into a StatusError, or nil if it is not one.
func AsStatus(err error) *StatusError {
	var se *StatusError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

var errCircuitOpen = errors.New("circuit breaker open")

// Client wraps an http.Client with rate limiting, retries, and a circuit
// breaker. One Client per upstream; safe for concurrent use.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	backoff BackoffConfig
}

// New builds a resilient client for the named upstream. rps bounds the
// sustained request rate; a non-positive rps disables limiting.
func New(name string, timeout time.Duration, rps float64) *Client {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(math.Ceil(rps))
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     2 * time.Minute,
		}),
		backoff: DefaultBackoff,
	}
}

// Do executes the request built by buildRequest, retrying 429 and 5xx
// responses with exponential backoff. Other non-2xx statuses return a
// *StatusError immediately. The caller owns the response body on success.
func (c *Client) Do(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := c.breaker.Execute(func() (interface{}, error) {
			resp, doErr := c.http.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				body := readBodyPrefix(resp)
				resp.Body.Close()
				return nil, &StatusError{Code: resp.StatusCode, Body: body}
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				body := readBodyPrefix(resp)
				resp.Body.Close()
				// Client errors are terminal, never retried.
				return nil, &StatusError{Code: resp.StatusCode, Body: body}
			}
			return resp, nil
		})

		if err == nil {
			return result.(*http.Response), nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if se := AsStatus(err); se != nil && se.Code != http.StatusTooManyRequests && se.Code < 500 {
			return nil, se
		}

		lastErr = err
		if attempt >= c.backoff.MaxRetries {
			return nil, lastErr
		}

		delay := c.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if c.backoff.MaxInterval > 0 && delay > c.backoff.MaxInterval {
			delay = c.backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func readBodyPrefix(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return string(b)
}
