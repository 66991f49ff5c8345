package connectors

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/logger"
)

// maxRetries is the retry cap per request. Retries cover transient
// failures only: network errors, 5xx and 429.
const maxRetries = 4

// retryInitialInterval seeds the backoff. Tests shrink it.
var retryInitialInterval = 750 * time.Millisecond

// NewHTTPClient returns the HTTP client connectors share: 20 second total
// timeout, 5 second connect timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 20 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	}
}

// NewRetryHTTPClient returns an HTTP client whose transport applies the
// shared retry policy. Intended for SDK clients (go-github, google-api)
// that issue requests themselves.
func NewRetryHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   20 * time.Second,
		Transport: NewRetryTransport(nil),
	}
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.Multiplier = 1.7
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0
	return bo
}

// DoRequest sends one HTTP request, retrying transient failures with
// exponential backoff. newReq builds a fresh request per attempt so bodies
// are never reused. A Retry-After header stretches the current delay but
// never shortens it. Non-transient responses return to the caller
// untouched, body open. A 429 that outlives the retry budget becomes an
// Other error; 5xx exhaustion returns the final response for CheckStatus.
func DoRequest(ctx context.Context, client *http.Client, newReq func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	bo := newBackOff()

	for attempt := 0; ; attempt++ {
		req, err := newReq(ctx)
		if err != nil {
			return nil, domain.Otherf("building request: %v", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt == maxRetries {
				return nil, domain.HTTPRequestErr(err)
			}
			if waitErr := sleep(ctx, bo.NextBackOff()); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		if !transientStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt == maxRetries {
			if resp.StatusCode == http.StatusTooManyRequests {
				drain(resp)
				return nil, rateLimitedErr()
			}
			return resp, nil
		}

		delay := bo.NextBackOff()
		if after := retryAfter(resp); after > delay {
			delay = after
		}
		logger.Debug("retrying %s %s after %s (status %d, attempt %d)",
			req.Method, req.URL.Path, delay, resp.StatusCode, attempt+1)
		drain(resp)
		if waitErr := sleep(ctx, delay); waitErr != nil {
			return nil, waitErr
		}
	}
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// rateLimitedErr is the error for a 429 that survived the whole retry
// budget. It is deliberately Other, not HttpRequest: the request itself was
// fine, the quota was not.
func rateLimitedErr() error {
	return domain.Otherf("upstream rate limited (429) after %d attempts", maxRetries+1)
}

// retryTransport applies the shared retry policy at the RoundTripper level
// so SDK-owned HTTP clients get the same behavior as DoRequest.
type retryTransport struct {
	base http.RoundTripper
}

// NewRetryTransport wraps base with transient-failure retries. A nil base
// uses the connectors' default dialer settings.
func NewRetryTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = &http.Transport{
			DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		}
	}
	return &retryTransport{base: base}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A one-shot body cannot be replayed; send it once.
	if req.Body != nil && req.GetBody == nil {
		return t.base.RoundTrip(req)
	}

	bo := newBackOff()
	for attempt := 0; ; attempt++ {
		attemptReq := req
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq = req.Clone(req.Context())
			attemptReq.Body = body
		}

		resp, err := t.base.RoundTrip(attemptReq)
		if err != nil {
			if req.Context().Err() != nil || attempt == maxRetries {
				return nil, err
			}
			if waitErr := sleep(req.Context(), bo.NextBackOff()); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		if !transientStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt == maxRetries {
			if resp.StatusCode == http.StatusTooManyRequests {
				drain(resp)
				return nil, rateLimitedErr()
			}
			return resp, nil
		}

		delay := bo.NextBackOff()
		if after := retryAfter(resp); after > delay {
			delay = after
		}
		logger.Debug("retrying %s %s after %s (status %d, attempt %d)",
			req.Method, req.URL.Path, delay, resp.StatusCode, attempt+1)
		drain(resp)
		if waitErr := sleep(req.Context(), delay); waitErr != nil {
			return nil, waitErr
		}
	}
}

// retryAfter parses a Retry-After header in either delta-seconds or
// HTTP-date form. Returns zero when absent or unparseable.
func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		return time.Until(at)
	}
	return 0
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
