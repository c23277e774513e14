// -----------------------------------------------------------------------
// Portal transport - cookie sessions, charset decoding, retry, rate limit
// -----------------------------------------------------------------------

package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/interfaces"
	"github.com/ternarybob/findata/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 2

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "findata/1.0"
)

// Transport fetches portal pages with per-call cookie jars
type Transport struct {
	roundTripper http.RoundTripper
	timeout      time.Duration
	userAgent    string
	retry        *RetryPolicy
	limiter      *rate.Limiter
	logger       arbor.ILogger
}

var _ interfaces.Transport = (*Transport)(nil)

// TransportOption configures the Transport.
type TransportOption func(*Transport)

// WithRoundTripper sets the underlying round tripper.
func WithRoundTripper(rt http.RoundTripper) TransportOption {
	return func(t *Transport) {
		t.roundTripper = rt
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) TransportOption {
	return func(t *Transport) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) TransportOption {
	return func(t *Transport) {
		if userAgent != "" {
			t.userAgent = userAgent
		}
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(policy *RetryPolicy) TransportOption {
	return func(t *Transport) {
		if policy != nil {
			t.retry = policy
		}
	}
}

// WithRateLimit sets the request rate. A non-positive rate disables limiting.
func WithRateLimit(requestsPerSecond float64, burst int) TransportOption {
	return func(t *Transport) {
		if burst < 1 {
			burst = 1
		}
		if requestsPerSecond <= 0 {
			t.limiter = rate.NewLimiter(rate.Inf, burst)
			return
		}
		t.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// NewTransport creates a portal transport.
func NewTransport(logger arbor.ILogger, opts ...TransportOption) *Transport {
	t := &Transport{
		roundTripper: http.DefaultTransport,
		timeout:      DefaultTimeout,
		userAgent:    DefaultUserAgent,
		retry:        NewRetryPolicy(),
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:       logger,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Bootstrap issues a GET with an empty jar and returns the cookies the exchange left for rawURL.
func (t *Transport) Bootstrap(ctx context.Context, rawURL string, encoding models.TextEncoding) ([]*http.Cookie, string, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid bootstrap URL: %w", err)
	}

	client, jar, err := newJarClient(t.roundTripper, t.timeout)
	if err != nil {
		return nil, "", err
	}

	body, err := t.fetch(ctx, client, rawURL, encoding)
	if err != nil {
		return nil, "", err
	}

	cookies := jar.Cookies(target)
	t.logger.Debug().
		Str("url", rawURL).
		Int("cookies", len(cookies)).
		Msg("Session bootstrap completed")

	return cookies, body, nil
}

// Get issues a GET carrying cookies scoped to rawURL's host.
func (t *Transport) Get(ctx context.Context, rawURL string, cookies []*http.Cookie, encoding models.TextEncoding) (string, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	client, err := newScopedClient(t.roundTripper, t.timeout, target, cookies)
	if err != nil {
		return "", err
	}

	return t.fetch(ctx, client, rawURL, encoding)
}

// fetch runs one GET under the retry policy and rate limiter and decodes the body.
func (t *Transport) fetch(ctx context.Context, client *http.Client, rawURL string, encoding models.TextEncoding) (string, error) {
	var body string

	statusCode, err := t.retry.ExecuteWithRetry(ctx, t.logger, func() (int, error) {
		if err := t.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", t.userAgent)

		t.logger.Debug().Str("url", rawURL).Msg("Portal request")

		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			return resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status)
		}

		text, err := decodeBody(resp, encoding)
		if err != nil {
			return resp.StatusCode, err
		}
		body = text
		return resp.StatusCode, nil
	})
	if err != nil {
		return "", &models.TransportFault{URL: rawURL, StatusCode: statusCode, Err: err}
	}

	return body, nil
}
