package telegram

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/officebot/core/logger"
	"github.com/m3rciful/officebot/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 2 * time.Second

	// Telegram holds getUpdates open for the poll timeout; replies may take
	// that long plus this margin.
	responseMargin = 5 * time.Second
	clientMargin   = 20 * time.Second
)

// BuildHTTPClient returns an HTTP client for Telegram API calls. pollTimeout
// is the long polling timeout; response deadlines are derived from it.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	if pollTimeout < 0 {
		pollTimeout = 0
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: pollTimeout + responseMargin,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout: pollTimeout + clientMargin,
		Transport: &retryTransport{
			base:       transport,
			maxRetries: defaultRetryAttempts,
			backoff:    defaultRetryBackoff,
		},
	}
}

// retryTransport repeats requests that never reached Telegram. A request
// that timed out afterwards may have been applied and is not repeated.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		curr := req
		if attempt > 1 {
			if req.Body != nil && req.GetBody == nil {
				return nil, lastErr
			}
			curr = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				curr.Body = body
			}
		}

		resp, err := base.RoundTrip(curr)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.NotSent(err) || attempt == attempts {
			break
		}

		delay := t.backoff * time.Duration(attempt)
		logger.Debug(req.Context(), logger.CompTG, "http.retry",
			slog.String("path", logger.SanitizeLimit(methodOf(req.URL.Path), 64)),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

// methodOf returns the Bot API method of a request path, dropping the token.
func methodOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
