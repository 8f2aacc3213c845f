package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chilemetrics/chilemetrics/agent/internal/config"
	"github.com/chilemetrics/chilemetrics/agent/internal/encoder"
)

const (
	userAgent = "chilemetrics-agent/1.0"

	// errBodyBytes is how much of a rejection body is kept for the error.
	errBodyBytes = 512
)

// Writer pushes payloads to the ingestion endpoint.
type Writer struct {
	endpoint       string
	client         *http.Client
	maxAttempts    int
	backoffInitial time.Duration
	backoffMax     time.Duration
	wait           waitFunc // injectable for tests
}

// waitFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type waitFunc func(ctx context.Context, d time.Duration) error

// New builds a Writer from cfg. The credentials are only checked for
// presence; the endpoint is the judge of their validity.
func New(cfg config.RemoteConfig) (*Writer, error) {
	password := cfg.Password()
	if cfg.Username == "" || password == "" {
		return nil, fmt.Errorf("remote: username and password are required")
	}
	endpoint := cfg.Endpoint()
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("remote: invalid endpoint %q: %w", endpoint, err)
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	transport := &basicAuthRoundTripper{
		base: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.TLS.InsecureSkipVerify}, //nolint:gosec // user-configured
		},
		username: cfg.Username,
		password: password,
	}
	return &Writer{
		endpoint:       endpoint,
		client:         &http.Client{Transport: transport, Timeout: cfg.Timeout},
		maxAttempts:    maxAttempts,
		backoffInitial: cfg.BackoffInitial,
		backoffMax:     cfg.BackoffMax,
		wait:           sleepCtx,
	}, nil
}

// Endpoint returns the push URL.
func (w *Writer) Endpoint() string {
	return w.endpoint
}

// Push sends p, retrying transient failures. It returns nil once the
// endpoint answers 2xx, or a *PushError.
func (w *Writer) Push(ctx context.Context, p encoder.Payload) error {
	bo := newBackoff(w.backoffInitial, w.backoffMax)

	for attempt := 1; ; attempt++ {
		err := w.send(ctx, p)
		if err == nil {
			slog.Debug("remote: payload accepted",
				"endpoint", w.endpoint, "samples", p.Samples, "attempt", attempt)
			return nil
		}

		var perr *PushError
		if !errors.As(err, &perr) {
			perr = &PushError{Kind: KindTransient, Err: err}
		}
		perr.Attempts = attempt

		if !perr.Retryable() || attempt >= w.maxAttempts || ctx.Err() != nil {
			return perr
		}

		delay := bo.next()
		slog.Warn("remote: push attempt failed, will retry",
			"endpoint", w.endpoint,
			"attempt", attempt,
			"status", perr.Status,
			"err", perr.Err,
			"retry_in", delay)
		if werr := w.wait(ctx, delay); werr != nil {
			return &PushError{Kind: KindTransient, Attempts: attempt, Err: fmt.Errorf("wait for retry: %w", werr)}
		}
	}
}

// send performs one attempt.
func (w *Writer) send(ctx context.Context, p encoder.Payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(p.Body))
	if err != nil {
		return &PushError{Kind: KindBadRequest, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", p.ContentType)
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return &PushError{Kind: KindTransient, Err: fmt.Errorf("http post: %w", err)}
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyBytes))
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &PushError{
		Kind:   kindForStatus(resp.StatusCode),
		Status: resp.StatusCode,
		Err:    fmt.Errorf("status %d: %s", resp.StatusCode, msg),
	}
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

// basicAuthRoundTripper injects basic-auth credentials into every request.
type basicAuthRoundTripper struct {
	base     http.RoundTripper
	username string
	password string
}

func (t *basicAuthRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}
