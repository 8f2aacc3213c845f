package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/chilemetrics/chilemetrics/agent/internal/config"
	"github.com/chilemetrics/chilemetrics/pkg/types"
)

// Source names, used in logs, errors and telemetry labels.
const (
	NameWeather  = "weather"
	NameSeismic  = "seismic"
	NameCurrency = "currency"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

const userAgent = "chilemetrics-agent/1.0"

// Client fetches one upstream API and parses it into domain records.
// Fetch issues exactly one request and never retries.
type Client interface {
	Name() string
	Fetch(ctx context.Context) ([]types.Record, error)
}

// New returns a Client for every enabled source in cfg, in the fixed order
// weather, seismic, currency. All clients share one HTTP client whose
// timeout is cfg.Timeout.
func New(cfg config.SourcesConfig) []Client {
	hc := &http.Client{Timeout: cfg.Timeout}

	var clients []Client
	if !cfg.Weather.Disabled {
		clients = append(clients, &weatherClient{url: cfg.Weather.URL, client: hc, now: time.Now})
	}
	if !cfg.Seismic.Disabled {
		clients = append(clients, &seismicClient{
			url:       cfg.Seismic.URL,
			client:    hc,
			maxEvents: cfg.Seismic.MaxEvents,
		})
	}
	if !cfg.Currency.Disabled {
		clients = append(clients, &currencyClient{
			url:    cfg.Currency.URL,
			client: hc,
			codes:  codeSet(cfg.Currency.Codes),
			now:    time.Now,
		})
	}
	return clients
}

// fetchBody performs an HTTP GET to url and returns the response body.
// Failures are returned as *FetchError tagged with source.
func fetchBody(ctx context.Context, client *http.Client, source, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Source: source, Kind: KindTransport, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: source, Kind: classify(err), Err: fmt.Errorf("http get: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &FetchError{
			Source: source,
			Kind:   KindHTTPStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Source: source, Kind: classify(err), Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// classify maps a transport error to KindTimeout or KindTransport.
func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}

func parseError(source string, err error) error {
	return &FetchError{Source: source, Kind: KindParse, Err: err}
}
