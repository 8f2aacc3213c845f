package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	_ "time/tzdata" // America/Santiago must resolve on minimal images

	"github.com/chilemetrics/chilemetrics/pkg/types"
)

// maxLocationRunes bounds the location label length.
const maxLocationRunes = 50

var (
	seismicLocation  = []string{"RefGeografica", "location", "place"}
	seismicTime      = []string{"Fecha", "time", "date"}
	seismicMagnitude = []string{"Magnitud", "magnitude"}
	seismicDepth     = []string{"Profundidad", "depth"}
)

// seismicLayouts are tried in order when parsing an event time.
var seismicLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// santiago is the zone the seismic API reports local times in.
var santiago = loadZone("America/Santiago")

func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type seismicClient struct {
	url       string
	client    *http.Client
	maxEvents int
}

func (c *seismicClient) Name() string { return NameSeismic }

// Fetch returns one SeismicEvent per reported earthquake, keeping only the
// first maxEvents of the response (the API lists the most recent first).
// Events sharing a location are all kept.
func (c *seismicClient) Fetch(ctx context.Context) ([]types.Record, error) {
	body, err := fetchBody(ctx, c.client, NameSeismic, c.url)
	if err != nil {
		return nil, err
	}
	records, err := parseSeismic(body, c.maxEvents)
	if err != nil {
		return nil, parseError(NameSeismic, err)
	}
	slog.Debug("source: seismic fetched", "events", len(records))
	return records, nil
}

func parseSeismic(body []byte, maxEvents int) ([]types.Record, error) {
	items, err := decodeItems(body)
	if err != nil {
		return nil, err
	}
	if maxEvents > 0 && len(items) > maxEvents {
		items = items[:maxEvents]
	}

	records := make([]types.Record, 0, len(items))
	located := 0
	for i, it := range items {
		loc, err := it.str(seismicLocation...)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		when, err := it.str(seismicTime...)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		mag, err := it.num(parseDecimal, seismicMagnitude...)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		depth, err := it.num(parseDecimal, seismicDepth...)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}

		loc = truncateRunes(loc, maxLocationRunes)
		if loc != "" {
			located++
		}
		records = append(records, types.SeismicEvent{
			Location:   loc,
			Magnitude:  mag,
			DepthKm:    depth,
			OccurredAt: parseEventTime(when),
		})
	}

	if len(items) > 0 && located == 0 {
		return nil, fmt.Errorf("no element carries a location")
	}
	return records, nil
}

// parseEventTime returns the zero time when s is empty or unrecognised,
// leaving the sample timestamp to default to the collection time.
func parseEventTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range seismicLayouts {
		if t, err := time.ParseInLocation(layout, s, santiago); err == nil {
			return t.UTC()
		}
	}
	slog.Debug("source: unrecognised seismic event time", "value", s)
	return time.Time{}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
