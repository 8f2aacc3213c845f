package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chilemetrics/chilemetrics/pkg/types"
)

// Weather field names: the public API spells them in Spanish, the English
// aliases are accepted as well.
var (
	weatherStation  = []string{"Estacion", "station"}
	weatherCode     = []string{"Codigo", "code"}
	weatherTemp     = []string{"Temp", "temperature"}
	weatherHumidity = []string{"Humedad", "humidity"}
)

type weatherClient struct {
	url    string
	client *http.Client
	now    func() time.Time
}

func (c *weatherClient) Name() string { return NameWeather }

// Fetch returns one WeatherReading per station in the response. The API
// carries no full observation date, so readings are stamped with the fetch
// time.
func (c *weatherClient) Fetch(ctx context.Context) ([]types.Record, error) {
	body, err := fetchBody(ctx, c.client, NameWeather, c.url)
	if err != nil {
		return nil, err
	}
	records, err := parseWeather(body, c.now().UTC())
	if err != nil {
		return nil, parseError(NameWeather, err)
	}
	slog.Debug("source: weather fetched", "stations", len(records))
	return records, nil
}

func parseWeather(body []byte, fetchedAt time.Time) ([]types.Record, error) {
	items, err := decodeItems(body)
	if err != nil {
		return nil, err
	}

	records := make([]types.Record, 0, len(items))
	named := 0
	for i, it := range items {
		station, err := it.str(weatherStation...)
		if err != nil {
			return nil, fmt.Errorf("station %d: %w", i, err)
		}
		code, err := it.str(weatherCode...)
		if err != nil {
			return nil, fmt.Errorf("station %d: %w", i, err)
		}
		temp, err := it.num(parseDecimal, weatherTemp...)
		if err != nil {
			return nil, fmt.Errorf("station %d: %w", i, err)
		}
		hum, err := it.num(parseDecimal, weatherHumidity...)
		if err != nil {
			return nil, fmt.Errorf("station %d: %w", i, err)
		}
		if station != "" {
			named++
		}
		records = append(records, types.WeatherReading{
			Station:     station,
			StationCode: code,
			TempC:       temp,
			HumidityPct: hum,
			ObservedAt:  fetchedAt,
		})
	}

	if len(items) > 0 && named == 0 {
		return nil, fmt.Errorf("no element carries a station name")
	}
	return records, nil
}
