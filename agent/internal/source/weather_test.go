package source

import (
	"context"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/chilemetrics/chilemetrics/pkg/types"
)

// climaBody is a realistic subset of the public weather endpoint output.
const climaBody = `[
  {"Codigo":"SCEL","Estacion":"Santiago Pudahuel","HoraUpdate":"14:00","Temp":"21.5","Humedad":"60","Estado":"Despejado"},
  {"Codigo":"SCFA","Estacion":"Antofagasta","HoraUpdate":"14:00","Temp":"18,2","Humedad":"72","Estado":"Nublado"},
  {"Codigo":"SCCI","Estacion":"Punta Arenas","HoraUpdate":"14:00","Temp":"-1.5","Humedad":"","Estado":"Nieve"}
]`

var fixedNow = time.Date(2026, 10, 19, 17, 0, 0, 0, time.UTC)

func TestWeatherClient_Fetch(t *testing.T) {
	srv := serveBody(t, http.StatusOK, climaBody)
	c := &weatherClient{url: srv.URL, client: srv.Client(), now: func() time.Time { return fixedNow }}

	records, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}

	first := records[0].(types.WeatherReading)
	if first.Station != "Santiago Pudahuel" || first.StationCode != "SCEL" {
		t.Errorf("station = %q/%q", first.Station, first.StationCode)
	}
	if first.TempC != 21.5 || first.HumidityPct != 60 {
		t.Errorf("temp/humidity = %v/%v, want 21.5/60", first.TempC, first.HumidityPct)
	}
	if !first.ObservedAt.Equal(fixedNow) {
		t.Errorf("ObservedAt = %v, want %v", first.ObservedAt, fixedNow)
	}

	if got := records[1].(types.WeatherReading).TempC; got != 18.2 {
		t.Errorf("comma decimal temp = %v, want 18.2", got)
	}

	last := records[2].(types.WeatherReading)
	if last.TempC != -1.5 {
		t.Errorf("negative temp = %v, want -1.5", last.TempC)
	}
	if !math.IsNaN(last.HumidityPct) {
		t.Errorf("empty humidity should be NaN, got %v", last.HumidityPct)
	}
}

func TestWeatherClient_SingleObjectEnglishKeys(t *testing.T) {
	srv := serveBody(t, http.StatusOK, `{"station":"Santiago Centro","temp":21.5,"humidity":60}`)
	c := &weatherClient{url: srv.URL, client: srv.Client(), now: func() time.Time { return fixedNow }}

	records, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	r := records[0].(types.WeatherReading)
	if r.Station != "Santiago Centro" || r.TempC != 21.5 || r.HumidityPct != 60 {
		t.Errorf("reading = %+v", r)
	}
}

func TestWeatherClient_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrong_type", `[{"Estacion":"Santiago","Temp":true,"Humedad":"60"}]`},
		{"object_station", `[{"Estacion":{"name":"x"},"Temp":"1","Humedad":"2"}]`},
		{"no_station_anywhere", `[{"Temp":"21","Humedad":"60"},{"Temp":"19","Humedad":"50"}]`},
		{"not_json", `<html>maintenance</html>`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := serveBody(t, http.StatusOK, tc.body)
			c := &weatherClient{url: srv.URL, client: srv.Client(), now: time.Now}
			_, err := c.Fetch(context.Background())
			wantFetchError(t, err, KindParse)
		})
	}
}

func TestWeatherClient_MissingStationKeptForMapper(t *testing.T) {
	body := `[{"Estacion":"Calama","Temp":"25","Humedad":"10"},{"Temp":"19","Humedad":"50"}]`
	records, err := parseWeather([]byte(body), fixedNow)
	if err != nil {
		t.Fatalf("parseWeather() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if got := records[1].(types.WeatherReading).Station; got != "" {
		t.Errorf("Station = %q, want empty", got)
	}
}

func TestWeatherClient_EmptyArray(t *testing.T) {
	srv := serveBody(t, http.StatusOK, `[]`)
	c := &weatherClient{url: srv.URL, client: srv.Client(), now: time.Now}

	records, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}
