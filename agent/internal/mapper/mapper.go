// Package mapper converts domain records into uniform metric samples.
//
// Map is pure and deterministic: WeatherReading yields a temperature and a
// humidity sample labeled by station, SeismicEvent yields a magnitude and a
// depth sample labeled by location, CurrencyRate yields one value sample
// labeled by code. Records with a missing, non-finite or out-of-range value
// or an empty identifying label are dropped and reported as warnings.
package mapper

import (
	"fmt"
	"math"
	"time"

	"github.com/chilemetrics/chilemetrics/pkg/types"
)

// Warning describes one record dropped during mapping.
type Warning struct {
	Record types.Record
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%T: %s", w.Record, w.Reason)
}

// Result is the output of Map.
type Result struct {
	Samples  []types.Sample
	Warnings []Warning
}

// Map converts records to samples in input order. Records without their own
// timestamp are stamped with collectedAt.
//
// Map panics on a record type it has no rule for; the record set is closed,
// so that can only be a programming error.
func Map(records []types.Record, collectedAt time.Time) Result {
	var res Result
	for _, rec := range records {
		switch r := rec.(type) {
		case types.WeatherReading:
			samples, reason := mapWeather(r, collectedAt)
			res.add(rec, samples, reason)
		case types.SeismicEvent:
			samples, reason := mapSeismic(r, collectedAt)
			res.add(rec, samples, reason)
		case types.CurrencyRate:
			samples, reason := mapCurrency(r, collectedAt)
			res.add(rec, samples, reason)
		default:
			panic(fmt.Sprintf("mapper: no mapping rule for %T", rec))
		}
	}
	return res
}

func (res *Result) add(rec types.Record, samples []types.Sample, reason string) {
	if reason != "" {
		res.Warnings = append(res.Warnings, Warning{Record: rec, Reason: reason})
		return
	}
	res.Samples = append(res.Samples, samples...)
}

func mapWeather(r types.WeatherReading, collectedAt time.Time) ([]types.Sample, string) {
	if r.Station == "" {
		return nil, "empty station name"
	}
	if reason := checkValue("temperature", r.TempC); reason != "" {
		return nil, reason
	}
	if reason := checkValue("humidity", r.HumidityPct); reason != "" {
		return nil, reason
	}
	if r.HumidityPct < 0 || r.HumidityPct > 100 {
		return nil, fmt.Sprintf("humidity %v outside [0,100]", r.HumidityPct)
	}

	ts := stamp(r.ObservedAt, collectedAt)
	return []types.Sample{
		{Name: types.MetricTemperature, Labels: label(types.LabelStation, r.Station), Value: r.TempC, Timestamp: ts},
		{Name: types.MetricHumidity, Labels: label(types.LabelStation, r.Station), Value: r.HumidityPct, Timestamp: ts},
	}, ""
}

func mapSeismic(r types.SeismicEvent, collectedAt time.Time) ([]types.Sample, string) {
	if r.Location == "" {
		return nil, "empty location"
	}
	if reason := checkValue("magnitude", r.Magnitude); reason != "" {
		return nil, reason
	}
	if reason := checkValue("depth", r.DepthKm); reason != "" {
		return nil, reason
	}
	if r.Magnitude < 0 {
		return nil, fmt.Sprintf("negative magnitude %v", r.Magnitude)
	}
	if r.DepthKm < 0 {
		return nil, fmt.Sprintf("negative depth %v", r.DepthKm)
	}

	ts := stamp(r.OccurredAt, collectedAt)
	return []types.Sample{
		{Name: types.MetricQuakeMagnitude, Labels: label(types.LabelLocation, r.Location), Value: r.Magnitude, Timestamp: ts},
		{Name: types.MetricQuakeDepth, Labels: label(types.LabelLocation, r.Location), Value: r.DepthKm, Timestamp: ts},
	}, ""
}

func mapCurrency(r types.CurrencyRate, collectedAt time.Time) ([]types.Sample, string) {
	if r.Code == "" {
		return nil, "empty currency code"
	}
	if reason := checkValue("value", r.CLP); reason != "" {
		return nil, reason
	}
	if r.CLP <= 0 {
		return nil, fmt.Sprintf("non-positive value %v", r.CLP)
	}

	return []types.Sample{{
		Name:      types.MetricCurrency,
		Labels:    label(types.LabelCode, r.Code),
		Value:     r.CLP,
		Timestamp: stamp(r.AsOf, collectedAt),
	}}, ""
}

func checkValue(field string, v float64) string {
	switch {
	case math.IsNaN(v):
		return "missing " + field
	case math.IsInf(v, 0):
		return "non-finite " + field
	}
	return ""
}

// label returns a fresh single-label set so samples never share a slice.
func label(name, value string) []types.Label {
	return []types.Label{{Name: name, Value: value}}
}

func stamp(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t
}
