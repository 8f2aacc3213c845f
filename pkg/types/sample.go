package types

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// MetricName is one of the fixed metric names the collector emits.
type MetricName string

const (
	MetricTemperature    MetricName = "chile_temperature_celsius"
	MetricHumidity       MetricName = "chile_humidity_percent"
	MetricQuakeMagnitude MetricName = "chile_earthquake_magnitude"
	MetricQuakeDepth     MetricName = "chile_earthquake_depth_km"
	MetricCurrency       MetricName = "chile_currency_clp"
)

// Label keys used by the emitted samples.
const (
	LabelStation  = "station"
	LabelLocation = "location"
	LabelCode     = "code"
)

// MetricNames is the complete, ordered metric name enumeration.
var MetricNames = []MetricName{
	MetricTemperature,
	MetricHumidity,
	MetricQuakeMagnitude,
	MetricQuakeDepth,
	MetricCurrency,
}

var metricHelp = map[MetricName]string{
	MetricTemperature:    "Air temperature reported by a Chilean weather station, in degrees Celsius.",
	MetricHumidity:       "Relative humidity reported by a Chilean weather station, in percent.",
	MetricQuakeMagnitude: "Magnitude of a recent earthquake in Chile.",
	MetricQuakeDepth:     "Depth of a recent earthquake in Chile, in kilometers.",
	MetricCurrency:       "Value of a currency or indexed unit in Chilean pesos.",
}

// Valid reports whether n belongs to the metric name enumeration.
func (n MetricName) Valid() bool {
	_, ok := metricHelp[n]
	return ok
}

// Help returns the HELP text for n, or "" for an unknown name.
func (n MetricName) Help() string {
	return metricHelp[n]
}

// Label is one key/value pair attached to a Sample.
type Label struct {
	Name  string
	Value string
}

// Sample is one named, labeled, timestamped observation.
type Sample struct {
	Name      MetricName
	Labels    []Label
	Value     float64
	Timestamp time.Time
}

// LabelValue returns the value of the named label and whether it is present.
func (s Sample) LabelValue(name string) (string, bool) {
	for _, l := range s.Labels {
		if l.Name == name {
			return l.Value, true
		}
	}
	return "", false
}

// Series renders the sample's name and label set in exposition syntax with
// labels sorted by name, e.g. chile_currency_clp{code="USD"}. Two samples
// share a series exactly when their Series strings are equal.
func (s Sample) Series() string {
	labels := make([]Label, len(s.Labels))
	copy(labels, s.Labels)
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })

	var b strings.Builder
	b.WriteString(string(s.Name))
	if len(labels) == 0 {
		return b.String()
	}
	b.WriteByte('{')
	for i, l := range labels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.Name)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(l.Value))
	}
	b.WriteByte('}')
	return b.String()
}

// String renders the sample as "series value".
func (s Sample) String() string {
	return s.Series() + " " + strconv.FormatFloat(s.Value, 'g', -1, 64)
}
