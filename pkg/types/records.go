package types

import "time"

// Record is a domain record produced by one of the source clients.
// The set of implementations is closed to this package.
type Record interface {
	record()
}

// WeatherReading is one station's current observation.
type WeatherReading struct {
	Station     string
	StationCode string
	TempC       float64 // NaN when the source omitted it
	HumidityPct float64 // NaN when the source omitted it
	ObservedAt  time.Time
}

// SeismicEvent is one reported earthquake.
type SeismicEvent struct {
	Location   string
	Magnitude  float64
	DepthKm    float64
	OccurredAt time.Time
}

// CurrencyRate is the value of one currency or indexed unit in Chilean pesos.
type CurrencyRate struct {
	Code string
	Name string
	CLP  float64
	AsOf time.Time
}

func (WeatherReading) record() {}
func (SeismicEvent) record()   {}
func (CurrencyRate) record()   {}
