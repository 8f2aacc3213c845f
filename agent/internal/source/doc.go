// Package source provides one client per upstream public API: weather
// stations (weather.go), recent earthquakes (seismic.go) and currency rates
// (currency.go). Each client issues a single GET, parses the JSON body and
// returns typed records from pkg/types. Factory: New(config.SourcesConfig)
// returns the clients of every enabled source.
//
// Clients never retry; a failed source is skipped for the cycle. Failures
// are reported as *FetchError with a Kind of Timeout, HTTPStatus, Parse or
// Transport.
//
// The upstream payloads use Spanish field names and numbers encoded as
// strings ("21.5", "3.5 Ml", "36.123,45"); payload.go holds the lenient
// decoding shared by all three parsers.
package source
