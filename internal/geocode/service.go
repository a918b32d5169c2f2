// Package geocode resolves tweet geography: free-text user locations via the
// external geocoding service (with an append-only on-disk cache and a Swiss
// gazetteer fallback), reverse geocoding of coordinates to a canton, the
// Switzerland boundary test, and the canton to dialect-group mapping.
package geocode

import (
	"context"
	"errors"
)

// ErrNotFound is the distinguishable "no result" condition from the external
// geocoding service. Callers treat it as data, not failure; any other error
// from the service indicates a service or configuration problem and must
// propagate.
var ErrNotFound = errors.New("location not found")

// Address is the subset of a geocoding result the pipeline consumes.
type Address struct {
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
	DisplayName string  `json:"display_name,omitempty"`
	State       string  `json:"state,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
}

// Service is the external forward/reverse geocoding collaborator. Both calls
// return ErrNotFound for an empty result set.
type Service interface {
	// Forward resolves a free-text place description to the best candidate.
	Forward(ctx context.Context, query string) (Address, error)
	// Reverse resolves coordinates to an address with country and state.
	Reverse(ctx context.Context, lon, lat float64) (Address, error)
}

// Source tags where a tweet's coordinates came from. The wire strings match
// the historical dataset so old and new segments stay compatible.
type Source string

const (
	SourceGPS      Source = "GPS"
	SourcePlace    Source = "Twitter_place"
	SourceGeocoder Source = "Geocoder_original"
	SourceCHWord   Source = "Geocoder_CH_word"
	SourceNone     Source = ""
)
