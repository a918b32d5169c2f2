package geocode

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"googlemaps.github.io/maps"
)

// MapsService implements Service against the Google Maps geocoding API. The
// service enforces a minimum delay between consecutive network calls; the
// free geocoding tiers are rate limited (roughly one call per second), and a
// batch run must stay under that regardless of how many sentences need
// resolving.
type MapsService struct {
	client *maps.Client
	region string

	mu       sync.Mutex
	minDelay time.Duration
	lastCall time.Time
}

// NewMapsService builds a rate-limited Maps-backed geocoding service.
// region biases forward lookups (e.g. "ch"); minDelay is the minimum time
// between two network calls.
func NewMapsService(apiKey, region string, minDelay time.Duration) (*MapsService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating maps client: %w", err)
	}
	return &MapsService{client: client, region: region, minDelay: minDelay}, nil
}

// throttle blocks until the minimum inter-call delay has elapsed.
func (s *MapsService) throttle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wait := s.minDelay - time.Since(s.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	s.lastCall = time.Now()
}

// Forward resolves a free-text query to the first ranked candidate.
func (s *MapsService) Forward(ctx context.Context, query string) (Address, error) {
	s.throttle()
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: query,
		Region:  s.region,
	})
	if err != nil {
		return Address{}, fmt.Errorf("forward geocoding %q: %w", query, err)
	}
	if len(results) == 0 {
		return Address{}, ErrNotFound
	}
	return fromResult(results[0]), nil
}

// Reverse resolves coordinates to an address with country code and state.
func (s *MapsService) Reverse(ctx context.Context, lon, lat float64) (Address, error) {
	s.throttle()
	results, err := s.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lon},
	})
	if err != nil {
		return Address{}, fmt.Errorf("reverse geocoding (%v, %v): %w", lon, lat, err)
	}
	if len(results) == 0 {
		return Address{}, ErrNotFound
	}
	return fromResult(results[0]), nil
}

// fromResult flattens a geocoding result into an Address. The state is the
// first administrative_area_level_1 component; the country code is
// lower-cased to match the historical dataset convention.
func fromResult(r maps.GeocodingResult) Address {
	addr := Address{
		Lon:         r.Geometry.Location.Lng,
		Lat:         r.Geometry.Location.Lat,
		DisplayName: r.FormattedAddress,
	}
	for _, c := range r.AddressComponents {
		for _, t := range c.Types {
			switch t {
			case "administrative_area_level_1":
				if addr.State == "" {
					addr.State = c.LongName
				}
			case "country":
				if addr.CountryCode == "" {
					addr.CountryCode = strings.ToLower(c.ShortName)
				}
			}
		}
	}
	return addr
}
