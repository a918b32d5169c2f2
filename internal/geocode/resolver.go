package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dialectmap/gswcorpus/internal/cleantext"
)

// Result is a resolved free-text location: the address (zero-valued when
// nothing was found) and the source tag describing how it was obtained.
type Result struct {
	Address Address
	Source  Source
}

// Resolver resolves free-text user locations and coordinates. It consults the
// cache before the network, falls back to gazetteer matching on a not-found
// response, and persists every resolution (including misses) so a query is
// never sent to the service twice.
type Resolver struct {
	svc      Service
	cache    *Cache
	gaz      *Gazetteer
	boundary Polygon
}

// NewResolver wires a resolver from its collaborators. gaz may be nil when no
// gazetteer fallback is wanted.
func NewResolver(svc Service, cache *Cache, gaz *Gazetteer, boundary Polygon) *Resolver {
	return &Resolver{svc: svc, cache: cache, gaz: gaz, boundary: boundary}
}

var (
	locationDisallowedRe = regexp.MustCompile(`[^\w\s.,\-\\/()&']`)
	locationNewlineRe    = regexp.MustCompile(`[\r\n]`)
)

// NormalizeQuery reduces a free-text location field to the cache-key form:
// tweet-wide normalization, location-specific character stripping, lower
// case, single spaces.
func NormalizeQuery(query string) string {
	query = cleantext.Normalize(query)
	query = locationDisallowedRe.ReplaceAllString(query, " ")
	query = locationNewlineRe.ReplaceAllString(query, " ")
	query = cleantext.CleanSpaces(query)
	return strings.ToLower(query)
}

// ResolveFreeText resolves a free-text location field.
//
// The normalized query is looked up in the cache first; queries shorter than
// two characters are rejected as noise without a network call. A not-found
// response from the service triggers exactly one retry with a gazetteer
// match found inside the query (a Swiss city name or postal code); a second
// not-found is recorded as a miss, never retried further. Every outcome is
// cached and persisted immediately. Errors other than not-found propagate:
// they indicate a service or configuration problem, not a data problem.
func (r *Resolver) ResolveFreeText(ctx context.Context, query string) (Result, error) {
	query = NormalizeQuery(query)

	if entry, ok := r.cache.Get(query); ok {
		return Result{Address: entry.Address, Source: entry.Source}, nil
	}
	if len([]rune(query)) < 2 {
		return Result{Source: SourceNone}, nil
	}

	slog.Info("forward geocoding", "query", query)
	addr, err := r.svc.Forward(ctx, query)
	if err == nil {
		return r.record(query, addr, SourceGeocoder)
	}
	if !errors.Is(err, ErrNotFound) {
		return Result{}, err
	}

	chWord, ok := "", false
	if r.gaz != nil {
		chWord, ok = r.gaz.Match(query)
	}
	if !ok {
		return r.record(query, Address{}, SourceNone)
	}

	slog.Info("not found, retrying with gazetteer match", "query", query, "ch_word", chWord)
	addr, err = r.svc.Forward(ctx, chWord)
	if err == nil {
		return r.record(query, addr, SourceCHWord)
	}
	if !errors.Is(err, ErrNotFound) {
		return Result{}, err
	}
	// a gazetteer entry that the service cannot resolve, typically an
	// approximate postal code; record the miss for manual review
	slog.Warn("gazetteer match not resolvable", "query", query, "ch_word", chWord)
	return r.record(query, Address{}, SourceNone)
}

// record caches the outcome in memory and on disk, then returns it.
func (r *Resolver) record(query string, addr Address, src Source) (Result, error) {
	if err := r.cache.Put(query, CacheEntry{Address: addr, Source: src}); err != nil {
		return Result{}, fmt.Errorf("persisting location cache: %w", err)
	}
	return Result{Address: addr, Source: src}, nil
}

// ReverseState resolves coordinates to (countryCode, state). A not-found
// response yields empty strings with no error; any other failure propagates.
func (r *Resolver) ReverseState(ctx context.Context, lon, lat float64) (countryCode, state string, err error) {
	addr, err := r.svc.Reverse(ctx, lon, lat)
	if errors.Is(err, ErrNotFound) {
		slog.Info("no address at coordinates", "lon", lon, "lat", lat)
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	return addr.CountryCode, addr.State, nil
}

// InSwitzerland reports whether the coordinates fall inside the configured
// country boundary, border inclusive.
func (r *Resolver) InSwitzerland(lon, lat float64) bool {
	return r.boundary.Contains(lon, lat)
}

// Close flushes and closes the cache append handle.
func (r *Resolver) Close() error {
	return r.cache.Close()
}
