package geocode_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dialectmap/gswcorpus/internal/geocode"
)

// fakeService resolves queries from a fixed table; anything else is a
// not-found. A non-nil err is returned for every call instead.
type fakeService struct {
	addresses    map[string]geocode.Address
	err          error
	forwardCalls []string
	reverse      geocode.Address
	reverseErr   error
}

func (f *fakeService) Forward(_ context.Context, query string) (geocode.Address, error) {
	f.forwardCalls = append(f.forwardCalls, query)
	if f.err != nil {
		return geocode.Address{}, f.err
	}
	if addr, ok := f.addresses[query]; ok {
		return addr, nil
	}
	return geocode.Address{}, geocode.ErrNotFound
}

func (f *fakeService) Reverse(_ context.Context, lon, lat float64) (geocode.Address, error) {
	if f.reverseErr != nil {
		return geocode.Address{}, f.reverseErr
	}
	return f.reverse, nil
}

func newResolver(t *testing.T, svc geocode.Service, gaz *geocode.Gazetteer) (*geocode.Resolver, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loc_to_coords.txt")
	cache, err := geocode.OpenCache(path)
	if err != nil {
		t.Fatalf("OpenCache() error = %v", err)
	}
	return geocode.NewResolver(svc, cache, gaz, nil), path
}

func TestResolveFreeText_CachesUnderNormalizedKey(t *testing.T) {
	svc := &fakeService{addresses: map[string]geocode.Address{
		"echallens": {Lon: 6.63, Lat: 46.64, State: "Vaud", CountryCode: "ch"},
	}}
	resolver, path := newResolver(t, svc, nil)

	res, err := resolver.ResolveFreeText(context.Background(), "Echallens")
	if err != nil {
		t.Fatalf("ResolveFreeText() error = %v", err)
	}
	if res.Source != geocode.SourceGeocoder {
		t.Errorf("source = %q, expected %q", res.Source, geocode.SourceGeocoder)
	}
	if res.Address.Lat != 46.64 {
		t.Errorf("lat = %v, expected 46.64", res.Address.Lat)
	}
	if len(svc.forwardCalls) != 1 {
		t.Fatalf("forward calls = %d, expected 1", len(svc.forwardCalls))
	}

	// second resolution must come from the cache, no network call
	res2, err := resolver.ResolveFreeText(context.Background(), "ECHALLENS  ")
	if err != nil {
		t.Fatalf("ResolveFreeText() error = %v", err)
	}
	if len(svc.forwardCalls) != 1 {
		t.Errorf("forward calls = %d after cache hit, expected 1", len(svc.forwardCalls))
	}
	if res2.Address != res.Address {
		t.Errorf("cached address differs: %+v != %+v", res2.Address, res.Address)
	}

	// the entry must already be on disk
	if err := resolver.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	reloaded, err := geocode.OpenCache(path)
	if err != nil {
		t.Fatalf("OpenCache() reload error = %v", err)
	}
	if _, ok := reloaded.Get("echallens"); !ok {
		t.Error("entry for \"echallens\" not persisted")
	}
}

func TestResolveFreeText_ShortQuerySkipsNetwork(t *testing.T) {
	svc := &fakeService{}
	resolver, _ := newResolver(t, svc, nil)

	res, err := resolver.ResolveFreeText(context.Background(), " x ")
	if err != nil {
		t.Fatalf("ResolveFreeText() error = %v", err)
	}
	if res.Source != geocode.SourceNone {
		t.Errorf("source = %q, expected none", res.Source)
	}
	if len(svc.forwardCalls) != 0 {
		t.Errorf("forward calls = %d, expected 0", len(svc.forwardCalls))
	}
}

func TestResolveFreeText_GazetteerFallback(t *testing.T) {
	svc := &fakeService{addresses: map[string]geocode.Address{
		"Goumoëns": {Lon: 6.6, Lat: 46.66, State: "Vaud", CountryCode: "ch"},
	}}
	gaz := geocode.NewGazetteer([]string{"Goumoëns", "1376"})
	resolver, _ := newResolver(t, svc, gaz)

	res, err := resolver.ResolveFreeText(context.Background(), "I LIVE in >>>Goûmoens'la-ville<<< !!!")
	if err != nil {
		t.Fatalf("ResolveFreeText() error = %v", err)
	}
	if res.Source != geocode.SourceCHWord {
		t.Errorf("source = %q, expected %q", res.Source, geocode.SourceCHWord)
	}
	if len(svc.forwardCalls) != 2 {
		t.Fatalf("forward calls = %d, expected 2 (original + gazetteer retry)", len(svc.forwardCalls))
	}
	if svc.forwardCalls[1] != "Goumoëns" {
		t.Errorf("retry query = %q, expected original gazetteer spelling", svc.forwardCalls[1])
	}
}

func TestResolveFreeText_DoubleNotFoundStops(t *testing.T) {
	svc := &fakeService{}
	gaz := geocode.NewGazetteer([]string{"1376"})
	resolver, _ := newResolver(t, svc, gaz)

	res, err := resolver.ResolveFreeText(context.Background(), "1376, with my cows")
	if err != nil {
		t.Fatalf("ResolveFreeText() error = %v", err)
	}
	if res.Source != geocode.SourceNone {
		t.Errorf("source = %q, expected none", res.Source)
	}
	if len(svc.forwardCalls) != 2 {
		t.Fatalf("forward calls = %d, expected exactly 2 (never loop further)", len(svc.forwardCalls))
	}

	// the miss is cached, re-resolving makes no further calls
	if _, err := resolver.ResolveFreeText(context.Background(), "1376, with my cows"); err != nil {
		t.Fatalf("ResolveFreeText() error = %v", err)
	}
	if len(svc.forwardCalls) != 2 {
		t.Errorf("forward calls = %d after cached miss, expected 2", len(svc.forwardCalls))
	}
}

func TestResolveFreeText_NoGazetteerMatchCachesMiss(t *testing.T) {
	svc := &fakeService{}
	gaz := geocode.NewGazetteer([]string{"Echallens"})
	resolver, _ := newResolver(t, svc, gaz)

	res, err := resolver.ResolveFreeText(context.Background(), "somewhere over the rainbow")
	if err != nil {
		t.Fatalf("ResolveFreeText() error = %v", err)
	}
	if res.Source != geocode.SourceNone {
		t.Errorf("source = %q, expected none", res.Source)
	}
	if len(svc.forwardCalls) != 1 {
		t.Errorf("forward calls = %d, expected 1", len(svc.forwardCalls))
	}
}

func TestResolveFreeText_ServiceErrorPropagates(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc := &fakeService{err: boom}
	resolver, _ := newResolver(t, svc, nil)

	_, err := resolver.ResolveFreeText(context.Background(), "Echallens")
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, expected the service error to propagate", err)
	}
}

func TestReverseState(t *testing.T) {
	svc := &fakeService{reverse: geocode.Address{CountryCode: "ch", State: "Zurich"}}
	resolver, _ := newResolver(t, svc, nil)

	country, state, err := resolver.ReverseState(context.Background(), 8.54, 47.37)
	if err != nil {
		t.Fatalf("ReverseState() error = %v", err)
	}
	if country != "ch" || state != "Zurich" {
		t.Errorf("ReverseState() = (%q, %q), expected (ch, Zurich)", country, state)
	}

	svc.reverseErr = geocode.ErrNotFound
	country, state, err = resolver.ReverseState(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("ReverseState() not-found should not error, got %v", err)
	}
	if country != "" || state != "" {
		t.Errorf("ReverseState() = (%q, %q), expected empty", country, state)
	}
}

func TestGazetteerMatch(t *testing.T) {
	gaz := geocode.NewGazetteer([]string{"Goumoëns", "1376", "Bern"})

	tests := []struct {
		query    string
		expected string
		ok       bool
	}{
		{"I LIVE in >>>Goûmoens'la-ville<<< !!!", "Goumoëns", true},
		{"1376, with my cows", "1376", true},
		{"Bernstrasse 12", "", false}, // whole-word boundary required
		{"bärn du bisch mini stadt, Bern!", "Bern", true},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := gaz.Match(tt.query)
		if ok != tt.ok || got != tt.expected {
			t.Errorf("Match(%q) = (%q, %v), expected (%q, %v)", tt.query, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestCantonToDialect(t *testing.T) {
	tests := []struct {
		canton   string
		expected geocode.Dialect
	}{
		{"Zurich", geocode.DialectZH},
		{"Aargau", geocode.DialectZH},
		{"Basel-City", geocode.DialectNW},
		{"Luzern", geocode.DialectCE},
		{"Grisons", geocode.DialectGR},
		{"Solothurn", geocode.DialectBE},
		{"Valais/Wallis", geocode.DialectVS},
		{"Sankt Gallen", geocode.DialectEA},
		{"Fribourg", geocode.DialectRO},
		{"Vaud", geocode.DialectUnknown},   // french-speaking, no group
		{"Ticino", geocode.DialectUnknown}, // italian-speaking, no group
		{"Atlantis", geocode.DialectUnknown},
		{"", geocode.DialectUnknown},
	}
	for _, tt := range tests {
		if got := geocode.CantonToDialect(tt.canton); got != tt.expected {
			t.Errorf("CantonToDialect(%q) = %q, expected %q", tt.canton, got, tt.expected)
		}
	}
}

func TestCantonToDialect_TotalOverAllCantons(t *testing.T) {
	// every enumerated canton must map without surprises; the french and
	// italian speaking ones legitimately map to Unknown
	for _, canton := range geocode.Cantons {
		_ = geocode.CantonToDialect(canton)
		if _, ok := geocode.StateCode(canton); !ok {
			t.Errorf("canton %q has no code", canton)
		}
	}
	if len(geocode.Cantons) != 26 {
		t.Fatalf("canton table has %d entries, expected 26", len(geocode.Cantons))
	}
}

func TestPolygonContains(t *testing.T) {
	square := geocode.Polygon{{0, 0}, {0, 2}, {2, 2}, {2, 0}}

	tests := []struct {
		name     string
		lon, lat float64
		expected bool
	}{
		{"inside", 1, 1, true},
		{"outside", 3, 1, false},
		{"on edge", 0, 1, true},
		{"on vertex", 2, 2, true},
		{"just outside edge", 2.0001, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := square.Contains(tt.lon, tt.lat); got != tt.expected {
				t.Errorf("Contains(%v, %v) = %v, expected %v", tt.lon, tt.lat, got, tt.expected)
			}
		})
	}
}

func TestInBoundingBoxes(t *testing.T) {
	boxes := [][4]float64{{0, 0, 2, 2}, {2, 0, 3, 1}}

	tests := []struct {
		lon, lat float64
		expected bool
	}{
		{1, 1, true},
		{0, 2, true},
		{1, 3, false},
		{4, 1, false},
		{-1, 1, false},
		{1, -1, false},
		{2.5, 0.5, true},
		{2.5, 1.5, false},
	}
	for _, tt := range tests {
		if got := geocode.InBoundingBoxes(tt.lon, tt.lat, boxes); got != tt.expected {
			t.Errorf("InBoundingBoxes(%v, %v) = %v, expected %v", tt.lon, tt.lat, got, tt.expected)
		}
	}
}
