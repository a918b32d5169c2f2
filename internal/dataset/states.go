package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/dialectmap/gswcorpus/internal/geocode"
	"github.com/dialectmap/gswcorpus/internal/pipeline"
)

// StateTable maps coordinates to the canton name the reverse geocoder
// returned, empty for coordinates outside Switzerland. It persists as JSON
// and checkpoints itself during resolution so an aborted run resumes where
// it stopped instead of re-querying from the start.
type StateTable struct {
	path   string
	states map[string]string
}

// CoordKey is the canonical map key for a coordinate pair.
func CoordKey(lon, lat float64) string {
	return strconv.FormatFloat(lon, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)
}

// OpenStateTable loads the table at path, starting empty when missing.
func OpenStateTable(path string) (*StateTable, error) {
	t := &StateTable{path: path, states: make(map[string]string)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening state table: %w", err)
	}
	if err := json.Unmarshal(data, &t.states); err != nil {
		return nil, fmt.Errorf("parsing state table: %w", err)
	}
	return t, nil
}

// Get returns the canton for the coordinates. ok is false when the pair was
// never resolved; an empty canton with ok true means outside Switzerland.
func (t *StateTable) Get(lon, lat float64) (string, bool) {
	state, ok := t.states[CoordKey(lon, lat)]
	return state, ok
}

// Len returns the number of resolved coordinate pairs.
func (t *StateTable) Len() int { return len(t.states) }

// Save writes the table to disk.
func (t *StateTable) Save() error {
	data, err := json.MarshalIndent(t.states, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state table: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		return fmt.Errorf("saving state table: %w", err)
	}
	return nil
}

// Resolve reverse geocodes every corpus coordinate pair not yet in the
// table. Coordinates outside Switzerland map to the empty canton. The table
// is checkpointed every interval resolutions; interval <= 0 saves only at
// the end.
func (t *StateTable) Resolve(ctx context.Context, resolver *geocode.Resolver, records []pipeline.Record, interval int) error {
	pending := 0
	for _, r := range records {
		key := CoordKey(r.Lon, r.Lat)
		if _, ok := t.states[key]; ok {
			continue
		}
		country, state, err := resolver.ReverseState(ctx, r.Lon, r.Lat)
		if err != nil {
			// keep the checkpoint before giving up
			if saveErr := t.Save(); saveErr != nil {
				slog.Error("saving state table after failure", "error", saveErr)
			}
			return fmt.Errorf("reverse geocoding %s: %w", key, err)
		}
		if country != "ch" {
			state = ""
		}
		t.states[key] = state
		pending++
		if interval > 0 && pending >= interval {
			if err := t.Save(); err != nil {
				return err
			}
			pending = 0
		}
	}
	return t.Save()
}
