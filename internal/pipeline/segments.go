package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dialectmap/gswcorpus/internal/geocode"
)

// Record is one admitted sentence with everything the labelling passes need.
type Record struct {
	Sentence   string         `json:"sentence"`
	Lon        float64        `json:"lon"`
	Lat        float64        `json:"lat"`
	Prediction float64        `json:"prediction"`
	Source     geocode.Source `json:"source"`
	UserID     string         `json:"user_id"`
	// UserLocation is the raw free-text location field of the author,
	// kept for the manual location-review pass during labelling.
	UserLocation string `json:"user_location,omitempty"`
	TweetID      string `json:"tweet_id"`
}

// SegmentStore persists pipeline output as numbered JSON segment files in one
// directory. Segments are append-only at the directory level: a new batch
// always gets a fresh number, existing segments are never rewritten.
type SegmentStore struct {
	dir string
}

// NewSegmentStore returns a store over dir, creating it when missing.
func NewSegmentStore(dir string) (*SegmentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating segment dir: %w", err)
	}
	return &SegmentStore{dir: dir}, nil
}

// Write stores the records in the next free segment and returns its path.
func (s *SegmentStore) Write(records []Record) (string, error) {
	next := 0
	existing, err := s.List()
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		last := existing[len(existing)-1]
		n, _ := segmentNumber(last)
		next = n + 1
	}
	path := filepath.Join(s.dir, strconv.Itoa(next)+".json")

	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encoding segment: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing segment: %w", err)
	}
	return path, nil
}

// Read loads one segment file.
func (s *SegmentStore) Read(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading segment: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing segment %s: %w", path, err)
	}
	return records, nil
}

// List returns the segment paths in numeric order.
func (s *SegmentStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing segments: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := segmentNumber(e.Name()); ok {
			paths = append(paths, filepath.Join(s.dir, e.Name()))
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		a, _ := segmentNumber(paths[i])
		b, _ := segmentNumber(paths[j])
		return a < b
	})
	return paths, nil
}

// Remove deletes the given segment files, used after a successful merge.
func (s *SegmentStore) Remove(paths []string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("removing segment: %w", err)
		}
	}
	return nil
}

// segmentNumber extracts N from a path ending in N.json.
func segmentNumber(path string) (int, bool) {
	name := filepath.Base(path)
	name, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
