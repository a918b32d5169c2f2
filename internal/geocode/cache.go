package geocode

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// CacheEntry is one cached resolution of a normalized free-text query.
type CacheEntry struct {
	Address Address `json:"address"`
	Source  Source  `json:"source"`
}

// Cache maps normalized free-text queries to geocoding results. Entries are
// appended to the backing file synchronously with the in-memory update, so a
// crash mid-batch never loses already-resolved queries (and never re-spends
// rate-limited network calls on them).
//
// The file holds two-line records: the query on one line, the JSON-encoded
// entry on the next.
type Cache struct {
	path    string
	entries map[string]CacheEntry
	file    *os.File
}

// OpenCache loads the cache file at path, creating it when missing.
func OpenCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]CacheEntry)}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening location cache: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		query := scanner.Text()
		if !scanner.Scan() {
			return nil, fmt.Errorf("location cache %s: dangling query %q", path, query)
		}
		var entry CacheEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("location cache %s: entry for %q: %w", path, query, err)
		}
		c.entries[query] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading location cache: %w", err)
	}
	return c, nil
}

// Get returns the cached entry for a normalized query.
func (c *Cache) Get(query string) (CacheEntry, bool) {
	entry, ok := c.entries[query]
	return entry, ok
}

// Len returns the number of cached queries.
func (c *Cache) Len() int { return len(c.entries) }

// Put records the entry in memory and appends it to the backing file
// immediately. Existing entries are never overwritten on disk; the in-memory
// map keeps the latest value.
func (c *Cache) Put(query string, entry CacheEntry) error {
	if c.file == nil {
		f, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening location cache for append: %w", err)
		}
		c.file = f
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if _, err := fmt.Fprintf(c.file, "%s\n%s\n", query, encoded); err != nil {
		return fmt.Errorf("appending to location cache: %w", err)
	}
	c.entries[query] = entry
	return nil
}

// Close releases the append handle. The cache stays readable.
func (c *Cache) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}
