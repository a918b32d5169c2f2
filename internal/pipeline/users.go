package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// UserCounter tracks how many high-confidence sentences each user has
// contributed. The table persists as a two-column CSV keyed by user id.
type UserCounter struct {
	path   string
	counts map[string]int
}

// OpenUserCounter loads the user table at path. With reset true the existing
// table is discarded and an empty one written, which is what a dataset
// rebuild wants. A missing file starts an empty table either way.
func OpenUserCounter(path string, reset bool) (*UserCounter, error) {
	u := &UserCounter{path: path, counts: make(map[string]int)}
	if reset {
		if err := u.Save(); err != nil {
			return nil, err
		}
		return u, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		if err := u.Save(); err != nil {
			return nil, err
		}
		return u, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening user table: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading user table: %w", err)
	}
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			// header row
			continue
		}
		count, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("user table row %d: bad count %q", i+1, row[1])
		}
		u.counts[row[0]] = count
	}
	return u, nil
}

// Add counts one sentence for the user and reports whether the user is new.
func (u *UserCounter) Add(userID string) bool {
	_, known := u.counts[userID]
	u.counts[userID]++
	return !known
}

// Count returns the user's sentence count.
func (u *UserCounter) Count(userID string) int { return u.counts[userID] }

// Len returns the number of known users.
func (u *UserCounter) Len() int { return len(u.counts) }

// Save rewrites the table, sorted by user id for stable diffs.
func (u *UserCounter) Save() error {
	f, err := os.Create(u.path)
	if err != nil {
		return fmt.Errorf("writing user table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"user_id", "gsw_tweet_count"}); err != nil {
		return fmt.Errorf("writing user table: %w", err)
	}
	ids := make([]string, 0, len(u.counts))
	for id := range u.counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := w.Write([]string{id, strconv.Itoa(u.counts[id])}); err != nil {
			return fmt.Errorf("writing user table: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
