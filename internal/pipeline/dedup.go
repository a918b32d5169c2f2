package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DedupTracker decides whether a tweet id is seen for the first time and
// keeps the persistent ledger of processed ids up to date.
type DedupTracker interface {
	// Admit records the id and reports whether it was unseen. The empty id
	// is never admitted.
	Admit(id string) bool
	// Flush persists the ids admitted since the last flush.
	Flush() error
}

// LedgerTracker is the incremental strategy: ids from previous runs are
// loaded from the ledger file and never admitted again. Flush appends the
// newly admitted ids and clears the new set, so a crash between batches
// re-admits at most one batch worth of ids.
type LedgerTracker struct {
	path string
	seen map[string]bool
	new  []string
}

// OpenLedger loads the ledger at path, creating an empty one when missing.
func OpenLedger(path string) (*LedgerTracker, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	t := &LedgerTracker{path: path, seen: make(map[string]bool)}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			t.seen[id] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return t, nil
}

func (t *LedgerTracker) Admit(id string) bool {
	if id == "" || t.seen[id] {
		return false
	}
	t.seen[id] = true
	t.new = append(t.new, id)
	return true
}

func (t *LedgerTracker) Flush() error {
	if len(t.new) == 0 {
		return nil
	}
	f, err := os.OpenFile(t.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger for append: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, id := range t.new {
		fmt.Fprintln(w, id)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("appending to ledger: %w", err)
	}
	t.new = t.new[:0]
	return nil
}

// RecreateTracker is the rebuild strategy: the existing ledger is ignored so
// every tweet is reprocessed, duplicates are only filtered within the run,
// and Flush rewrites the whole ledger from the ids admitted so far.
type RecreateTracker struct {
	path string
	seen map[string]bool
}

// NewRecreateTracker returns a tracker that will rebuild the ledger at path.
func NewRecreateTracker(path string) *RecreateTracker {
	return &RecreateTracker{path: path, seen: make(map[string]bool)}
}

func (t *RecreateTracker) Admit(id string) bool {
	if id == "" || t.seen[id] {
		return false
	}
	t.seen[id] = true
	return true
}

func (t *RecreateTracker) Flush() error {
	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("rewriting ledger: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for id := range t.seen {
		fmt.Fprintln(w, id)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("rewriting ledger: %w", err)
	}
	return nil
}
