package geocode

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dialectmap/gswcorpus/internal/cleantext"
)

// Gazetteer is the fixed list of Swiss place names and postal codes used as a
// fallback when the geocoding service cannot resolve a full location field.
// Entries keep their original spelling for querying the service, plus a
// heavily normalized form for matching inside normalized location fields.
type Gazetteer struct {
	words []string
	norm  []string
}

// LoadGazetteer reads one entry per line; anything after the first tab is
// dropped (the source lists carry auxiliary columns), empty lines skipped.
func LoadGazetteer(path string) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening gazetteer: %w", err)
	}
	defer f.Close()

	g := &Gazetteer{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '\t'); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		g.words = append(g.words, line)
		g.norm = append(g.norm, cleantext.HeavyNormalize(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading gazetteer: %w", err)
	}
	return g, nil
}

// NewGazetteer builds a gazetteer from in-memory entries (used in tests and
// small configs).
func NewGazetteer(words []string) *Gazetteer {
	g := &Gazetteer{}
	for _, w := range words {
		if w = strings.TrimSpace(w); w == "" {
			continue
		}
		g.words = append(g.words, w)
		g.norm = append(g.norm, cleantext.HeavyNormalize(w))
	}
	return g
}

// Len returns the number of entries.
func (g *Gazetteer) Len() int { return len(g.words) }

// Match scans for the first entry contained in the normalized query as a
// whole word (not bounded by alphanumeric characters) and returns the
// original spelling for re-querying the service. The cheap Contains check
// runs first; the boundary regexp only compiles for actual candidates.
func (g *Gazetteer) Match(query string) (string, bool) {
	norm := cleantext.HeavyNormalize(query)
	for i, w := range g.norm {
		if w == "" || !strings.Contains(norm, w) {
			continue
		}
		re, err := regexp.Compile(`(^|\W)` + regexp.QuoteMeta(w) + `(\W|$)`)
		if err != nil {
			continue
		}
		if re.MatchString(norm) {
			return g.words[i], true
		}
	}
	return "", false
}
