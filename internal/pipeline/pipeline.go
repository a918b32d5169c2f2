// Package pipeline turns batches of raw tweets into dialect-corpus records.
//
// A batch runs through a fixed sequence: sub-tweet extraction, duplicate
// filtering against the processed-id ledger, text extraction, cleaning,
// sentence splitting, well-formedness filtering, geocoding, language
// identification, and persistence. Batches are isolated: a failing batch is
// logged and the run continues with the next file, relying on the ledger and
// the location cache to make reprocessing idempotent.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dialectmap/gswcorpus/internal/cleantext"
	"github.com/dialectmap/gswcorpus/internal/geocode"
	"github.com/dialectmap/gswcorpus/internal/langid"
	"github.com/dialectmap/gswcorpus/internal/sentence"
	"github.com/dialectmap/gswcorpus/internal/tweet"
)

// Options are the pipeline tunables.
type Options struct {
	// AdmissionThreshold is the minimum language-id score for a sentence
	// to enter the corpus.
	AdmissionThreshold float64
	// NewUserThreshold is the stricter score for counting a sentence
	// towards a user's high-confidence total.
	NewUserThreshold float64
	// MinLocationLen is the minimum rune length of the free-text location
	// field worth a geocoding attempt.
	MinLocationLen int
	// KeepForeign keeps sentences resolved outside the country boundary.
	KeepForeign bool
	// ClassifyBatchSize bounds the sentences per language-id call.
	ClassifyBatchSize int
	// RemoveProcessed deletes a batch file after it processed cleanly.
	RemoveProcessed bool
}

// Deps are the pipeline collaborators.
type Deps struct {
	Splitter   *sentence.Splitter
	Filter     *sentence.Filter
	Classifier langid.Classifier
	Resolver   *geocode.Resolver
	Dedup      DedupTracker
	Users      *UserCounter
	Segments   *SegmentStore
	// Preprocess is the ordered substitution list applied to raw text
	// before any other cleaning.
	Preprocess []cleantext.Substitution
}

// Pipeline processes raw tweet batches.
type Pipeline struct {
	opts     Options
	deps     Deps
	alphabet cleantext.Charset
}

// New wires a pipeline.
func New(opts Options, deps Deps) *Pipeline {
	return &Pipeline{
		opts:     opts,
		deps:     deps,
		alphabet: cleantext.NewCharset(cleantext.PipelineAlphabet),
	}
}

// Stats are the per-stage counts of one batch.
type Stats struct {
	Raw        int
	Malformed  int
	SubTweets  int
	Unique     int
	Sentences  int
	WellFormed int
	Located    int
	Admitted   int
	NewUsers   int
}

// candidate is a sentence still tied to the index of its source tweet.
type candidate struct {
	idx  int
	text string
}

// location is a resolved tweet origin.
type location struct {
	lon, lat float64
	source   geocode.Source
}

// Run processes every batch file in dir in name order. A failing batch is
// logged and skipped; only listing the directory can fail the run itself.
func (p *Pipeline) Run(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing batch dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats, err := p.ProcessBatch(ctx, path)
		if err != nil {
			slog.Error("batch failed", "path", path, "error", err)
			continue
		}
		slog.Info("batch done",
			"path", path,
			"raw", stats.Raw,
			"unique", stats.Unique,
			"sentences", stats.Sentences,
			"well_formed", stats.WellFormed,
			"admitted", stats.Admitted,
			"new_users", stats.NewUsers)
		if p.opts.RemoveProcessed {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("removing processed batch: %w", err)
			}
		}
	}
	return nil
}

// ProcessBatch runs one batch file through the full pipeline. On error the
// file-system changes already made (cache writes, persisted segments) are
// kept; the ledger is only updated at the very end, so a rerun reprocesses
// the batch without duplicating earlier ones.
func (p *Pipeline) ProcessBatch(ctx context.Context, path string) (Stats, error) {
	var stats Stats

	f, err := os.Open(path)
	if err != nil {
		return stats, fmt.Errorf("opening batch: %w", err)
	}
	tweets, malformed, err := tweet.ReadBatch(f)
	f.Close()
	if err != nil {
		return stats, fmt.Errorf("reading batch: %w", err)
	}
	stats.Raw = len(tweets)
	stats.Malformed = malformed

	tweets = tweet.ExtractSubTweets(tweets)
	stats.SubTweets = len(tweets)

	unique := p.dedup(tweets)
	stats.Unique = len(unique)

	candidates := p.extractSentences(unique)
	stats.Sentences = len(candidates)

	candidates = p.filterWellFormed(candidates)
	stats.WellFormed = len(candidates)

	locations, err := p.resolveGeography(ctx, unique, candidates)
	if err != nil {
		return stats, fmt.Errorf("geocoding: %w", err)
	}

	candidates = p.attachFilter(candidates, locations)
	stats.Located = len(candidates)

	records, err := p.classify(ctx, unique, candidates, locations)
	if err != nil {
		return stats, err
	}
	stats.Admitted = len(records)

	if _, err := p.deps.Segments.Write(records); err != nil {
		return stats, fmt.Errorf("persisting records: %w", err)
	}

	stats.NewUsers = p.updateUserCounts(records)
	if err := p.deps.Users.Save(); err != nil {
		return stats, fmt.Errorf("saving user table: %w", err)
	}

	if err := p.deps.Dedup.Flush(); err != nil {
		return stats, fmt.Errorf("updating ledger: %w", err)
	}
	return stats, nil
}

// dedup keeps the tweets whose identity is admitted for the first time.
func (p *Pipeline) dedup(tweets []*tweet.Tweet) []*tweet.Tweet {
	var unique []*tweet.Tweet
	for _, t := range tweets {
		if t.IsLimitNotice() {
			continue
		}
		if p.deps.Dedup.Admit(t.Identity()) {
			unique = append(unique, t)
		}
	}
	return unique
}

// extractSentences extracts, cleans, and splits each tweet's text into
// candidate sentences keeping the tweet index association.
func (p *Pipeline) extractSentences(tweets []*tweet.Tweet) []candidate {
	var candidates []candidate
	for idx, t := range tweets {
		text, err := t.ExtractText()
		if err != nil {
			slog.Warn("tweet without text", "id", t.Identity(), "error", err)
			continue
		}
		text = cleantext.Preprocess(text, p.deps.Preprocess)
		text = cleantext.Normalize(text)
		for _, s := range p.deps.Splitter.Split(text) {
			s = cleantext.RemoveCharsOutsideAlphabet(s, p.alphabet)
			s = cleantext.CleanSpaces(s)
			s = strings.ReplaceAll(s, " ,", ",")
			if s != "" {
				candidates = append(candidates, candidate{idx: idx, text: s})
			}
		}
	}
	return candidates
}

// filterWellFormed keeps the candidates passing the sentence rules.
func (p *Pipeline) filterWellFormed(candidates []candidate) []candidate {
	var kept []candidate
	for _, c := range candidates {
		if p.deps.Filter.Valid(c.text) {
			kept = append(kept, c)
		}
	}
	return kept
}

// resolveGeography resolves each distinct tweet index with a surviving
// candidate. Priority: precise GPS coordinates, then the place bounding-box
// centroid, then forward geocoding of the user location field. A tweet with
// none of these gets sentinel coordinates and an empty source. Geocoding
// errors other than not-found abort the batch.
func (p *Pipeline) resolveGeography(ctx context.Context, tweets []*tweet.Tweet, candidates []candidate) (map[int]location, error) {
	needed := make(map[int]bool)
	for _, c := range candidates {
		needed[c.idx] = true
	}

	locations := make(map[int]location, len(needed))
	for idx := range needed {
		t := tweets[idx]
		if lon, lat, ok := t.GPS(); ok {
			locations[idx] = location{lon: lon, lat: lat, source: geocode.SourceGPS}
			continue
		}
		if lon, lat, ok := t.PlaceCentroid(); ok {
			locations[idx] = location{lon: lon, lat: lat, source: geocode.SourcePlace}
			continue
		}
		query := t.UserLocation()
		if len([]rune(query)) < p.opts.MinLocationLen {
			locations[idx] = location{source: geocode.SourceNone}
			continue
		}
		res, err := p.deps.Resolver.ResolveFreeText(ctx, query)
		if err != nil {
			return nil, err
		}
		locations[idx] = location{
			lon:    res.Address.Lon,
			lat:    res.Address.Lat,
			source: res.Source,
		}
	}
	return locations, nil
}

// attachFilter drops candidates whose resolved coordinates fall outside the
// country boundary, unless foreign locations are kept. Unresolved tweets sit
// at the (0, 0) sentinel and are dropped with the foreign ones.
func (p *Pipeline) attachFilter(candidates []candidate, locations map[int]location) []candidate {
	if p.opts.KeepForeign {
		return candidates
	}
	var kept []candidate
	for _, c := range candidates {
		loc := locations[c.idx]
		if p.deps.Resolver.InSwitzerland(loc.lon, loc.lat) {
			kept = append(kept, c)
		}
	}
	return kept
}

// classify scores the candidates in bounded batches and builds a record for
// each score at or above the admission threshold. A score count differing
// from the sentence count is a contract breach and fails the batch.
func (p *Pipeline) classify(ctx context.Context, tweets []*tweet.Tweet, candidates []candidate, locations map[int]location) ([]Record, error) {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.text
	}

	var scores []float64
	for start := 0; start < len(texts); start += p.opts.ClassifyBatchSize {
		end := min(start+p.opts.ClassifyBatchSize, len(texts))
		batch, err := p.deps.Classifier.Predict(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("language id: %w", err)
		}
		scores = append(scores, batch...)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("language id returned %d scores for %d sentences", len(scores), len(candidates))
	}

	records := make([]Record, 0, len(candidates))
	for i, c := range candidates {
		if scores[i] < p.opts.AdmissionThreshold {
			continue
		}
		t := tweets[c.idx]
		loc := locations[c.idx]
		var userID string
		if t.User != nil {
			userID = t.User.IDStr
		}
		records = append(records, Record{
			Sentence:     c.text,
			Lon:          loc.lon,
			Lat:          loc.lat,
			Prediction:   scores[i],
			Source:       loc.source,
			UserID:       userID,
			UserLocation: t.UserLocation(),
			TweetID:      t.Identity(),
		})
	}
	return records, nil
}

// updateUserCounts counts the records above the stricter new-user threshold
// towards their author and returns how many previously unseen users appeared.
func (p *Pipeline) updateUserCounts(records []Record) int {
	newUsers := 0
	for _, r := range records {
		if r.UserID == "" || r.Prediction < p.opts.NewUserThreshold {
			continue
		}
		if p.deps.Users.Add(r.UserID) {
			newUsers++
		}
	}
	return newUsers
}
