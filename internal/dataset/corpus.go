// Package dataset holds the offline aggregation passes that turn persisted
// pipeline output into the final labelled and unlabelled corpora: segment
// concatenation, reverse geocoding of coordinates to cantons, location
// review lists, and per-user dominant-dialect labelling.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/dialectmap/gswcorpus/internal/geocode"
	"github.com/dialectmap/gswcorpus/internal/pipeline"
)

var corpusHeader = []string{
	"sentence", "lon", "lat", "gsw_prediction", "geo_source",
	"user_id", "user_location", "tweet_id",
}

// ReadCorpus loads the consolidated sentence CSV. A missing file is an empty
// corpus, not an error: the first concatenation starts from nothing.
func ReadCorpus(path string) ([]pipeline.Record, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	var records []pipeline.Record
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) != len(corpusHeader) {
			return nil, fmt.Errorf("corpus row %d has %d columns, expected %d", i+1, len(row), len(corpusHeader))
		}
		lon, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("corpus row %d: bad longitude %q", i+1, row[1])
		}
		lat, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("corpus row %d: bad latitude %q", i+1, row[2])
		}
		prediction, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("corpus row %d: bad prediction %q", i+1, row[3])
		}
		records = append(records, pipeline.Record{
			Sentence:     row[0],
			Lon:          lon,
			Lat:          lat,
			Prediction:   prediction,
			Source:       geocode.Source(row[4]),
			UserID:       row[5],
			UserLocation: row[6],
			TweetID:      row[7],
		})
	}
	return records, nil
}

// WriteCorpus rewrites the consolidated sentence CSV.
func WriteCorpus(path string, records []pipeline.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing corpus: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(corpusHeader); err != nil {
		return fmt.Errorf("writing corpus: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Sentence,
			strconv.FormatFloat(r.Lon, 'f', -1, 64),
			strconv.FormatFloat(r.Lat, 'f', -1, 64),
			strconv.FormatFloat(r.Prediction, 'f', -1, 64),
			string(r.Source),
			r.UserID,
			r.UserLocation,
			r.TweetID,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing corpus: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// TierCounts are the corpus sizes at the reporting confidence levels.
type TierCounts struct {
	AtLeast90 int
	AtLeast95 int
	AtLeast99 int
}

// CountTiers tallies the records per confidence tier.
func CountTiers(records []pipeline.Record) TierCounts {
	var t TierCounts
	for _, r := range records {
		if r.Prediction >= 0.90 {
			t.AtLeast90++
		}
		if r.Prediction >= 0.95 {
			t.AtLeast95++
		}
		if r.Prediction >= 0.99 {
			t.AtLeast99++
		}
	}
	return t
}

// ConcatResult summarizes one concatenation run.
type ConcatResult struct {
	// Added is the number of sentences merged in.
	Added int
	// Skipped counts segment sentences whose tweet id was already in the
	// corpus. Normally zero: the ledger prevents reprocessing, the check
	// matters after a ledger reset.
	Skipped int
	// Tiers are the confidence-tier counts of the merged corpus.
	Tiers TierCounts
}

// Concat merges all pending output segments into the consolidated sentence
// CSV and removes them. Sentences from tweets already in the corpus are
// skipped.
func Concat(store *pipeline.SegmentStore, corpusPath string) (ConcatResult, error) {
	var result ConcatResult

	corpus, err := ReadCorpus(corpusPath)
	if err != nil {
		return result, err
	}
	seen := make(map[string]bool, len(corpus))
	for _, r := range corpus {
		seen[r.TweetID] = true
	}

	paths, err := store.List()
	if err != nil {
		return result, err
	}
	for _, path := range paths {
		records, err := store.Read(path)
		if err != nil {
			return result, err
		}
		for _, r := range records {
			if seen[r.TweetID] {
				result.Skipped++
				continue
			}
			corpus = append(corpus, r)
			result.Added++
		}
	}

	if err := WriteCorpus(corpusPath, corpus); err != nil {
		return result, err
	}
	if err := store.Remove(paths); err != nil {
		return result, err
	}
	result.Tiers = CountTiers(corpus)
	return result, nil
}
