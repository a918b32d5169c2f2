package dataset

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dialectmap/gswcorpus/internal/cleantext"
	"github.com/dialectmap/gswcorpus/internal/geocode"
	"github.com/dialectmap/gswcorpus/internal/pipeline"
)

// ReviewLists hold the outcome of the manual location review: which
// heavily-normalized location strings are precise enough to trust, which are
// not, and the label corrections for locations the geocoder assigned to the
// wrong canton. The geocoder is permissive, so a trusted-location allow list
// is the only reliable guard against loosely matched queries.
type ReviewLists struct {
	Useful      map[string]bool
	Corrections map[string]string
}

// LoadReviewLists reads the review files. The useful and useless files hold
// one normalized location per line; the corrections file holds
// location<TAB>canton lines. Empty paths yield empty lists.
func LoadReviewLists(usefulPath, uselessPath, correctionsPath string) (ReviewLists, error) {
	lists := ReviewLists{
		Useful:      make(map[string]bool),
		Corrections: make(map[string]string),
	}
	if usefulPath != "" {
		lines, err := readLines(usefulPath)
		if err != nil {
			return lists, fmt.Errorf("loading useful locations: %w", err)
		}
		for _, l := range lines {
			lists.Useful[l] = true
		}
	}
	// the useless list is only read to verify it does not contradict the
	// useful one; anything not explicitly useful is treated as useless
	if uselessPath != "" {
		lines, err := readLines(uselessPath)
		if err != nil {
			return lists, fmt.Errorf("loading useless locations: %w", err)
		}
		for _, l := range lines {
			if lists.Useful[l] {
				return lists, fmt.Errorf("location %q is in both review lists", l)
			}
		}
	}
	if correctionsPath != "" {
		lines, err := readLines(correctionsPath)
		if err != nil {
			return lists, fmt.Errorf("loading corrections: %w", err)
		}
		for _, l := range lines {
			loc, canton, ok := strings.Cut(l, "\t")
			if !ok {
				return lists, fmt.Errorf("corrections line %q is not location<TAB>canton", l)
			}
			lists.Corrections[loc] = canton
		}
	}
	return lists, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// DominantDialect resolves a user's dialect from the labels of their
// sentences with a two-tier rule. The top non-Unknown label must first hold
// at least overall of all labels, Unknown included; thin evidence spread
// over many cantons stays Unknown. It must then hold at least dominant of
// the labels excluding Unknown; lopsided evidence wins even when sparse.
// Both boundaries are inclusive.
func DominantDialect(labels []geocode.Dialect, overall, dominant float64) geocode.Dialect {
	counts := make(map[geocode.Dialect]int)
	known := 0
	for _, l := range labels {
		if l == geocode.DialectUnknown {
			continue
		}
		counts[l]++
		known++
	}
	if known == 0 {
		return geocode.DialectUnknown
	}

	top := geocode.DialectUnknown
	topCount := 0
	for l, c := range counts {
		if c > topCount || (c == topCount && l < top) {
			top, topCount = l, c
		}
	}

	if float64(topCount)/float64(len(labels)) < overall {
		return geocode.DialectUnknown
	}
	if float64(topCount)/float64(known) < dominant {
		return geocode.DialectUnknown
	}
	return top
}

// LabelledSentence is one corpus sentence with its final dialect label.
// Label is DialectUnknown for the unlabelled split.
type LabelledSentence struct {
	Sentence string
	UserID   string
	Label    geocode.Dialect
}

// LabelOptions are the labelling thresholds.
type LabelOptions struct {
	// AdmissionThreshold drops sentences below this language-id score.
	AdmissionThreshold float64
	// OverallThreshold and DominantThreshold feed DominantDialect.
	OverallThreshold  float64
	DominantThreshold float64
}

// Label derives a dialect label for every corpus sentence.
//
// Sentences whose coordinates came from the tweet itself (GPS or place) are
// labelled per user: each sentence maps to the canton at its coordinates and
// the user gets their dominant dialect, since such coordinates vary tweet by
// tweet. Sentences located through the free-text field are labelled
// individually: the location is constant per user, but only when the
// review lists trust it; untrusted locations become Unknown and corrections
// override the canton. Every coordinate pair must already be in the state
// table, a gap is a consistency error.
func Label(records []pipeline.Record, states *StateTable, lists ReviewLists, opts LabelOptions) ([]LabelledSentence, error) {
	var admitted []pipeline.Record
	for _, r := range records {
		if r.Prediction >= opts.AdmissionThreshold {
			admitted = append(admitted, r)
		}
	}

	for _, r := range admitted {
		if _, ok := states.Get(r.Lon, r.Lat); !ok {
			return nil, fmt.Errorf("state table has no entry for %s", CoordKey(r.Lon, r.Lat))
		}
	}

	var out []LabelledSentence

	// per-user aggregation over the tweet-located sentences
	byUser := make(map[string][]pipeline.Record)
	var userOrder []string
	for _, r := range admitted {
		if r.Source != geocode.SourceGPS && r.Source != geocode.SourcePlace {
			continue
		}
		if _, ok := byUser[r.UserID]; !ok {
			userOrder = append(userOrder, r.UserID)
		}
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}
	sort.Strings(userOrder)
	for _, userID := range userOrder {
		var labels []geocode.Dialect
		for _, r := range byUser[userID] {
			canton, _ := states.Get(r.Lon, r.Lat)
			labels = append(labels, geocode.CantonToDialect(canton))
		}
		dialect := DominantDialect(labels, opts.OverallThreshold, opts.DominantThreshold)
		for _, r := range byUser[userID] {
			out = append(out, LabelledSentence{Sentence: r.Sentence, UserID: userID, Label: dialect})
		}
	}

	// per-sentence labelling of the geocoded rest
	for _, r := range admitted {
		if r.Source == geocode.SourceGPS || r.Source == geocode.SourcePlace {
			continue
		}
		canton, _ := states.Get(r.Lon, r.Lat)
		location := cleantext.HeavyNormalize(r.UserLocation)
		if !lists.Useful[location] {
			canton = ""
		}
		if corrected, ok := lists.Corrections[location]; ok {
			canton = corrected
		}
		out = append(out, LabelledSentence{
			Sentence: r.Sentence,
			UserID:   r.UserID,
			Label:    geocode.CantonToDialect(canton),
		})
	}
	return out, nil
}

// Split partitions the sentences into the labelled and unlabelled corpora.
// The labelled split additionally drops the RO group: its cantons are
// predominantly French speaking and the few Swiss-German sentences are too
// noisy to train on.
func Split(sentences []LabelledSentence) (labelled, unlabelled []LabelledSentence) {
	for _, s := range sentences {
		switch s.Label {
		case geocode.DialectUnknown:
			unlabelled = append(unlabelled, s)
		case geocode.DialectRO:
			// dropped from both splits
		default:
			labelled = append(labelled, s)
		}
	}
	return labelled, unlabelled
}

// ReadSplit reads a split written by WriteSplit back in.
func ReadSplit(path string, withLabel bool) ([]LabelledSentence, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, fmt.Errorf("reading split: %w", err)
	}
	sentences := make([]LabelledSentence, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		want := 2
		if withLabel {
			want = 3
		}
		if len(fields) != want {
			return nil, fmt.Errorf("reading split: line %q has %d fields, expected %d", line, len(fields), want)
		}
		s := LabelledSentence{Sentence: fields[0], UserID: fields[1], Label: geocode.DialectUnknown}
		if withLabel {
			s.Label = geocode.Dialect(fields[2])
		}
		sentences = append(sentences, s)
	}
	return sentences, nil
}

// WriteSplit writes one corpus split as headerless TSV. withLabel adds the
// label column used by the labelled split.
func WriteSplit(path string, sentences []LabelledSentence, withLabel bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing split: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, s := range sentences {
		if withLabel {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.Sentence, s.UserID, s.Label)
		} else {
			fmt.Fprintf(w, "%s\t%s\n", s.Sentence, s.UserID)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing split: %w", err)
	}
	return nil
}
