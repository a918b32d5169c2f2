// Package sentence segments normalized tweet text into candidate sentences
// and decides which of them are well-formed enough to keep.
//
// Splitting works line by line: explicit newlines are hard boundaries, each
// line is then segmented with a statistical sentence tokenizer, and fragments
// too short to stand alone are merged with their neighbours. Filtering is a
// rule set (regular expressions plus word-count guards) applied in order; a
// sentence is kept only when every rule passes.
package sentence

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

// Splitter segments text into sentences.
type Splitter struct {
	// minWords is the smallest fragment allowed to stand alone; shorter
	// fragments are merged with an adjacent one.
	minWords int
}

// DefaultMinWords matches the tokenizer setting the corpus was built with.
const DefaultMinWords = 5

// NewSplitter returns a splitter merging fragments shorter than minWords
// words. minWords <= 0 disables merging.
func NewSplitter(minWords int) *Splitter {
	return &Splitter{minWords: minWords}
}

// Split segments text into sentences. Newlines are hard boundaries: a
// sentence never spans lines. Returns nil for blank input.
func (s *Splitter) Split(text string) []string {
	var sentences []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sentences = append(sentences, segmentLine(line)...)
	}
	return s.mergeShort(sentences)
}

// segmentLine runs the statistical segmenter over a single line. Tagging and
// entity extraction are disabled, only boundary detection runs.
func segmentLine(line string) []string {
	doc, err := prose.NewDocument(line,
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		// segmentation is best effort, an unprocessable line stays whole
		return []string{line}
	}
	var out []string
	for _, sent := range doc.Sentences() {
		if text := strings.TrimSpace(sent.Text); text != "" {
			out = append(out, text)
		}
	}
	if len(out) == 0 {
		return []string{line}
	}
	return out
}

// mergeShort merges fragments below the word minimum with the following
// sentence, or the preceding one when the fragment is last. A lone short
// fragment stays as-is; the filter decides its fate.
func (s *Splitter) mergeShort(sentences []string) []string {
	if s.minWords <= 0 || len(sentences) <= 1 {
		return sentences
	}
	var result []string
	for i := 0; i < len(sentences); i++ {
		current := sentences[i]
		if wordCount(current) >= s.minWords {
			result = append(result, current)
			continue
		}
		if i+1 < len(sentences) {
			sentences[i+1] = current + " " + sentences[i+1]
			continue
		}
		if len(result) > 0 {
			result[len(result)-1] += " " + current
			continue
		}
		result = append(result, current)
	}
	return result
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
