// Package wordstats computes word statistics across the per-dialect corpora:
// which words are specific to one dialect versus the others, how much of a
// corpus a word list covers, and word proportions. Each dialect corpus is
// treated as one document of a small TF-IDF collection.
package wordstats

import (
	"math"
	"sort"
	"strings"

	"github.com/kljensen/snowball"

	"github.com/dialectmap/gswcorpus/internal/cleantext"
)

// Stats accumulates per-dialect corpora and answers specificity queries.
type Stats struct {
	dialects  []string
	sentences map[string][][]string // tokenized sentences per dialect
	counts    map[string]map[string]int
	totals    map[string]int
	stem      bool
}

// New returns an empty collection. With stem true, tokens are reduced with a
// German snowball stemmer so inflection variants pool their counts; Swiss
// German is close enough to German for the stemmer to help more than hurt.
func New(stem bool) *Stats {
	return &Stats{
		sentences: make(map[string][][]string),
		counts:    make(map[string]map[string]int),
		totals:    make(map[string]int),
		stem:      stem,
	}
}

// AddCorpus adds one dialect's sentences.
func (s *Stats) AddCorpus(dialect string, sentences []string) {
	if _, ok := s.counts[dialect]; !ok {
		s.dialects = append(s.dialects, dialect)
		s.counts[dialect] = make(map[string]int)
	}
	for _, sent := range sentences {
		tokens := s.tokenize(sent)
		s.sentences[dialect] = append(s.sentences[dialect], tokens)
		for _, tok := range tokens {
			s.counts[dialect][tok]++
			s.totals[dialect]++
		}
	}
}

// Dialects returns the dialect codes added so far, in insertion order.
func (s *Stats) Dialects() []string { return s.dialects }

// tokenize lowercases, strips accents and punctuation, splits, drops words
// shorter than three characters, and optionally stems.
func (s *Stats) tokenize(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(cleantext.HeavyNormalize(text)) {
		if len([]rune(word)) < 3 {
			continue
		}
		if s.stem {
			if stemmed, err := snowball.Stem(word, "german", true); err == nil {
				word = stemmed
			}
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// tfidf scores one word for one dialect with a smoothed inverse document
// frequency, so words present in every dialect keep a non-zero score and the
// specificity ratio stays defined for them.
func (s *Stats) tfidf(dialect, word string) float64 {
	count := s.counts[dialect][word]
	if count == 0 || s.totals[dialect] == 0 {
		return 0
	}
	tf := float64(count) / float64(s.totals[dialect])
	df := 0
	for _, d := range s.dialects {
		if s.counts[d][word] > 0 {
			df++
		}
	}
	n := float64(len(s.dialects))
	idf := math.Log((1+n)/(1+float64(df))) + 1
	return tf * idf
}

// Specificity returns the share of the word's TF-IDF mass that sits in the
// given dialect. 1 means the word appears only there, 1/n means it is evenly
// spread. Zero for words absent from the dialect.
func (s *Stats) Specificity(dialect, word string) float64 {
	score := s.tfidf(dialect, word)
	if score == 0 {
		return 0
	}
	var sum float64
	for _, d := range s.dialects {
		sum += s.tfidf(d, word)
	}
	return score / sum
}

// SpecificWords returns up to count words specific to the dialect: words
// whose specificity exceeds threshold, ordered by how often they appear in
// the dialect corpus.
func (s *Stats) SpecificWords(dialect string, threshold float64, count int) []string {
	type wordCount struct {
		word  string
		count int
	}
	var candidates []wordCount
	for word, c := range s.counts[dialect] {
		if s.Specificity(dialect, word) > threshold {
			candidates = append(candidates, wordCount{word, c})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].word < candidates[j].word
	})
	if count > 0 && len(candidates) > count {
		candidates = candidates[:count]
	}
	words := make([]string, len(candidates))
	for i, c := range candidates {
		words[i] = c.word
	}
	return words
}

// Coverage returns the share of the dialect's sentences containing at least
// one of the words.
func (s *Stats) Coverage(dialect string, words []string) float64 {
	sentences := s.sentences[dialect]
	if len(sentences) == 0 {
		return 0
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	matched := 0
	for _, tokens := range sentences {
		for _, tok := range tokens {
			if set[tok] {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(sentences))
}

// Proportion returns the word's share of all tokens in the dialect corpus.
func (s *Stats) Proportion(dialect, word string) float64 {
	if s.totals[dialect] == 0 {
		return 0
	}
	return float64(s.counts[dialect][word]) / float64(s.totals[dialect])
}
