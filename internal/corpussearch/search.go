// Package corpussearch ranks corpus sentences against a free-text query with
// BM25, for spot-checking what the pipeline collected.
package corpussearch

import (
	"sort"

	"github.com/chriscorrea/bm25md"
)

// Result is one ranked sentence.
type Result struct {
	Sentence string
	Score    float64
	Index    int
}

// Index is a searchable snapshot of corpus sentences.
type Index struct {
	sentences []string
	corpus    *bm25md.Corpus
}

// NewIndex builds the index. Sentences are plain text, so everything scores
// through the body field.
func NewIndex(sentences []string) *Index {
	corpus := bm25md.NewCorpus()
	parser := bm25md.NewMarkdownFieldParser()
	for i, s := range sentences {
		corpus.AddDocument(bm25md.Document{
			ID:       i,
			Fields:   parser.ParseDocument(s),
			Original: s,
		})
	}
	return &Index{sentences: sentences, corpus: corpus}
}

// Search returns the top k sentences for the query, best first. Sentences
// scoring zero are omitted; k <= 0 returns every match.
func (ix *Index) Search(query string, k int) []Result {
	var results []Result
	for i, s := range ix.sentences {
		score := ix.corpus.Score(query, i)
		if score <= 0 {
			continue
		}
		results = append(results, Result{Sentence: s, Score: score, Index: i})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
