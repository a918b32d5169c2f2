package corpussearch_test

import (
	"testing"

	"github.com/dialectmap/gswcorpus/internal/corpussearch"
)

var sentences = []string{
	"mir gönd hüt uf züri",
	"z bärn isch es schön",
	"züri züri züri",
	"ganz anderes thema",
	"eis zwei drü",
	"eis vier foif",
	"no meh sätz ohni treffer",
	"und no eine dezue",
}

func TestSearch(t *testing.T) {
	ix := corpussearch.NewIndex(sentences)

	results := ix.Search("züri", 0)
	if len(results) != 2 {
		t.Fatalf("Search(züri) returned %d results, expected 2", len(results))
	}
	// the sentence repeating the term ranks first
	if results[0].Index != 2 {
		t.Errorf("top result index = %d, expected 2", results[0].Index)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not sorted by score: %v", results)
	}
}

func TestSearch_TopK(t *testing.T) {
	ix := corpussearch.NewIndex(sentences)
	results := ix.Search("eis", 1)
	if len(results) != 1 {
		t.Fatalf("Search(eis, 1) returned %d results, expected 1", len(results))
	}
}

func TestSearch_NoMatches(t *testing.T) {
	ix := corpussearch.NewIndex(sentences)
	if results := ix.Search("xyz", 0); len(results) != 0 {
		t.Errorf("Search(xyz) = %v, expected none", results)
	}
}
