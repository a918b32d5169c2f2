package sentence_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dialectmap/gswcorpus/internal/sentence"
)

func TestSplit(t *testing.T) {
	s := sentence.NewSplitter(0)

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "whitespace only",
			input:    "   \n\t\n",
			expected: nil,
		},
		{
			name:     "single sentence",
			input:    "Gahts guet?",
			expected: []string{"Gahts guet?"},
		},
		{
			name:     "two sentences on one line",
			input:    "Hoi zäme wie gahts eu allne hüt? Mir gahts sehr guet merci vilmal.",
			expected: []string{"Hoi zäme wie gahts eu allne hüt?", "Mir gahts sehr guet merci vilmal."},
		},
		{
			name:     "newline is a hard boundary",
			input:    "erste zeile ohne punkt\nzweite zeile au ohne",
			expected: []string{"erste zeile ohne punkt", "zweite zeile au ohne"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Split(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Split(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSplit_MergesShortFragments(t *testing.T) {
	s := sentence.NewSplitter(sentence.DefaultMinWords)

	got := s.Split("Ja genau.\nDas isch würklich e ganz e gueti idee gsi geschter.")
	expected := []string{"Ja genau. Das isch würklich e ganz e gueti idee gsi geschter."}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Split() = %q, expected short lead fragment merged forward: %q", got, expected)
	}

	// a trailing fragment merges backwards instead
	got = s.Split("Das isch würklich e ganz e gueti idee gsi geschter.\nJa genau.")
	expected = []string{"Das isch würklich e ganz e gueti idee gsi geschter. Ja genau."}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Split() = %q, expected short tail fragment merged backward: %q", got, expected)
	}

	// a lone short sentence is left alone
	got = s.Split("Ja genau.")
	if !reflect.DeepEqual(got, []string{"Ja genau."}) {
		t.Errorf("Split() = %q, expected lone fragment kept", got)
	}
}

func TestFilterValid(t *testing.T) {
	f := sentence.DefaultFilter()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"well-formed question", "Gahts guet?", true},
		{"well-formed statement", "Mir gönd hüt is kino und lueged en film.", true},
		{"single word", "Hoi", false},
		{"leftover url", "lueg das a https://example.com gäll", false},
		{"leftover mention", "@vreni gahts dir guet?", false},
		{"leftover hashtag", "so schön #zürisee gäll", false},
		{"phone number", "ruef a uf 0791234567 bitte merci", false},
		{"symbol soup", ") ( + - * x", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Valid(tt.input); got != tt.expected {
				rule, _ := f.Check(tt.input)
				t.Errorf("Valid(%q) = %v (rule %q), expected %v", tt.input, got, rule, tt.expected)
			}
		})
	}
}

func TestFilterCheck_ReportsFirstFailingRule(t *testing.T) {
	f := sentence.DefaultFilter()

	rule, ok := f.Check("Hoi")
	if ok || rule != "word-count" {
		t.Errorf("Check(\"Hoi\") = (%q, %v), expected (word-count, false)", rule, ok)
	}
	rule, ok = f.Check("Gahts guet?")
	if !ok || rule != "" {
		t.Errorf("Check(\"Gahts guet?\") = (%q, %v), expected pass", rule, ok)
	}
}

func TestNewFilter_RejectsBadPattern(t *testing.T) {
	_, err := sentence.NewFilter([]sentence.Rule{{Name: "broken", Reject: "("}})
	if err == nil {
		t.Fatal("NewFilter() with invalid pattern, expected error")
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yml")
	content := `- name: word-count
  min_words: 3
- name: no-url
  reject: 'https?://'
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := sentence.LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("LoadRules() returned %d rules, expected 2", len(rules))
	}
	if rules[0].MinWords != 3 || rules[1].Reject != `https?://` {
		t.Errorf("rules parsed wrong: %+v", rules)
	}

	f, err := sentence.NewFilter(rules)
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}
	if f.Valid("zwei wörter") {
		t.Error("two-word sentence should fail a min_words 3 rule")
	}
	if !f.Valid("drü wörter da") {
		t.Error("three-word sentence should pass")
	}
}
