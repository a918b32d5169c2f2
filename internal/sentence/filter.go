package sentence

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rule is one well-formedness check. Reject and Require are regular
// expressions: a sentence fails when Reject matches or Require does not.
// MinWords/MaxWords bound the whitespace-delimited token count (0 disables
// the bound). Empty fields are skipped, so a rule can be a pure length guard.
type Rule struct {
	Name     string `yaml:"name"`
	Reject   string `yaml:"reject,omitempty"`
	Require  string `yaml:"require,omitempty"`
	MinWords int    `yaml:"min_words,omitempty"`
	MaxWords int    `yaml:"max_words,omitempty"`
}

type compiledRule struct {
	name     string
	reject   *regexp.Regexp
	require  *regexp.Regexp
	minWords int
	maxWords int
}

// Filter decides whether a sentence is well-formed. Rules are applied in
// order; the first failing rule rejects the sentence.
type Filter struct {
	rules []compiledRule
}

// defaultRules is the rule set the corpus ships with. Sentences reaching the
// filter have already been normalized, so leftover platform artifacts
// (mentions, URLs) signal a cleaning miss and are rejected here.
var defaultRules = []Rule{
	{Name: "word-count", MinWords: 2, MaxWords: 100},
	{Name: "has-letters", Require: `\p{L}\p{L}\p{L}`},
	{Name: "no-url", Reject: `(?i)https?://|www\.`},
	{Name: "no-mention-or-hashtag", Reject: `[@#]\w`},
	{Name: "no-long-digit-run", Reject: `\d{9,}`},
	{Name: "mostly-symbols", Reject: `^[\P{L}]*\p{L}[\P{L}]*$`},
}

// NewFilter compiles a rule set. Rules with invalid expressions are a
// configuration error and rejected up front.
func NewFilter(rules []Rule) (*Filter, error) {
	f := &Filter{}
	for _, r := range rules {
		cr := compiledRule{name: r.Name, minWords: r.MinWords, maxWords: r.MaxWords}
		var err error
		if r.Reject != "" {
			if cr.reject, err = regexp.Compile(r.Reject); err != nil {
				return nil, fmt.Errorf("rule %q: compiling reject pattern: %w", r.Name, err)
			}
		}
		if r.Require != "" {
			if cr.require, err = regexp.Compile(r.Require); err != nil {
				return nil, fmt.Errorf("rule %q: compiling require pattern: %w", r.Name, err)
			}
		}
		f.rules = append(f.rules, cr)
	}
	return f, nil
}

// DefaultFilter returns a filter with the built-in rule set.
func DefaultFilter() *Filter {
	f, err := NewFilter(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("built-in sentence rules do not compile: %v", err))
	}
	return f
}

// LoadRules reads a YAML rule list for NewFilter.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sentence rules: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing sentence rules: %w", err)
	}
	return rules, nil
}

// Valid reports whether the sentence passes every rule.
func (f *Filter) Valid(sentence string) bool {
	_, ok := f.Check(sentence)
	return ok
}

// Check returns the name of the first failing rule, or ("", true) when the
// sentence passes.
func (f *Filter) Check(sentence string) (string, bool) {
	words := wordCount(sentence)
	for _, r := range f.rules {
		if r.minWords > 0 && words < r.minWords {
			return r.name, false
		}
		if r.maxWords > 0 && words > r.maxWords {
			return r.name, false
		}
		if r.reject != nil && r.reject.MatchString(sentence) {
			return r.name, false
		}
		if r.require != nil && !r.require.MatchString(sentence) {
			return r.name, false
		}
	}
	return "", true
}
