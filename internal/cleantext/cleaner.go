// Package cleantext provides the text-cleaning primitives used by the tweet
// processing pipeline and by the offline corpus preparation steps.
//
// Every function is a pure transformation over a string. The cleaning chain is
// composed by the caller; ordering matters (e.g. CleanSpaces is meant to run
// last in any chain that inserted replacement spaces). Functions that take an
// allowed character set are deliberately parameterized because the pipeline
// and the corpus-analysis steps use different alphabets.
package cleantext

import (
	"regexp"
	"strings"
)

// Charset is a set of allowed (or special) characters used by the
// set-parameterized cleaning functions.
type Charset map[rune]bool

// NewCharset builds a Charset from the runes of s.
func NewCharset(s string) Charset {
	cs := make(Charset, len(s))
	for _, r := range s {
		cs[r] = true
	}
	return cs
}

// Contains reports whether r is in the set.
func (cs Charset) Contains(r rune) bool { return cs[r] }

// PipelineAlphabet is the character set kept by the streaming pipeline after
// sentence splitting. It is narrower than CorpusAlphabet: the pipeline keeps
// only characters that may appear in a well-formed sentence.
const PipelineAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz" +
	"ÀÁÂÄÈÉÊËÍÌÎÏÓÒÔÖÚÙÛÜàáâäèéêëìíîïôöòóüùúûÿ" +
	" -,.?!0123456789%&\"'()/"

// CorpusAlphabet is the wider character set used by the offline corpus
// cleaning steps.
const CorpusAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz" +
	"ÀÁÂÄÈÉÊËÍÌÎÏÓÒÔÖÚÙÛÜàáâäèéêëìíîïôöòóüùúûÿ" +
	" -,.?!0123456789%&\"'()/$*+:;<=>[]\\^_{}|~€°²"

// DefaultSpecials is the default special-character set for the
// duplication/grouping cleaners.
const DefaultSpecials = "-,?!%&\"'()/$*+:;<=>[]\\^_{}|~€°²"

// Substitution is one ordered (pattern, replacement) pair for Preprocess.
type Substitution struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// CompileSubstitutions compiles ordered (pattern, replacement) pairs as read
// from the configuration. Order is preserved exactly.
func CompileSubstitutions(pairs [][2]string) ([]Substitution, error) {
	subs := make([]Substitution, 0, len(pairs))
	for _, p := range pairs {
		re, err := regexp.Compile(p[0])
		if err != nil {
			return nil, err
		}
		subs = append(subs, Substitution{Pattern: re, Replacement: p[1]})
	}
	return subs, nil
}

// Preprocess applies the ordered substitution list to text. This is the first
// cleaning step and is used to strip retweet markers, mentions, hashtags and
// URLs before anything else touches the text.
func Preprocess(text string, subs []Substitution) string {
	for _, sub := range subs {
		text = sub.Pattern.ReplaceAllString(text, sub.Replacement)
	}
	return text
}

// literal smileys that combine ascii art beyond what the regexes catch
var smileys = []string{
	`-\_(ツ)_/-`, `\_(ツ)_/`, "(ツ)", `\^o^/`, "^o^", "^~^", "^^'",
	"^^", "^ ^'", "^ ^", "*-*", "*^*", "*~*", "*.*", "-.-'", "-.-",
	`\m/`, "<3", " XD", "^.^", `\o/`, `\(. _. )/`, `/o\`,
	`\('o')/`, `\(~_~)/`, `\*O*/`, `\/`, `/\`,
	`-\_( •-•)_/-`, `-\_( -)_/-`, `-\_(-)_/-`, `-\_(- )_/-`,
}

var (
	// eyes, optional nose, then a mouth character; the mouth may repeat
	smileyEyesMouth = regexp.MustCompile(`[:;=]-?[\\/DpPdoO0*)(\][]`)
	// eyes, spaced nose variant, smaller mouth class
	smileySpacedNose = regexp.MustCompile(`[:;=]\s?-\s?[\\/*)(\][]`)
)

// RemoveSmileys replaces character-combination smileys (as opposed to emoji
// code points) with a single space.
func RemoveSmileys(text string) string {
	text = collapseSmileyMatches(text, smileyEyesMouth)
	text = collapseSmileyMatches(text, smileySpacedNose)
	for _, s := range smileys {
		text = strings.ReplaceAll(text, s, " ")
	}
	return text
}

// collapseSmileyMatches replaces every match of re, extended over any
// repetition of its final (mouth) rune, with a single space. The manual
// extension mirrors a backreference repeat, which regexp does not support.
func collapseSmileyMatches(text string, re *regexp.Regexp) string {
	var b strings.Builder
	for {
		loc := re.FindStringIndex(text)
		if loc == nil {
			break
		}
		match := text[loc[0]:loc[1]]
		mouth := rune(match[len(match)-1])
		end := loc[1]
		for end < len(text) && rune(text[end]) == mouth {
			end++
		}
		b.WriteString(text[:loc[0]])
		b.WriteString(" ")
		text = text[end:]
	}
	b.WriteString(text)
	return b.String()
}

var hatElementRe = regexp.MustCompile(`\^\w+$`)

// RemoveHatElement removes trailing "hat" signatures (^gf, ^chs, ...) that
// some accounts append to their tweets.
func RemoveHatElement(text string) string {
	return hatElementRe.ReplaceAllString(text, "")
}

// html entities seen in tweet text, with and without the closing semicolon
var htmlEntities = []string{
	"&lt;", "&gt;", "&le;", "&ge;", "&amp;",
	"&lt", "&gt", "&le", "&ge", "&amp",
}

// RemoveHTMLEntities replaces the known HTML entities with a single space.
func RemoveHTMLEntities(text string) string {
	for _, e := range htmlEntities {
		text = strings.ReplaceAll(text, e, " ")
	}
	return text
}

const (
	puncChars         = ".,:;!?"
	puncCharsNoPeriod = ",:;!?"
)

var (
	manyDotsRe      = regexp.MustCompile(`\.{2,}`)
	questionComboRe = regexp.MustCompile(`[?!.,;:]*\?[?!.,;:]*`)
	bangComboRe     = regexp.MustCompile(`[!.,;:]*![!.,;:]*`)
	periodComboRe   = regexp.MustCompile(`[,;:]*\.[,;:]*`)
	commaComboRe    = regexp.MustCompile(`[,;:]*,[,;:]*`)
	dotRunRe        = regexp.MustCompile(`\.+`)
	spacesRe        = regexp.MustCompile(`\s+`)
)

// CleanPunctuation canonicalizes punctuation: no space before, one space
// after, duplicates collapsed (runs of dots capped at three), mixed
// punctuation combinations reduced to their strongest sign, and leading
// punctuation stripped.
func CleanPunctuation(text string) string {
	text = CleanSpaces(text)
	for _, c := range puncChars {
		text = strings.ReplaceAll(text, " "+string(c), string(c))
	}
	for _, c := range puncCharsNoPeriod {
		d := string(c) + string(c)
		for strings.Contains(text, d) {
			text = strings.ReplaceAll(text, d, string(c))
		}
	}
	text = manyDotsRe.ReplaceAllString(text, "...")
	text = questionComboRe.ReplaceAllString(text, "?")
	text = bangComboRe.ReplaceAllString(text, "!")
	text = periodComboRe.ReplaceAllString(text, ".")
	text = commaComboRe.ReplaceAllString(text, ",")
	for len(text) > 0 && strings.ContainsRune(puncChars, rune(text[0])) {
		text = text[1:]
	}
	text = dotRunRe.ReplaceAllString(text, "$0 ")
	for _, c := range puncCharsNoPeriod {
		text = strings.ReplaceAll(text, string(c), string(c)+" ")
	}
	return CleanSpaces(text)
}

// CleanSpaces collapses runs of whitespace to a single space and trims both
// ends. Idempotent; run it last in any chain that inserted spaces.
func CleanSpaces(text string) string {
	return strings.TrimSpace(spacesRe.ReplaceAllString(text, " "))
}

// RemoveCharsOutsideAlphabet replaces every character not in allowed with a
// space.
func RemoveCharsOutsideAlphabet(text string, allowed Charset) string {
	return strings.Map(func(r rune) rune {
		if allowed.Contains(r) {
			return r
		}
		return ' '
	}, text)
}

// RemoveWordsWithDisallowedChars drops whole whitespace-delimited words that
// contain any character outside allowed.
func RemoveWordsWithDisallowedChars(text string, allowed Charset) string {
	var kept []string
	for _, word := range strings.Fields(text) {
		ok := true
		for _, r := range word {
			if !allowed.Contains(r) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

var (
	numRunRe       = regexp.MustCompile(`[0-9][0-9.,'/]*[0-9]`)
	numCollapseRe  = regexp.MustCompile(`<num>(\s+<num>)+`)
	puncRunRe      = regexp.MustCompile(`[.,:;?!\])("]+`)
	puncCollapseRe = regexp.MustCompile(`<punc>(\s+<punc>)+`)
)

// TagNumbers replaces numeric runs (including thousand and decimal
// separators) with a padded <num> sentinel, then collapses consecutive
// sentinels into one.
func TagNumbers(text string) string {
	text = numRunRe.ReplaceAllString(text, " <num> ")
	return numCollapseRe.ReplaceAllString(text, "<num>")
}

// TagPunctuation replaces punctuation runs with a padded <punc> sentinel and
// collapses consecutive sentinels. Run after TagNumbers, because numeric runs
// may contain punctuation separators.
func TagPunctuation(text string) string {
	text = puncRunRe.ReplaceAllString(text, " <punc> ")
	return puncCollapseRe.ReplaceAllString(text, "<punc>")
}

// CollapseRepeatedSpecials collapses any run of two or more identical special
// characters to a single occurrence.
func CollapseRepeatedSpecials(text string, special Charset) string {
	var b strings.Builder
	b.Grow(len(text))
	var prev rune = -1
	for _, r := range text {
		if r == prev && special.Contains(r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// RemoveGroupsOfSpecialChars drops space-separated tokens made up entirely of
// special characters when the token length is at least fromSize.
func RemoveGroupsOfSpecialChars(text string, fromSize int, special Charset) string {
	var kept []string
	for _, word := range strings.Fields(text) {
		count := 0
		for _, r := range word {
			if special.Contains(r) {
				count++
			}
		}
		if count < fromSize || len([]rune(word)) != count {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

// IsolatedSpecials is the default set for RemoveIsolatedSpecialChars.
const IsolatedSpecials = "+<=>^_\\°²"

// RemoveIsolatedSpecialChars drops single-character tokens that are special
// characters.
func RemoveIsolatedSpecialChars(text string, special Charset) string {
	var kept []string
	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		if len(runes) > 1 || !special.Contains(runes[0]) {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

// SplitParenthesis splits text on any parenthesis-like delimiter ()[]{}| and
// returns the non-empty trimmed parts.
func SplitParenthesis(text string) []string {
	for _, c := range "()[]{}" {
		text = strings.ReplaceAll(text, string(c), "|")
	}
	var parts []string
	for _, p := range strings.Split(text, "|") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
