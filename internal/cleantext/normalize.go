package cleantext

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// GSWExemptAccents are the accented characters that carry meaning in
// Swiss-German and must survive transliteration.
const GSWExemptAccents = "ÄÖÜäöü"

// deaccent decomposes to NFD, drops combining marks, recomposes
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripForeignAccents transliterates every character to its unaccented form
// except the characters in exempt. Used to keep umlauts while normalizing
// foreign accents (é, à, ...) away.
func StripForeignAccents(text string, exempt Charset) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if exempt.Contains(r) {
			b.WriteRune(r)
			continue
		}
		if s, _, err := transform.String(deaccent, string(r)); err == nil {
			b.WriteString(s)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var nonAlnumRe = regexp.MustCompile(`[^\w]`)

// HeavyNormalize reduces text to a canonical lookup form: accents removed,
// lower-cased, every non-alphanumeric character replaced by a space, and
// whitespace collapsed. Both the location cache keys and the gazetteer
// matching use this form.
func HeavyNormalize(text string) string {
	if s, _, err := transform.String(deaccent, text); err == nil {
		text = s
	}
	text = strings.ToLower(text)
	text = nonAlnumRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "_", " ")
	return CleanSpaces(text)
}

// unicode punctuation folded to its ascii equivalent before any other cleaning
var punctFold = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "′", "'", "`", "'", "´", "'",
	"“", `"`, "”", `"`, "„", `"`, "«", `"`, "»", `"`,
	"–", "-", "—", "-", "−", "-",
	"…", "...",
	" ", " ", " ", " ", "​", "",
)

// Normalize applies the Twitter-wide normalization used between preprocessing
// and sentence splitting: unicode punctuation folding, emoji and control
// character stripping, smiley and HTML-entity removal, and whitespace
// canonicalization.
func Normalize(text string) string {
	text = punctFold.Replace(text)
	text = stripEmojis(text)
	text = RemoveHTMLEntities(text)
	text = RemoveSmileys(text)
	text = RemoveHatElement(text)
	return CleanSpaces(text)
}

// stripEmojis replaces emoji and pictographic code points with a space so
// adjacent words are not merged.
func stripEmojis(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, symbols
			return ' '
		case r >= 0x2600 && r <= 0x27BF: // misc symbols and dingbats
			return ' '
		case r == 0xFE0F || r == 0x200D: // variation selector, zero-width joiner
			return ' '
		case unicode.IsControl(r) && r != '\n' && r != '\t':
			return ' '
		default:
			return r
		}
	}, text)
}
