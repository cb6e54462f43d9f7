package triage

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes and drops combining marks. This removes Latin
// diacritics and Arabic harakat, and folds the alef variants (إ أ آ)
// down to the bare ا, which is what the vocabulary uses.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lowercases, strips marks and punctuation, turns
// underscores into spaces and collapses whitespace. Both utterances and
// vocabulary phrases go through the same pipeline so matching is exact
// string equality afterwards.
func normalizeText(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if out, _, err := transform.String(stripMarks, text); err == nil {
		text = out
	}
	text = strings.ReplaceAll(text, "_", " ")
	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(text), " ")
}
