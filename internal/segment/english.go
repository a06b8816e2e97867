package segment

import (
	"github.com/blevesearch/go-porterstemmer"
)

// lemmaExceptions maps irregular English forms to their lemma before
// stemming. Regular inflections are left to the Porter stemmer.
var lemmaExceptions = map[string]string{
	"children": "child",
	"feet":     "foot",
	"geese":    "goose",
	"men":      "man",
	"mice":     "mouse",
	"people":   "person",
	"teeth":    "tooth",
	"women":    "woman",
	"began":    "begin",
	"brought":  "bring",
	"came":     "come",
	"did":      "do",
	"gave":     "give",
	"went":     "go",
	"got":      "get",
	"held":     "hold",
	"made":     "make",
	"ran":      "run",
	"said":     "say",
	"saw":      "see",
	"sold":     "sell",
	"took":     "take",
	"was":      "be",
	"were":     "be",
	"wrote":    "write",
}

// stemWord lemmatizes and stems a lower-case Latin token.
func stemWord(w string) string {
	if lemma, ok := lemmaExceptions[w]; ok {
		w = lemma
	}
	return porterstemmer.StemString(w)
}

// isLatinToken reports whether the token is made of ASCII letters,
// underscores, or hyphens only.
func isLatinToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !('a' <= r && r <= 'z' || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

// isNumericToken reports whether the token is digits and numeric
// punctuation only.
func isNumericToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !('0' <= r && r <= '9' || r == '.' || r == ',' || r == '-') {
			return false
		}
	}
	return true
}

// normalizeEnglish stems Latin tokens in place order, leaving CJK and
// numeric tokens untouched.
func normalizeEnglish(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if isLatinToken(t) {
			t = stemWord(t)
		}
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
