package segment

import (
	"strings"
	"unicode"
)

// FineGrained re-tokenizes coarse tokens into smaller dictionary
// units for recall-oriented fields. Tokens shorter than three runes
// and numeric tokens pass through. For each remaining token the
// candidate search runs and the second best segmentation is used, so
// the coarse token itself never wins its own re-split. A fully
// single-rune split is rejected in favor of the original token.
func (s *Segmenter) FineGrained(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	if !mostlyCJK(tokens) {
		var out []string
		for _, tk := range tokens {
			out = append(out, strings.Split(tk, "/")...)
		}
		return out
	}

	var out []string
	for _, tk := range tokens {
		out = append(out, s.fineOne(tk)...)
	}
	return normalizeEnglish(out)
}

// FineGrainedString re-tokenizes a space-joined token string.
func (s *Segmenter) FineGrainedString(tokens string) string {
	return strings.Join(s.FineGrained(strings.Fields(tokens)), " ")
}

func (s *Segmenter) fineOne(tk string) []string {
	rs := []rune(tk)
	if len(rs) < 3 || isNumericToken(tk) {
		return []string{tk}
	}
	if cached, ok := s.fineCache.Get(tk); ok {
		return strings.Fields(cached)
	}

	result := []string{tk}
	if len(rs) <= maxSpanRunes {
		if cands := s.candidates(rs); len(cands) >= 2 {
			sub := texts(cands[1].tokens)
			switch {
			case len(sub) == len(rs):
				// degenerated to single runes, keep the coarse token
			case isLatinToken(tk) && hasShortToken(sub):
				// short Latin fragments hurt more than they help
			default:
				result = sub
			}
		}
	}
	s.fineCache.Add(tk, strings.Join(result, " "))
	return result
}

func hasShortToken(tokens []string) bool {
	for _, t := range tokens {
		if len([]rune(t)) < 3 {
			return true
		}
	}
	return false
}

// mostlyCJK reports whether at least 20% of the tokens contain CJK
// runes. Below that the batch is treated as Latin text.
func mostlyCJK(tokens []string) bool {
	n := 0
	for _, tk := range tokens {
		for _, r := range tk {
			if unicode.Is(unicode.Han, r) {
				n++
				break
			}
		}
	}
	return float64(n) >= float64(len(tokens))*0.2
}
