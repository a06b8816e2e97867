package segment

import (
	"strings"
	"sync"
	"unicode"

	"github.com/zhagnzhenfei/industry-assistant/configs"
)

var (
	t2sOnce sync.Once
	t2sMap  map[rune]rune
)

// tradToSimp returns the traditional to simplified character map,
// built once from the embedded table.
func tradToSimp() map[rune]rune {
	t2sOnce.Do(func() {
		t2sMap = make(map[rune]rune)
		for _, line := range strings.Split(configs.T2STSV, "\n") {
			parts := strings.Split(strings.TrimSpace(line), "\t")
			if len(parts) != 2 {
				continue
			}
			from := []rune(parts[0])
			to := []rune(parts[1])
			if len(from) == 1 && len(to) == 1 {
				t2sMap[from[0]] = to[0]
			}
		}
	})
	return t2sMap
}

// Normalize canonicalizes text before segmentation: fullwidth forms
// fold to halfwidth, traditional characters to simplified, letters to
// lower case, and every non-letter non-digit rune to a space.
// Normalize is idempotent.
func Normalize(text string) string {
	t2s := tradToSimp()
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		// fullwidth to halfwidth
		switch {
		case r == 0x3000:
			r = ' '
		case r > 0xFF00 && r < 0xFF5F:
			r -= 0xFEE0
		}
		if s, ok := t2s[r]; ok {
			r = s
		}
		r = unicode.ToLower(r)
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			r = ' '
		}
		sb.WriteRune(r)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// isHan reports whether r is a CJK ideograph.
func isHan(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// hasHan reports whether the string contains any CJK ideograph.
func hasHan(s string) bool {
	for _, r := range s {
		if isHan(r) {
			return true
		}
	}
	return false
}

// IsChineseQuery applies the language heuristic for query routing.
// Text with at most three whitespace-separated chunks is treated as
// Chinese, as is text where at least 70% of the chunks are not pure
// ASCII words.
func IsChineseQuery(text string) bool {
	chunks := strings.Fields(text)
	if len(chunks) <= 3 {
		return true
	}
	nonLatin := 0
	for _, c := range chunks {
		if !isASCIIWord(c) {
			nonLatin++
		}
	}
	return float64(nonLatin)/float64(len(chunks)) >= 0.7
}

func isASCIIWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z') {
			return false
		}
	}
	return true
}
