// Package segment implements dictionary-driven CJK word segmentation
// with ambiguity resolution.
//
// Text is normalized, split into CJK and Latin runs, and each CJK run
// is scanned with forward and backward maximum match against the
// lexicon. Where the two scans agree the tokens are emitted directly;
// divergent spans are re-segmented by a bounded candidate search and
// the best-scoring split wins. Latin tokens are lemmatized and
// stemmed. A final merge pass rejoins adjacent tokens whose
// concatenation is itself a dictionary term.
package segment

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/zhagnzhenfei/industry-assistant/internal/lexicon"
)

// entry is a scored token inside a candidate segmentation.
type entry struct {
	text    string
	logFreq int
	tag     string
}

// Segmenter tokenizes normalized text against a lexicon. Safe for
// concurrent use.
type Segmenter struct {
	lex       *lexicon.Lexicon
	fineCache *lru.Cache[string, string]
}

// New creates a segmenter over the given lexicon.
func New(lex *lexicon.Lexicon) *Segmenter {
	cache, _ := lru.New[string, string](4096)
	return &Segmenter{lex: lex, fineCache: cache}
}

var (
	defaultOnce sync.Once
	defaultSeg  *Segmenter
)

// Default returns the segmenter over the embedded lexicon.
func Default() *Segmenter {
	defaultOnce.Do(func() {
		defaultSeg = New(lexicon.Default())
	})
	return defaultSeg
}

// Lexicon returns the underlying lexicon.
func (s *Segmenter) Lexicon() *lexicon.Lexicon { return s.lex }

// Tokenize segments text into tokens. The input is normalized first,
// so token concatenation preserves the normalized content.
func (s *Segmenter) Tokenize(text string) []string {
	line := Normalize(text)
	if line == "" {
		return nil
	}
	if !hasHan(line) {
		return normalizeEnglish(strings.Fields(line))
	}

	var out []string
	for _, field := range strings.Fields(line) {
		for _, run := range splitRuns(field) {
			rs := []rune(run)
			if len(rs) < 2 || !isHan(rs[0]) {
				out = append(out, run)
				continue
			}
			fwd, _ := s.maxForward(rs)
			bwd, _ := s.maxBackward(rs)
			if equalTexts(fwd, bwd) {
				out = append(out, texts(fwd)...)
				continue
			}
			out = append(out, s.resolveDiff(rs, texts(fwd), texts(bwd))...)
		}
	}
	out = normalizeEnglish(out)
	return s.mergeAdjacent(out)
}

// TokenizeString returns the tokens joined by single spaces.
func (s *Segmenter) TokenizeString(text string) string {
	return strings.Join(s.Tokenize(text), " ")
}

// splitRuns partitions a space-free field into maximal runs of Han
// runes and runs of everything else, so Latin and numeric spans stay
// atomic.
func splitRuns(field string) []string {
	var runs []string
	var cur []rune
	curHan := false
	for _, r := range field {
		h := isHan(r)
		if len(cur) > 0 && h != curHan {
			runs = append(runs, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
		curHan = h
	}
	if len(cur) > 0 {
		runs = append(runs, string(cur))
	}
	return runs
}

// maxForward scans left to right taking the longest dictionary match
// at each position.
func (s *Segmenter) maxForward(rs []rune) ([]entry, float64) {
	var res []entry
	for i := 0; i < len(rs); {
		e := i + 1
		for e < len(rs) && s.lex.HasPrefix(rs[i:e]) {
			e++
		}
		for e-1 > i {
			if _, _, ok := s.lex.Match(rs[i:e]); ok {
				break
			}
			e--
		}
		res = append(res, s.entryFor(rs[i:e], 0))
		i = e
	}
	return res, score(res)
}

// maxBackward scans right to left taking the longest dictionary match
// ending at each position.
func (s *Segmenter) maxBackward(rs []rune) ([]entry, float64) {
	var rev []entry
	for i := len(rs); i > 0; {
		b := i - 1
		for b > 0 && s.lex.HasSuffix(rs[b:i]) {
			b--
		}
		for b+1 < i {
			if _, _, ok := s.lex.Match(rs[b:i]); ok {
				break
			}
			b++
		}
		rev = append(rev, s.entryFor(rs[b:i], 0))
		i = b
	}
	res := make([]entry, len(rev))
	for i, e := range rev {
		res[len(rev)-1-i] = e
	}
	return res, score(res)
}

// entryFor looks up the span, falling back to the given log frequency
// for unknown tokens.
func (s *Segmenter) entryFor(rs []rune, unknownFreq int) entry {
	if lf, tag, ok := s.lex.Match(rs); ok {
		return entry{text: string(rs), logFreq: lf, tag: tag}
	}
	return entry{text: string(rs), logFreq: unknownFreq}
}

// score rates a candidate segmentation: fewer tokens, more multi-rune
// tokens, and higher dictionary frequencies all raise the score.
func score(tokens []entry) float64 {
	if len(tokens) == 0 {
		return 0
	}
	const b = 30.0
	sum, multi := 0, 0
	for _, t := range tokens {
		sum += t.logFreq
		if len([]rune(t.text)) > 1 {
			multi++
		}
	}
	n := float64(len(tokens))
	return b/n + float64(multi)/n + float64(sum)
}

// resolveDiff zips the forward and backward segmentations together,
// emitting agreed tokens directly and re-segmenting divergent spans
// with the candidate search.
func (s *Segmenter) resolveDiff(rs []rune, fwd, bwd []string) []string {
	var out []string
	i, j := 0, 0
	ci, cj := 0, 0
	for i < len(fwd) && j < len(bwd) {
		if ci == cj && fwd[i] == bwd[j] {
			out = append(out, fwd[i])
			ci += len([]rune(fwd[i]))
			cj += len([]rune(bwd[j]))
			i++
			j++
			continue
		}
		// divergence: advance both scans until they realign on the
		// same rune offset with the same next token
		start := min(ci, cj)
		for i < len(fwd) && j < len(bwd) {
			if ci < cj {
				ci += len([]rune(fwd[i]))
				i++
			} else if cj < ci {
				cj += len([]rune(bwd[j]))
				j++
			} else if fwd[i] != bwd[j] {
				ci += len([]rune(fwd[i]))
				cj += len([]rune(bwd[j]))
				i++
				j++
			} else {
				break
			}
		}
		end := max(ci, cj)
		out = append(out, s.bestSplit(rs[start:end])...)
		ci, cj = end, end
	}
	if ci < len(rs) {
		out = append(out, s.bestSplit(rs[ci:])...)
	}
	return out
}

// bestSplit returns the highest scoring candidate segmentation of a
// divergent span.
func (s *Segmenter) bestSplit(rs []rune) []string {
	if len(rs) == 0 {
		return nil
	}
	cands := s.candidates(rs)
	if len(cands) == 0 {
		return []string{string(rs)}
	}
	return texts(cands[0].tokens)
}

// mergeAdjacent rejoins up to five consecutive CJK tokens whose
// concatenation is itself a dictionary term.
func (s *Segmenter) mergeAdjacent(tokens []string) []string {
	var out []string
	for i := 0; i < len(tokens); {
		end := i + 1
		joined := tokens[i]
		ok := isCJKToken(tokens[i])
		for e := i + 2; ok && e <= len(tokens) && e <= i+5; e++ {
			next := joined + tokens[e-1]
			if !isCJKToken(next) {
				break
			}
			if s.lex.Has(next) {
				end = e
			}
			joined = next
		}
		out = append(out, strings.Join(tokens[i:end], ""))
		i = end
	}
	return out
}

func isCJKToken(s string) bool {
	for _, r := range s {
		if !isHan(r) {
			return false
		}
	}
	return s != ""
}

func texts(tokens []entry) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.text
	}
	return out
}

func equalTexts(a, b []entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].text != b[i].text {
			return false
		}
	}
	return true
}
