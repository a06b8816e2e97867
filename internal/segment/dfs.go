package segment

import (
	"sort"
)

const (
	// maxSpanRunes bounds the span length the candidate search will
	// enumerate; longer spans are kept atomic.
	maxSpanRunes = 10
	// maxCandidates caps the number of full segmentations collected.
	maxCandidates = 64
	// maxExpansions caps frame expansions per rune offset, a safety
	// valve against pathological dictionaries.
	maxExpansions = 128
	// unknownLogFreq is the penalty frequency for single runes not in
	// the dictionary.
	unknownLogFreq = -12
)

// candidate is one full segmentation of a span with its score.
type candidate struct {
	tokens []entry
	score  float64
}

// candidates enumerates segmentations of a span with an explicit
// stack, bounded by span length, candidate count, and per-offset
// expansion budget. Results are sorted best first; ties keep
// discovery order.
func (s *Segmenter) candidates(rs []rune) []candidate {
	if len(rs) == 0 {
		return nil
	}
	if len(rs) > maxSpanRunes {
		e := s.entryFor(rs, unknownLogFreq)
		return []candidate{{tokens: []entry{e}, score: score([]entry{e})}}
	}

	type frame struct {
		offset int
		path   []entry
	}
	stack := []frame{{offset: 0}}
	expansions := make(map[int]int, len(rs))
	var cands []candidate

	for len(stack) > 0 && len(cands) < maxCandidates {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.offset == len(rs) {
			cands = append(cands, candidate{tokens: f.path, score: score(f.path)})
			continue
		}
		if expansions[f.offset] >= maxExpansions {
			continue
		}
		expansions[f.offset]++

		matched := false
		for e := f.offset + 1; e <= len(rs); e++ {
			span := rs[f.offset:e]
			if e > f.offset+1 && !s.lex.HasPrefix(span) {
				break
			}
			lf, tag, ok := s.lex.Match(span)
			if !ok {
				continue
			}
			matched = true
			path := make([]entry, len(f.path), len(f.path)+1)
			copy(path, f.path)
			path = append(path, entry{text: string(span), logFreq: lf, tag: tag})
			stack = append(stack, frame{offset: e, path: path})
		}
		if !matched {
			// no dictionary term starts here, step over one rune
			path := make([]entry, len(f.path), len(f.path)+1)
			copy(path, f.path)
			path = append(path, entry{text: string(rs[f.offset : f.offset+1]), logFreq: unknownLogFreq})
			stack = append(stack, frame{offset: f.offset + 1, path: path})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
	return cands
}
