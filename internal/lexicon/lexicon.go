// Package lexicon provides the segmentation dictionary: a dual rune-trie
// over known terms with log-scaled frequencies and part-of-speech tags.
//
// Frequencies are stored log-scaled relative to a fixed denominator so
// that segmentation scoring can sum them directly. Freq decodes back to
// an absolute count for term weighting.
package lexicon

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/zhagnzhenfei/industry-assistant/configs"
	"github.com/zhagnzhenfei/industry-assistant/internal/errors"
)

// denominator normalizes raw occurrence counts before log scaling.
const denominator = 1000000.0

// Lexicon is the segmentation dictionary. Safe for concurrent use;
// lookups take a read lock, user dictionary loads take a write lock.
type Lexicon struct {
	mu  sync.RWMutex
	fwd *trie
	rev *trie
}

// New returns an empty lexicon.
func New() *Lexicon {
	return &Lexicon{fwd: newTrie(), rev: newTrie()}
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the lexicon built from the embedded dictionary.
// The lexicon is parsed once and shared; concurrent callers block
// until the first load completes.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		defaultLex = New()
		defaultLex.loadTSV(configs.LexiconTSV)
	})
	return defaultLex
}

// scaleFreq converts an absolute occurrence count to its stored
// log-scaled form.
func scaleFreq(freq int) int {
	if freq <= 0 {
		freq = 1
	}
	return int(math.Round(math.Log(float64(freq) / denominator)))
}

// Add inserts a term with an absolute occurrence count and POS tag.
// Existing entries are only replaced by a higher frequency.
func (l *Lexicon) Add(term string, freq int, tag string) {
	rs := []rune(term)
	if len(rs) == 0 {
		return
	}
	lf := scaleFreq(freq)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fwd.insert(rs, lf, tag)
	l.rev.insert(reverse(rs), lf, tag)
}

// Match returns the log-scaled frequency and POS tag for an exact term.
func (l *Lexicon) Match(rs []rune) (int, string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fwd.get(rs)
}

// HasPrefix reports whether any known term starts with rs.
func (l *Lexicon) HasPrefix(rs []rune) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fwd.hasPrefix(rs)
}

// MatchReverse looks up rs against the reversed trie. rs is given in
// reading order; the backward scan feeds suffixes growing to the left.
func (l *Lexicon) MatchReverse(rs []rune) (int, string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rev.get(reverse(rs))
}

// HasSuffix reports whether any known term, read backwards, starts
// with the reversal of rs. Used by the backward maximum-match scan.
func (l *Lexicon) HasSuffix(rs []rune) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rev.hasPrefix(reverse(rs))
}

// Freq returns the absolute occurrence count for a term, or 0 when the
// term is unknown.
func (l *Lexicon) Freq(term string) int {
	lf, _, ok := l.Match([]rune(term))
	if !ok {
		return 0
	}
	return int(math.Exp(float64(lf))*denominator + 0.5)
}

// Tag returns the POS tag for a term, or "" when unknown.
func (l *Lexicon) Tag(term string) string {
	_, tag, _ := l.Match([]rune(term))
	return tag
}

// Has reports whether the term is in the dictionary.
func (l *Lexicon) Has(term string) bool {
	_, _, ok := l.Match([]rune(term))
	return ok
}

// LoadUserDict merges a user dictionary file into the lexicon. Rows
// follow the embedded lexicon format, "term<TAB>freq<TAB>pos"; freq
// and pos may be omitted.
func (l *Lexicon) LoadUserDict(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.New(errors.CodeDictLoad, "open user dictionary", err).
			WithDetail("path", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		l.addRow(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return errors.New(errors.CodeDictLoad, "read user dictionary", err).
			WithDetail("path", path)
	}
	return nil
}

func (l *Lexicon) loadTSV(data string) {
	for _, line := range strings.Split(data, "\n") {
		l.addRow(line)
	}
}

func (l *Lexicon) addRow(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	parts := strings.Split(line, "\t")
	term := strings.ToLower(strings.TrimSpace(parts[0]))
	if term == "" {
		return
	}
	freq, tag := 3, "n"
	if len(parts) > 1 {
		if v, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			freq = v
		}
	}
	if len(parts) > 2 {
		tag = strings.TrimSpace(parts[2])
	}
	l.Add(term, freq, tag)
}

func reverse(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[len(rs)-1-i] = r
	}
	return out
}
