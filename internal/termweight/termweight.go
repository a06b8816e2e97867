// Package termweight assigns importance weights to query terms.
//
// A term's weight combines two inverse document frequency estimates,
// one from corpus occurrence counts and one from document frequencies,
// scaled by named entity and part-of-speech multipliers. Weights are
// normalized to sum to one per query.
package termweight

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/zhagnzhenfei/industry-assistant/configs"
	"github.com/zhagnzhenfei/industry-assistant/internal/errors"
	"github.com/zhagnzhenfei/industry-assistant/internal/segment"
)

// Term is a token with its normalized weight.
type Term struct {
	Token  string
	Weight float64
}

// Weighter computes term weights over a segmenter and the embedded
// NER and document frequency tables. Safe for concurrent use.
type Weighter struct {
	seg  *segment.Segmenter
	ner  map[string]string
	df   map[string]float64
	stop map[string]struct{}
}

// stopWords are filtered before weighting. Mostly Chinese function
// words that carry no retrieval signal.
var stopWords = []string{
	"请问", "您", "你", "我", "他", "她", "它", "们",
	"是", "的", "就", "有", "于", "及", "即", "在",
	"为", "最", "从", "以", "了", "将", "与", "吗",
	"吧", "中", "什么", "怎么", "哪个", "哪些", "啥", "相关",
}

// New builds a weighter from the embedded NER and document frequency
// tables.
func New(seg *segment.Segmenter) (*Weighter, error) {
	w := &Weighter{
		seg:  seg,
		ner:  make(map[string]string),
		df:   make(map[string]float64),
		stop: make(map[string]struct{}, len(stopWords)),
	}
	for _, s := range stopWords {
		w.stop[s] = struct{}{}
	}
	if err := json.Unmarshal(configs.NERJSON, &w.ner); err != nil {
		return nil, errors.New(errors.CodeDictLoad, "parse NER table", err)
	}
	for _, line := range strings.Split(configs.TermFreqTSV, "\n") {
		parts := strings.Split(strings.TrimSpace(line), "\t")
		if len(parts) != 2 {
			continue
		}
		if v, err := strconv.ParseFloat(parts[1], 64); err == nil {
			w.df[parts[0]] = v
		}
	}
	return w, nil
}

var (
	defaultOnce sync.Once
	defaultW    *Weighter
)

// Default returns the weighter over the default segmenter and the
// embedded tables. The embedded tables are known-good, so errors here
// mean a broken build and panic.
func Default() *Weighter {
	defaultOnce.Do(func() {
		var err error
		defaultW, err = New(segment.Default())
		if err != nil {
			panic(err)
		}
	})
	return defaultW
}

var (
	singleDigitRe = regexp.MustCompile(`^[0-9]$`)
	numericSpanRe = regexp.MustCompile(`^[0-9. -]{2,}$`)
	numericNERRe  = regexp.MustCompile(`^[0-9,.]{2,}$`)
	shortAlphaRe  = regexp.MustCompile(`^[a-z]{1,2}$`)
	latinSpanRe   = regexp.MustCompile(`^[a-z. -]+$`)
	shortTokenRe  = regexp.MustCompile(`^[0-9a-z]{1,2}$`)
	alnumStartRe  = regexp.MustCompile(`^[0-9a-zA-Z]`)
	alphaEndRe    = regexp.MustCompile(`[a-zA-Z]$`)
	numericTagRe  = regexp.MustCompile(`^[0-9-]+`)
)

// PreToken tokenizes text and filters stop words. Single digits are
// dropped unless keepNumbers is set; stop word filtering can be
// disabled with keepStop.
func (w *Weighter) PreToken(text string, keepNumbers, keepStop bool) []string {
	var res []string
	for _, tk := range w.seg.Tokenize(text) {
		if !keepStop {
			if _, ok := w.stop[tk]; ok {
				continue
			}
		}
		if singleDigitRe.MatchString(tk) && !keepNumbers {
			continue
		}
		res = append(res, tk)
	}
	return res
}

// TokenMerge groups runs of short tokens into phrases so single runes
// do not dominate the weight budget. Runs of two to four short tokens
// join into one space-separated phrase; longer runs join pairwise.
func (w *Weighter) TokenMerge(tks []string) []string {
	oneTerm := func(t string) bool {
		return len([]rune(t)) == 1 || shortTokenRe.MatchString(t)
	}

	var res []string
	i := 0
	for i < len(tks) {
		if i == 0 && oneTerm(tks[i]) && len(tks) > 1 &&
			len([]rune(tks[i+1])) > 1 && !alnumStartRe.MatchString(tks[i+1]) {
			res = append(res, tks[0]+" "+tks[1])
			i = 2
			continue
		}
		j := i
		for j < len(tks) && oneTerm(tks[j]) {
			j++
		}
		switch {
		case j-i > 1 && j-i < 5:
			res = append(res, strings.Join(tks[i:j], " "))
			i = j
		case j-i >= 5:
			res = append(res, tks[i]+" "+tks[i+1])
			i += 2
		default:
			if tks[i] != "" {
				res = append(res, tks[i])
			}
			i++
		}
	}
	return res
}

// Split breaks a token string into terms, gluing consecutive Latin
// words back together unless either side is a function word entity.
func (w *Weighter) Split(text string) []string {
	var tks []string
	for _, t := range strings.Fields(text) {
		if len(tks) > 0 && alphaEndRe.MatchString(tks[len(tks)-1]) && alphaEndRe.MatchString(t) &&
			w.ner[t] != "func" && w.ner[tks[len(tks)-1]] != "func" {
			tks[len(tks)-1] = tks[len(tks)-1] + " " + t
		} else {
			tks = append(tks, t)
		}
	}
	return tks
}

// NER returns the named entity type for a term, or "".
func (w *Weighter) NER(t string) string { return w.ner[t] }

// nerScale maps entity types to weight multipliers.
var nerScale = map[string]float64{
	"toxic":   2,
	"func":    1,
	"corp":    3,
	"loca":    3,
	"sch":     3,
	"stock":   3,
	"firstnm": 1,
}

func (w *Weighter) nerMul(t string) float64 {
	if numericNERRe.MatchString(t) {
		return 2
	}
	if shortAlphaRe.MatchString(t) {
		return 0.01
	}
	ne, ok := w.ner[t]
	if !ok {
		return 1
	}
	if m, ok := nerScale[ne]; ok {
		return m
	}
	return 1
}

func (w *Weighter) posMul(t string) float64 {
	tag := w.seg.Lexicon().Tag(t)
	switch tag {
	case "r", "c", "d":
		return 0.3
	case "ns", "nt":
		return 3
	case "n":
		return 2
	}
	if numericTagRe.MatchString(tag) {
		return 2
	}
	return 1
}

// freqEstimate estimates a corpus occurrence count for a term,
// falling back to fine-grained sub-terms for long unknown compounds.
func (w *Weighter) freqEstimate(t string) float64 {
	if numericSpanRe.MatchString(t) {
		return 3
	}
	s := float64(w.seg.Lexicon().Freq(t))
	if s == 0 && latinSpanRe.MatchString(t) {
		return 300
	}
	if s == 0 && len([]rune(t)) >= 4 {
		var subs []string
		for _, tt := range w.seg.FineGrained([]string{t}) {
			if len([]rune(tt)) > 1 {
				subs = append(subs, tt)
			}
		}
		if len(subs) > 1 {
			m := math.Inf(1)
			for _, tt := range subs {
				m = math.Min(m, w.freqEstimate(tt))
			}
			s = m / 6
		}
	}
	return math.Max(s, 10)
}

// dfEstimate estimates a document frequency, with the same
// fine-grained fallback as freqEstimate.
func (w *Weighter) dfEstimate(t string) float64 {
	if numericSpanRe.MatchString(t) {
		return 5
	}
	if v, ok := w.df[t]; ok {
		return v + 3
	}
	if latinSpanRe.MatchString(t) {
		return 300
	}
	if len([]rune(t)) >= 4 {
		var subs []string
		for _, tt := range w.seg.FineGrained([]string{t}) {
			if len([]rune(tt)) > 1 {
				subs = append(subs, tt)
			}
		}
		if len(subs) > 1 {
			m := math.Inf(1)
			for _, tt := range subs {
				m = math.Min(m, w.dfEstimate(tt))
			}
			return m / 6
		}
	}
	return 3
}

// idf is a smoothed inverse document frequency on a log10 scale.
func idf(s, n float64) float64 {
	return math.Log10(10 + (n-s+0.5)/(s+0.5))
}

const (
	freqCorpusSize = 1e7
	dfCorpusSize   = 1e9
)

// rawWeight is the unnormalized weight of a single term.
func (w *Weighter) rawWeight(t string) float64 {
	combined := 0.3*idf(w.freqEstimate(t), freqCorpusSize) + 0.7*idf(w.dfEstimate(t), dfCorpusSize)
	return combined * w.nerMul(t) * w.posMul(t)
}

// Weights computes normalized term weights. With preprocess set each
// input token is re-tokenized and merged first, which is the path
// query construction uses; without it tokens are weighted as given.
// The returned weights sum to one.
func (w *Weighter) Weights(tks []string, preprocess bool) []Term {
	var tw []Term
	if preprocess {
		for _, tk := range tks {
			for _, t := range w.TokenMerge(w.PreToken(tk, true, false)) {
				tw = append(tw, Term{Token: t, Weight: w.rawWeight(t)})
			}
		}
	} else {
		for _, t := range tks {
			tw = append(tw, Term{Token: t, Weight: w.rawWeight(t)})
		}
	}

	var sum float64
	for _, t := range tw {
		sum += t.Weight
	}
	if sum <= 0 {
		return tw
	}
	for i := range tw {
		tw[i].Weight /= sum
	}
	return tw
}
