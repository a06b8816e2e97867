// Package query builds fielded full-text queries from natural
// language questions.
//
// Questions are normalized, stripped of interrogative filler, routed
// by language, and expanded into a weighted boolean expression over
// the index fields. Chinese questions additionally get fine-grained
// sub-term groups and proximity phrases; both branches fold in
// synonyms at reduced boost.
package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zhagnzhenfei/industry-assistant/internal/segment"
	"github.com/zhagnzhenfei/industry-assistant/internal/synonym"
	"github.com/zhagnzhenfei/industry-assistant/internal/termweight"
)

// Fields are the index fields a question matches against, with their
// boosts. Keyword and question fields dominate, content fields catch
// the rest.
var Fields = []string{
	"title_tks^10",
	"title_sm_tks^5",
	"important_kwd^30",
	"important_tks^20",
	"question_tks^20",
	"content_ltks^2",
	"content_sm_ltks",
}

// maxKeywords caps the keyword list a question can produce.
const maxKeywords = 32

// maxSegments caps how many split segments of a question are
// expanded.
const maxSegments = 256

// MatchText is a fielded full-text match expression.
type MatchText struct {
	Fields             []string
	Text               string
	TopN               int
	MinimumShouldMatch float64
}

// Builder constructs match expressions. Safe for concurrent use.
type Builder struct {
	seg *segment.Segmenter
	tw  *termweight.Weighter
	syn *synonym.Expander
}

// NewBuilder wires a builder from its parts.
func NewBuilder(seg *segment.Segmenter, tw *termweight.Weighter, syn *synonym.Expander) *Builder {
	return &Builder{seg: seg, tw: tw, syn: syn}
}

var (
	defaultOnce sync.Once
	defaultB    *Builder
)

// Default returns a builder over the embedded dictionaries.
func Default() *Builder {
	defaultOnce.Do(func() {
		syn, err := synonym.NewExpander()
		if err != nil {
			panic(err)
		}
		defaultB = NewBuilder(segment.Default(), termweight.Default(), syn)
	})
	return defaultB
}

// rmWWW strips interrogative filler in both languages. When stripping
// removes everything the original text is kept.
var wwwPatterns = []struct {
	re  *regexp.Regexp
	rep string
}{
	{regexp.MustCompile(`是*(什么样的|哪家|一下|那家|请问|啥样|咋样了|什么时候|何时|何地|何人|是否|是不是|多少|哪里|怎么|哪儿|怎么样|如何|哪些|是啥|啥是|啊|吗|呢|吧|咋|什么有|有什么|什么|有哪些|哪个|哪|谁|都|是)是*`), ""},
	{regexp.MustCompile(`(?i)(^| )(what|who|how|which|where|why)('re|'s)? `), " "},
	{regexp.MustCompile(`(?i)(^| )('s|'re|is|are|were|was|do|does|did|don't|doesn't|didn't|has|have|be|there|you|me|your|my|mine|just|please|may|i|should|would|wouldn't|will|won't|done|go|for|with|so|the|a|an|by|i'm|it's|he's|she's|they|they're|you're|as|on|in|at|up|out|down|of|to|or|and|if) `), " "},
}

func rmWWW(txt string) string {
	otxt := txt
	for _, p := range wwwPatterns {
		txt = p.re.ReplaceAllString(txt, p.rep)
	}
	if strings.TrimSpace(txt) == "" {
		return otxt
	}
	return txt
}

var (
	specialCharRe = regexp.MustCompile(`([:\{\}/\[\]\-\*"\(\)\|\+~\^])`)
	queryStripRe  = regexp.MustCompile(`["'\\: ]+`)
	leadingSignRe = regexp.MustCompile(`^[\+-]`)
	clauseBadRe   = regexp.MustCompile(`^[.^+\(\)-]`)
	alnumSpanRe   = regexp.MustCompile(`^[0-9a-z ]+$`)
	latinTokenRe  = regexp.MustCompile(`^[0-9a-z\.\+#_\*-]+$`)
	punctRunRe    = regexp.MustCompile(`[ :|\r\n\t,，。？?/` + "`" + `!！&^%()\[\]{}<>]+`)
)

// escape backslash-protects query DSL metacharacters in a term.
func escape(s string) string {
	return strings.TrimSpace(specialCharRe.ReplaceAllString(s, `\$1`))
}

// Question builds a match expression and the keyword list for a
// natural language question. minMatch is the fraction of clauses a
// document must satisfy.
func (b *Builder) Question(txt string, minMatch float64) (*MatchText, []string) {
	txt = strings.TrimSpace(punctRunRe.ReplaceAllString(strings.ToLower(segment.Normalize(txt)), " "))
	otxt := txt
	txt = rmWWW(txt)

	if !segment.IsChineseQuery(txt) {
		return b.latinQuestion(txt, minMatch)
	}

	qs, keywords := []string{}, []string{}
	for _, tt := range capSlice(b.tw.Split(txt), maxSegments) {
		if tt == "" {
			continue
		}
		keywords = append(keywords, tt)
		twts := b.tw.Weights([]string{tt}, true)
		segSyns := b.syn.Lookup(tt, 8)
		if len(segSyns) > 0 && len(keywords) < maxKeywords {
			keywords = append(keywords, segSyns...)
		}

		sort.SliceStable(twts, func(i, j int) bool { return twts[i].Weight > twts[j].Weight })

		var clauses []string
		for _, tm := range twts {
			tk, w := tm.Token, tm.Weight

			var sm []string
			if needFineGrained(tk) {
				for _, m := range strings.Fields(b.seg.FineGrainedString(tk)) {
					m = escape(m)
					if len([]rune(m)) > 1 {
						sm = append(sm, m)
					}
				}
			}
			if len(keywords) < maxKeywords {
				keywords = append(keywords, queryStripRe.ReplaceAllString(tk, ""))
				keywords = append(keywords, sm...)
			}

			tkSyns := []string{}
			for _, s := range b.syn.Lookup(tk, 8) {
				if s = escape(s); s != "" {
					tkSyns = append(tkSyns, s)
				}
			}
			if len(keywords) < maxKeywords {
				keywords = append(keywords, tkSyns...)
			}
			for i, s := range tkSyns {
				fine := b.seg.FineGrainedString(s)
				if strings.Contains(fine, " ") {
					fine = fmt.Sprintf("%q", fine)
				}
				tkSyns[i] = fine
			}

			if len(keywords) >= maxKeywords {
				break
			}

			tk = escape(tk)
			if strings.Contains(tk, " ") {
				tk = fmt.Sprintf("%q", tk)
			}
			if len(tkSyns) > 0 {
				tk = fmt.Sprintf("(%s OR (%s)^0.2)", tk, strings.Join(tkSyns, " "))
			}
			if len(sm) > 0 {
				tk = fmt.Sprintf(`%s OR "%s" OR ("%s"~2)^0.5`, tk, strings.Join(sm, " "), strings.Join(sm, " "))
			}
			if strings.TrimSpace(tk) != "" {
				clauses = append(clauses, fmt.Sprintf("(%s)^%.4f", tk, w))
			}
		}

		tms := strings.Join(clauses, " ")
		if len(twts) > 1 {
			tms += fmt.Sprintf(` ("%s"~2)^1.5`, b.seg.TokenizeString(tt))
		}
		if alnumSpanRe.MatchString(tt) {
			tms = fmt.Sprintf(`("%s" OR "%s")`, tt, b.seg.TokenizeString(tt))
		}

		var synPhrases []string
		for _, s := range segSyns {
			synPhrases = append(synPhrases, fmt.Sprintf("%q", b.seg.TokenizeString(escape(s))))
		}
		if len(synPhrases) > 0 && tms != "" {
			tms = fmt.Sprintf("(%s)^5 OR (%s)^0.7", tms, strings.Join(synPhrases, " OR "))
		}
		if tms != "" {
			qs = append(qs, tms)
		}
	}

	if len(qs) == 0 {
		return nil, keywords
	}
	var parts []string
	for _, t := range qs {
		parts = append(parts, "("+t+")")
	}
	q := strings.Join(parts, " OR ")
	if q == "" {
		q = otxt
	}
	return &MatchText{
		Fields:             Fields,
		Text:               q,
		TopN:               100,
		MinimumShouldMatch: minMatch,
	}, dedupe(keywords)
}

// latinQuestion is the non-CJK branch: weighted term clauses,
// adjacent-pair phrases at doubled boost, and quoted synonyms at a
// quarter of the term weight.
func (b *Builder) latinQuestion(txt string, minMatch float64) (*MatchText, []string) {
	txt = rmWWW(txt)
	tks := b.seg.Tokenize(txt)
	keywords := append([]string{}, tks...)

	twts := b.tw.Weights(tks, false)
	cleaned := twts[:0]
	for _, tm := range twts {
		tk := strings.TrimSpace(leadingSignRe.ReplaceAllString(queryStripRe.ReplaceAllString(tm.Token, ""), ""))
		if tk != "" {
			cleaned = append(cleaned, termweight.Term{Token: tk, Weight: tm.Weight})
		}
	}
	twts = capTerms(cleaned, maxSegments)

	var q []string
	for _, tm := range twts {
		var syns []string
		for _, s := range b.syn.Lookup(tm.Token, 8) {
			for _, st := range b.seg.Tokenize(s) {
				if strings.TrimSpace(st) == "" {
					continue
				}
				keywords = append(keywords, st)
				syns = append(syns, fmt.Sprintf(`"%s"^%.4f`, st, tm.Weight/4))
			}
		}
		if clauseBadRe.MatchString(tm.Token) {
			continue
		}
		q = append(q, fmt.Sprintf("(%s^%.4f %s)", tm.Token, tm.Weight, strings.Join(syns, " ")))
	}
	for i := 1; i < len(twts); i++ {
		left, right := twts[i-1].Token, twts[i].Token
		if left == "" || right == "" {
			continue
		}
		q = append(q, fmt.Sprintf(`"%s %s"^%.4f`, left, right, maxf(twts[i-1].Weight, twts[i].Weight)*2))
	}
	if len(q) == 0 {
		q = append(q, txt)
	}
	return &MatchText{
		Fields:             Fields,
		Text:               strings.Join(q, " "),
		TopN:               100,
		MinimumShouldMatch: minMatch,
	}, dedupe(keywords)
}

// Paragraph builds a match expression from already-tokenized content,
// keeping the topN heaviest terms. Used for similar-chunk lookups
// where no question exists.
func (b *Builder) Paragraph(contentTokens string, keywords []string, topN int) *MatchText {
	twts := b.tw.Weights(strings.Fields(contentTokens), false)
	cleaned := twts[:0]
	for _, tm := range twts {
		tk := strings.TrimSpace(leadingSignRe.ReplaceAllString(queryStripRe.ReplaceAllString(tm.Token, ""), ""))
		if tk != "" {
			cleaned = append(cleaned, termweight.Term{Token: tk, Weight: tm.Weight})
		}
	}
	sort.SliceStable(cleaned, func(i, j int) bool { return cleaned[i].Weight > cleaned[j].Weight })
	cleaned = capTerms(cleaned, topN)

	parts := append([]string{}, keywords...)
	for _, tm := range cleaned {
		parts = append(parts, fmt.Sprintf(`"%s"^%.4f`, tm.Token, tm.Weight))
	}
	return &MatchText{
		Fields:             Fields,
		Text:               strings.Join(parts, " "),
		TopN:               100,
		MinimumShouldMatch: minf(3, float64(len(cleaned))/10),
	}
}

// needFineGrained skips short and plain Latin tokens.
func needFineGrained(tk string) bool {
	if len([]rune(tk)) < 3 {
		return false
	}
	return !latinTokenRe.MatchString(tk)
}

func capSlice(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func capTerms(s []termweight.Term, n int) []termweight.Term {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func dedupe(tks []string) []string {
	seen := make(map[string]struct{}, len(tks))
	out := tks[:0]
	for _, t := range tks {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	return out
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
