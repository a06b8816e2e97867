package docstore

import (
	"regexp"
	"strconv"
	"strings"
)

// queryTerm is one weighted unit extracted from the query builder's
// boolean text: either a bare term or a quoted phrase with optional
// proximity slop.
type queryTerm struct {
	text   string
	boost  float64
	phrase bool
	slop   int
}

var (
	phraseRe     = regexp.MustCompile(`"((?:\\.|[^"\\])*)"(?:~([0-9]+))?(?:\^([0-9.]+))?`)
	termRe       = regexp.MustCompile(`([^\s()^"]+)(?:\^([0-9.]+))?`)
	escapeRe     = regexp.MustCompile(`\\(.)`)
	groupBoostRe = regexp.MustCompile(`\(\s*([^\s()^"]+)\s*\)\^([0-9.]+)`)
	parenBoostRe = regexp.MustCompile(`\)\^[0-9.]+`)
)

// parseMatchText extracts weighted terms and phrases from the boolean
// query text. Operator words and grouping are dropped; boosts on
// groups apply too coarsely to recover, so each unit keeps its own
// boost and grouping is treated as disjunction.
func parseMatchText(text string) []queryTerm {
	var terms []queryTerm

	rest := phraseRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := phraseRe.FindStringSubmatch(m)
		phrase := strings.TrimSpace(escapeRe.ReplaceAllString(sub[1], "$1"))
		if phrase == "" {
			return " "
		}
		qt := queryTerm{text: phrase, boost: 1, phrase: strings.Contains(phrase, " ")}
		if sub[2] != "" {
			qt.slop, _ = strconv.Atoi(sub[2])
		}
		if sub[3] != "" {
			if b, err := strconv.ParseFloat(sub[3], 64); err == nil {
				qt.boost = b
			}
		}
		terms = append(terms, qt)
		return " "
	})

	// single-term groups keep their boost; boosts on larger groups
	// apply too coarsely to recover and are dropped
	rest = groupBoostRe.ReplaceAllString(rest, "$1^$2")
	rest = parenBoostRe.ReplaceAllString(rest, " ")

	for _, m := range termRe.FindAllStringSubmatch(rest, -1) {
		tk := strings.TrimSpace(escapeRe.ReplaceAllString(m[1], "$1"))
		if tk == "" || tk == "OR" || tk == "AND" || tk == "NOT" {
			continue
		}
		qt := queryTerm{text: tk, boost: 1}
		if m[2] != "" {
			if b, err := strconv.ParseFloat(m[2], 64); err == nil {
				qt.boost = b
			}
		}
		terms = append(terms, qt)
	}
	return terms
}

// parseField splits a "name^boost" field spec.
func parseField(spec string) (string, float64) {
	name, boostStr, ok := strings.Cut(spec, "^")
	if !ok {
		return spec, 1
	}
	b, err := strconv.ParseFloat(boostStr, 64)
	if err != nil {
		return name, 1
	}
	return name, b
}
