// Package configs provides embedded dictionary and configuration assets
// for the retrieval engine.
//
// Assets are embedded at build time using Go's //go:embed directive so
// that every distribution (go install, binary releases, containers)
// carries the full lexicon without external files. The dictionaries can
// still be extended at runtime via user dictionary files, see
// internal/lexicon Lexicon.LoadUserDict.
//
// Dictionary files:
//   - dict/lexicon.tsv: segmentation lexicon, "term<TAB>freq<TAB>pos" rows
//   - dict/ner.json: named entity type map (corp, loca, sch, stock, ...)
//   - dict/term_freq.tsv: document frequency table, "term<TAB>df" rows
//   - dict/synonyms.json: Chinese synonym dictionary
//   - dict/thesaurus.json: English synset table (underscore-joined phrases)
//   - dict/t2s.tsv: traditional to simplified character pairs
//
// To modify an asset, edit the file in dict/ and rebuild. Changes are
// embedded in the next build.
package configs

import _ "embed"

// LexiconTSV is the segmentation lexicon. Each row is
// "term<TAB>freq<TAB>pos" where freq is the corpus occurrence count and
// pos is the part-of-speech tag. Loaded by internal/lexicon.Default.
//
//go:embed dict/lexicon.tsv
var LexiconTSV string

// NERJSON maps surface forms to named entity types. The types feed the
// NER multipliers in internal/termweight.
//
//go:embed dict/ner.json
var NERJSON []byte

// TermFreqTSV is the document frequency table, "term<TAB>df" rows.
// Used by internal/termweight for the df component of term weights.
//
//go:embed dict/term_freq.tsv
var TermFreqTSV string

// SynonymsJSON is the built-in Chinese synonym dictionary. It is the
// fallback source when no redis source is configured, see
// internal/synonym.NewExpander.
//
//go:embed dict/synonyms.json
var SynonymsJSON []byte

// ThesaurusJSON is the English synset table. Multi-word entries join
// words with underscores and are rewritten to spaces on lookup.
//
//go:embed dict/thesaurus.json
var ThesaurusJSON []byte

// T2STSV maps traditional characters to their simplified forms, one
// "traditional<TAB>simplified" pair per row. Applied during text
// normalization before segmentation.
//
//go:embed dict/t2s.tsv
var T2STSV string
