package search

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/zhagnzhenfei/industry-assistant/internal/docstore"
	"github.com/zhagnzhenfei/industry-assistant/internal/query"
	"github.com/zhagnzhenfei/industry-assistant/internal/rerank"
)

// scorer combines token overlap, vector similarity and rank features
// into one relevance score per candidate. Implementations share the
// contract that all three returned slices align with the outcome IDs.
type scorer interface {
	score(ctx context.Context, question string, sres *SearchOutcome,
		tokenWeight, vectorWeight float64, rankFea []float64) (sim, tksim, vsim []float64, err error)
}

var (
	_ scorer = (*localScorer)(nil)
	_ scorer = (*modelScorer)(nil)
)

// localScorer scores with stored vectors:
// vectorWeight*cosine + tokenWeight*tokenOverlap + rankFeature.
type localScorer struct {
	builder *query.Builder
}

func (s *localScorer) score(_ context.Context, question string, sres *SearchOutcome,
	tokenWeight, vectorWeight float64, rankFea []float64) ([]float64, []float64, []float64, error) {

	_, keywords := s.builder.Question(question, 0.3)
	vcol := docstore.VectorField(len(sres.QueryVector))

	vecs := make([][]float32, len(sres.IDs))
	docTks := make([]string, len(sres.IDs))
	for i, id := range sres.IDs {
		doc := sres.Fields[id]
		vecs[i] = fieldVector(doc, vcol, len(sres.QueryVector))
		docTks[i] = strings.Join(chunkTokens(doc, 2, 5, 6), " ")
	}

	sim, tksim, vsim := s.builder.HybridSimilarity(sres.QueryVector, vecs,
		strings.Join(keywords, " "), docTks, tokenWeight, vectorWeight)
	for i := range sim {
		sim[i] += rankFea[i]
	}
	return sim, tksim, vsim, nil
}

// modelScorer scores with an external cross-encoder:
// tokenWeight*(tokenOverlap+rankFeature) + vectorWeight*modelScore.
type modelScorer struct {
	builder  *query.Builder
	reranker rerank.Reranker
}

func (s *modelScorer) score(ctx context.Context, question string, sres *SearchOutcome,
	tokenWeight, vectorWeight float64, rankFea []float64) ([]float64, []float64, []float64, error) {

	_, keywords := s.builder.Question(question, 0.3)

	docTks := make([]string, len(sres.IDs))
	for i, id := range sres.IDs {
		docTks[i] = strings.Join(chunkTokens(sres.Fields[id], 1, 1, 0), " ")
	}

	tksim := s.builder.TokenSimilarity(strings.Join(keywords, " "), docTks)
	vsim, err := s.reranker.Score(ctx, question, docTks)
	if err != nil {
		return nil, nil, nil, err
	}

	sim := make([]float64, len(tksim))
	for i := range sim {
		sim[i] = tokenWeight*(tksim[i]+rankFea[i]) + vectorWeight*vsim[i]
	}
	return sim, tksim, vsim, nil
}

// chunkTokens assembles a chunk's scoring tokens: content tokens plus
// repeated title, important-keyword and question tokens. Repetition
// weights the fields inside the flat overlap computation.
func chunkTokens(doc map[string]any, titleN, importantN, questionN int) []string {
	tks := strings.Fields(fieldString(doc, docstore.FieldContentTokens))
	title := strings.Fields(fieldString(doc, docstore.FieldTitleTokens))
	for i := 0; i < titleN; i++ {
		tks = append(tks, title...)
	}
	important := fieldStrings(doc, docstore.FieldImportantKwd)
	for i := 0; i < importantN; i++ {
		tks = append(tks, important...)
	}
	questions := strings.Fields(fieldString(doc, docstore.FieldQuestionTks))
	for i := 0; i < questionN; i++ {
		tks = append(tks, questions...)
	}
	return tks
}

// rankFeatureScores computes the per-candidate static boost: tag
// affinity between the query tags and the chunk's tag features,
// scaled by ten, plus the chunk pagerank.
func rankFeatureScores(queryTags map[string]float64, sres *SearchOutcome) []float64 {
	out := make([]float64, len(sres.IDs))
	for i, id := range sres.IDs {
		out[i] = fieldFloat(sres.Fields[id], docstore.FieldPageRank)
	}

	var qDenom float64
	for t, s := range queryTags {
		if t == docstore.FieldPageRank {
			continue
		}
		qDenom += s * s
	}
	if qDenom == 0 {
		return out
	}
	qDenom = math.Sqrt(qDenom)

	for i, id := range sres.IDs {
		feas := tagFeatures(sres.Fields[id][docstore.FieldTagFeature])
		var num, denom float64
		for t, sc := range feas {
			if w, ok := queryTags[t]; ok {
				num += w * sc
			}
			denom += sc * sc
		}
		if denom > 0 {
			out[i] += num / math.Sqrt(denom) / qDenom * 10
		}
	}
	return out
}

// tagFeatures reads a chunk's tag feature map, tolerating the JSON
// string form remote stores return.
func tagFeatures(v any) map[string]float64 {
	switch x := v.(type) {
	case map[string]float64:
		return x
	case map[string]any:
		out := make(map[string]float64, len(x))
		for k, vv := range x {
			out[k] = anyFloat(vv)
		}
		return out
	case string:
		var out map[string]float64
		if err := json.Unmarshal([]byte(x), &out); err == nil {
			return out
		}
	}
	return nil
}

func fieldString(doc map[string]any, field string) string {
	s, _ := doc[field].(string)
	return s
}

func fieldStrings(doc map[string]any, field string) []string {
	switch x := doc[field].(type) {
	case []string:
		return x
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	case []any:
		out := make([]string, 0, len(x))
		for _, v := range x {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func fieldInts(doc map[string]any, field string) []int {
	switch x := doc[field].(type) {
	case []int:
		return x
	case []any:
		out := make([]int, 0, len(x))
		for _, v := range x {
			out = append(out, int(anyFloat(v)))
		}
		return out
	}
	return nil
}

func fieldFloat(doc map[string]any, field string) float64 {
	return anyFloat(doc[field])
}

func anyFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, _ := x.Float64()
		return f
	}
	return 0
}

// fieldVector reads a chunk vector, returning a zero vector of the
// given width when the column is absent.
func fieldVector(doc map[string]any, field string, dims int) []float32 {
	switch x := doc[field].(type) {
	case []float32:
		return x
	case []float64:
		out := make([]float32, len(x))
		for i, f := range x {
			out[i] = float32(f)
		}
		return out
	}
	return make([]float32, dims)
}
