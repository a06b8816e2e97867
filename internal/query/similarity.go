package query

import (
	"math"
	"strings"
)

// TokenWeights folds term weights into a map, merging duplicates.
func (b *Builder) TokenWeights(tks []string) map[string]float64 {
	d := make(map[string]float64, len(tks))
	for _, tm := range b.tw.Weights(tks, false) {
		d[tm.Token] += tm.Weight
	}
	return d
}

// Similarity is the weighted token overlap between a query and a
// document: the weight mass of query terms present in the document
// over the total query weight mass.
func (b *Builder) Similarity(qtwt, dtwt map[string]float64) float64 {
	s, q := 1e-9, 1e-9
	for k, v := range qtwt {
		if _, ok := dtwt[k]; ok {
			s += v
		}
		q += v
	}
	return s / q
}

// SimilarityText is Similarity over raw token strings.
func (b *Builder) SimilarityText(qtks, dtks string) float64 {
	return b.Similarity(
		b.TokenWeights(b.tw.Split(qtks)),
		b.TokenWeights(b.tw.Split(dtks)),
	)
}

// TokenSimilarity scores the query tokens against each document's
// tokens.
func (b *Builder) TokenSimilarity(qtks string, dtkss []string) []float64 {
	qd := b.TokenWeights(strings.Fields(qtks))
	out := make([]float64, len(dtkss))
	for i, dtks := range dtkss {
		out[i] = b.Similarity(qd, b.TokenWeights(strings.Fields(dtks)))
	}
	return out
}

// HybridSimilarity blends vector cosine and token overlap per
// document. When the vector signal is degenerate (mean cosine below
// 0.01) the token similarity stands alone. Returns the blended,
// token, and vector scores.
func (b *Builder) HybridSimilarity(qvec []float32, dvecs [][]float32, qtks string, dtkss []string,
	tokenWeight, vectorWeight float64) (blended, tksim, vsim []float64) {

	vsim = make([]float64, len(dvecs))
	for i, dv := range dvecs {
		vsim[i] = Cosine(qvec, dv)
	}
	tksim = b.TokenSimilarity(qtks, dtkss)

	var vsum float64
	for _, v := range vsim {
		vsum += v
	}
	blended = make([]float64, len(tksim))
	if len(vsim) > 0 && vsum/float64(len(vsim)) < 0.01 {
		copy(blended, tksim)
		return blended, tksim, vsim
	}
	for i := range blended {
		blended[i] = vsim[i]*vectorWeight + tksim[i]*tokenWeight
	}
	return blended, tksim, vsim
}

// Cosine is the cosine similarity of two vectors. Mismatched lengths
// or zero vectors score zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
