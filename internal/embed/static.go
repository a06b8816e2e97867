package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// StaticDimensions is the dimensionality of the hash embedder.
const StaticDimensions = 256

// StaticEmbedder generates deterministic hash-based embeddings with
// no network or model dependency. Semantic quality is limited; it
// serves tests and offline deployments where lexical retrieval does
// the heavy lifting.
type StaticEmbedder struct{}

// NewStaticEmbedder creates a static embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

var _ Embedder = (*StaticEmbedder)(nil)

// Embed hashes tokens and rune bigrams into buckets and normalizes
// the result to unit length. Identical text always embeds
// identically.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, StaticDimensions)
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return vec, nil
	}

	for _, tok := range tokenize(text) {
		vec[bucket(tok)] += 0.7
	}
	rs := []rune(strings.Join(strings.Fields(text), ""))
	for i := 0; i+1 < len(rs); i++ {
		vec[bucket(string(rs[i:i+2]))] += 0.3
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions implements Embedder.
func (e *StaticEmbedder) Dimensions() int { return StaticDimensions }

// Close implements Embedder.
func (e *StaticEmbedder) Close() error { return nil }

func bucket(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % StaticDimensions)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
