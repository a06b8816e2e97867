package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhagnzhenfei/industry-assistant/internal/docstore"
)

func tagResult(buckets []docstore.AggregationBucket) *docstore.SearchResult {
	return &docstore.SearchResult{
		Aggregations: map[string][]docstore.AggregationBucket{
			docstore.FieldTagKwd: buckets,
		},
	}
}

func TestAllTagsInPortion(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		tagResult([]docstore.AggregationBucket{
			{Value: "ai", Count: 9},
			{Value: "db", Count: 1},
		}),
	}}
	e := newTestEngine(t, store)

	portions, err := e.AllTagsInPortion(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.InDelta(t, 10.0/1010.0, portions["ai"], 1e-9)
	assert.InDelta(t, 2.0/1010.0, portions["db"], 1e-9)
}

func TestTagQuery(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		tagResult([]docstore.AggregationBucket{
			{Value: "ai", Count: 9},
			{Value: "db", Count: 0},
		}),
	}}
	e := newTestEngine(t, store)

	tags, err := e.TagQuery(context.Background(), "数据分析", nil, nil,
		map[string]float64{"ai": 0.0001}, 3)
	require.NoError(t, err)

	// round(0.1 * 10 / 1009 / 0.0001) = 10 for the frequent tag;
	// the zero-count tag clamps up to 1.
	assert.InDelta(t, 10, tags["ai"], 1e-9)
	assert.InDelta(t, 1, tags["db"], 1e-9)
}

func TestTagContent(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		tagResult([]docstore.AggregationBucket{
			{Value: "ai", Count: 9},
			{Value: "db", Count: 0},
		}),
	}}
	e := newTestEngine(t, store)

	doc := map[string]any{
		docstore.FieldTitleTokens:   "数据 报告",
		docstore.FieldContentTokens: "数据 分析 结果",
	}
	ok, err := e.TagContent(context.Background(), nil, nil, doc,
		map[string]float64{"ai": 0.0001}, 3, 30)
	require.NoError(t, err)
	require.True(t, ok)

	feas, ok := doc[docstore.FieldTagFeature].(map[string]float64)
	require.True(t, ok)
	assert.InDelta(t, 10, feas["ai"], 1e-9)
	// Non-positive features are not stored.
	assert.NotContains(t, feas, "db")
}

func TestTagContentNoMatches(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{tagResult(nil)}}
	e := newTestEngine(t, store)

	doc := map[string]any{docstore.FieldContentTokens: "数据 分析"}
	ok, err := e.TagContent(context.Background(), nil, nil, doc, nil, 3, 30)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotContains(t, doc, docstore.FieldTagFeature)
}

func TestChunkList(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		chunkResult([]string{"c1", "c2"}, map[string]map[string]any{
			"c1": {docstore.FieldDocName: "a.txt", docstore.FieldContent: "first"},
			"c2": {docstore.FieldDocName: "a.txt", docstore.FieldContent: "second"},
		}),
	}}
	e := newTestEngine(t, store)

	chunks, err := e.ChunkList(context.Background(), "d1", "idx", nil, 1024, 0, nil)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	ids := []string{chunks[0][docstore.FieldID].(string), chunks[1][docstore.FieldID].(string)}
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids)
	require.Len(t, store.calls, 1, "short page ends the walk")
}
