package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhagnzhenfei/industry-assistant/internal/docstore"
	"github.com/zhagnzhenfei/industry-assistant/internal/embed"
	engerr "github.com/zhagnzhenfei/industry-assistant/internal/errors"
	"github.com/zhagnzhenfei/industry-assistant/internal/query"
	"github.com/zhagnzhenfei/industry-assistant/internal/segment"
)

// recordedCall captures the request shape at call time; the engine
// reuses and mutates one request across the relaxation retry.
type recordedCall struct {
	offset    int
	limit     int
	hasDocID  bool
	minMatch  float64
	simFloor  float64
	aggFields []string
}

type stubStore struct {
	calls   []recordedCall
	results []*docstore.SearchResult
	err     error
}

func (s *stubStore) Search(_ context.Context, req *docstore.SearchRequest) (*docstore.SearchResult, error) {
	call := recordedCall{
		offset:    req.Offset,
		limit:     req.Limit,
		aggFields: append([]string(nil), req.AggFields...),
	}
	_, call.hasDocID = req.Condition[docstore.FieldDocID]
	for _, m := range req.Matches {
		switch mm := m.(type) {
		case *docstore.TextMatch:
			call.minMatch = mm.MinimumShouldMatch
		case *docstore.DenseMatch:
			call.simFloor = mm.SimilarityThreshold
		}
	}
	s.calls = append(s.calls, call)
	if s.err != nil {
		return nil, s.err
	}
	i := len(s.calls) - 1
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i], nil
}

func (s *stubStore) Get(context.Context, string, []string) (map[string]any, error) {
	return nil, nil
}
func (s *stubStore) Insert(context.Context, string, []map[string]any) error { return nil }
func (s *stubStore) Delete(context.Context, string, map[string]any) (int64, error) {
	return 0, nil
}
func (s *stubStore) Close() error { return nil }

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, engerr.New(engerr.CodeEmbedUnavailable, "provider down", nil)
}
func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, engerr.New(engerr.CodeEmbedUnavailable, "provider down", nil)
}
func (failingEmbedder) Dimensions() int { return 4 }
func (failingEmbedder) Close() error    { return nil }

type fakeReranker struct {
	scores []float64
	err    error
	calls  int
}

func (r *fakeReranker) Score(_ context.Context, _ string, docs []string) ([]float64, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.scores[:len(docs)], nil
}

func chunkResult(ids []string, fields map[string]map[string]any) *docstore.SearchResult {
	return &docstore.SearchResult{
		Total:  int64(len(ids)),
		IDs:    ids,
		Fields: fields,
	}
}

func newTestEngine(t *testing.T, store docstore.Store, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := NewEngine(store, embed.NewStaticEmbedder(), query.Default(), segment.Default(), opts...)
	require.NoError(t, err)
	return e
}

func TestRetrievalLexicalOrderWithZeroVectorWeight(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		chunkResult([]string{"c1", "c2", "c3"}, map[string]map[string]any{
			"c1": {docstore.FieldContentTokens: "项目 计划", docstore.FieldDocID: "d1", docstore.FieldDocName: "a.txt"},
			"c2": {docstore.FieldContentTokens: "数据 分析", docstore.FieldDocID: "d2", docstore.FieldDocName: "b.txt"},
			"c3": {docstore.FieldContentTokens: "数据 项目", docstore.FieldDocID: "d3", docstore.FieldDocName: "c.txt"},
		}),
	}}
	e := newTestEngine(t, store)

	res, err := e.Retrieval(context.Background(), RetrievalRequest{
		Question:     "数据分析",
		PageSize:     10,
		VectorWeight: 0,
	})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 3)

	// Pure token overlap: full match first, partial second, none last.
	assert.Equal(t, "c2", res.Chunks[0].ID)
	assert.Equal(t, "c3", res.Chunks[1].ID)
	assert.Equal(t, "c1", res.Chunks[2].ID)
	assert.Greater(t, res.Chunks[0].Similarity, res.Chunks[1].Similarity)
	assert.Greater(t, res.Chunks[1].Similarity, res.Chunks[2].Similarity)
}

func TestRetrievalRelaxesOnceOnZeroHits(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		{Total: 0},
		chunkResult([]string{"c1"}, map[string]map[string]any{
			"c1": {docstore.FieldContentTokens: "数据 分析", docstore.FieldDocID: "d1", docstore.FieldDocName: "a.txt"},
		}),
	}}
	e := newTestEngine(t, store)

	res, err := e.Retrieval(context.Background(), RetrievalRequest{
		Question: "数据分析",
		DocIDs:   []string{"d1"},
		PageSize: 10,
	})
	require.NoError(t, err)

	require.Len(t, store.calls, 2, "exactly one relaxation retry")
	assert.True(t, store.calls[0].hasDocID)
	assert.InDelta(t, 0.3, store.calls[0].minMatch, 1e-9)

	assert.False(t, store.calls[1].hasDocID, "relaxation drops the doc filter")
	assert.InDelta(t, 0.1, store.calls[1].minMatch, 1e-9)
	assert.InDelta(t, 0.17, store.calls[1].simFloor, 1e-9)

	assert.Equal(t, int64(1), res.Total)
}

func TestRetrievalPassThroughBeyondRerankWindow(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		chunkResult([]string{"c1", "c2"}, map[string]map[string]any{
			"c1": {docstore.FieldContentTokens: "数据", docstore.FieldDocID: "d1", docstore.FieldDocName: "a.txt"},
			"c2": {docstore.FieldContentTokens: "分析", docstore.FieldDocID: "d2", docstore.FieldDocName: "b.txt"},
		}),
	}}
	e := newTestEngine(t, store)

	res, err := e.Retrieval(context.Background(), RetrievalRequest{
		Question: "数据分析",
		Page:     5,
		PageSize: 10,
	})
	require.NoError(t, err)

	require.Len(t, store.calls, 1)
	assert.Equal(t, 40, store.calls[0].offset)
	assert.Equal(t, 10, store.calls[0].limit)

	// Store order preserved, no local rerank applied.
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "c1", res.Chunks[0].ID)
	assert.Equal(t, float64(1), res.Chunks[0].Similarity)
}

func TestRetrievalCandidatePoolWithinRerankWindow(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{{Total: 0}}}
	e := newTestEngine(t, store)

	_, err := e.Retrieval(context.Background(), RetrievalRequest{
		Question: "数据分析",
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)

	require.NotEmpty(t, store.calls)
	assert.Equal(t, 0, store.calls[0].offset)
	assert.Equal(t, 128, store.calls[0].limit, "pool floor of 128 candidates")
}

func TestRetrievalStoreFailureReturnsEmptyPage(t *testing.T) {
	store := &stubStore{err: engerr.StoreError("backend down", nil)}
	e := newTestEngine(t, store)

	res, err := e.Retrieval(context.Background(), RetrievalRequest{Question: "数据分析", PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Total)
	assert.Empty(t, res.Chunks)
}

func TestRetrievalEmbedderFailureIsTerminal(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{{Total: 0}}}
	e, err := NewEngine(store, failingEmbedder{}, query.Default(), segment.Default())
	require.NoError(t, err)

	_, err = e.Retrieval(context.Background(), RetrievalRequest{Question: "数据分析", PageSize: 10})
	require.Error(t, err)
	assert.Equal(t, engerr.CodeEmbedUnavailable, engerr.GetCode(err))
	assert.Empty(t, store.calls, "no search issued without an embedding")
}

func TestRetrievalExternalRerankOrdersByModelScore(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		chunkResult([]string{"c1", "c2"}, map[string]map[string]any{
			"c1": {docstore.FieldContentTokens: "数据 分析", docstore.FieldDocID: "d1", docstore.FieldDocName: "a.txt"},
			"c2": {docstore.FieldContentTokens: "项目 计划", docstore.FieldDocID: "d2", docstore.FieldDocName: "b.txt"},
		}),
	}}
	rr := &fakeReranker{scores: []float64{0.1, 0.9}}
	e := newTestEngine(t, store, WithReranker(rr))

	res, err := e.Retrieval(context.Background(), RetrievalRequest{
		Question:     "数据分析",
		PageSize:     10,
		VectorWeight: 1,
	})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)

	// Full model weight: order follows the model scores, not overlap.
	assert.Equal(t, "c2", res.Chunks[0].ID)
	assert.Equal(t, 1, rr.calls)
}

func TestRetrievalFallsBackToLocalOnRerankFailure(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		chunkResult([]string{"c1", "c2"}, map[string]map[string]any{
			"c1": {docstore.FieldContentTokens: "项目 计划", docstore.FieldDocID: "d1", docstore.FieldDocName: "a.txt"},
			"c2": {docstore.FieldContentTokens: "数据 分析", docstore.FieldDocID: "d2", docstore.FieldDocName: "b.txt"},
		}),
	}}
	rr := &fakeReranker{err: engerr.New(engerr.CodeRerankUnavailable, "down", nil)}
	e := newTestEngine(t, store, WithReranker(rr))

	res, err := e.Retrieval(context.Background(), RetrievalRequest{
		Question:     "数据分析",
		PageSize:     10,
		VectorWeight: 0,
	})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)

	// Local overlap scoring decides the order.
	assert.Equal(t, "c2", res.Chunks[0].ID)
	assert.Equal(t, 1, rr.calls)
}

func TestRetrievalPagerankBoost(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		chunkResult([]string{"c1", "c2"}, map[string]map[string]any{
			"c1": {docstore.FieldContentTokens: "数据 分析", docstore.FieldDocID: "d1", docstore.FieldDocName: "a.txt"},
			"c2": {docstore.FieldContentTokens: "数据 分析", docstore.FieldDocID: "d2", docstore.FieldDocName: "b.txt",
				docstore.FieldPageRank: 5.0},
		}),
	}}
	e := newTestEngine(t, store)

	res, err := e.Retrieval(context.Background(), RetrievalRequest{
		Question:     "数据分析",
		PageSize:     10,
		VectorWeight: 0,
	})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "c2", res.Chunks[0].ID, "identical overlap, pagerank breaks the tie")
}

func TestRetrievalDocAggregation(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		chunkResult([]string{"c1", "c2", "c3"}, map[string]map[string]any{
			"c1": {docstore.FieldContentTokens: "数据 分析", docstore.FieldDocID: "d1", docstore.FieldDocName: "a.txt"},
			"c2": {docstore.FieldContentTokens: "数据 分析", docstore.FieldDocID: "d1", docstore.FieldDocName: "a.txt"},
			"c3": {docstore.FieldContentTokens: "数据 分析", docstore.FieldDocID: "d2", docstore.FieldDocName: "b.txt"},
		}),
	}}
	e := newTestEngine(t, store)

	res, err := e.Retrieval(context.Background(), RetrievalRequest{
		Question:     "数据分析",
		PageSize:     10,
		VectorWeight: 0,
		Aggregations: true,
	})
	require.NoError(t, err)

	require.Len(t, res.DocAggs, 2)
	assert.Equal(t, DocAgg{DocName: "a.txt", DocID: "d1", Count: 2}, res.DocAggs[0])
	assert.Equal(t, DocAgg{DocName: "b.txt", DocID: "d2", Count: 1}, res.DocAggs[1])
}

func TestSearchKeywordExpansion(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{{Total: 0}}}
	e := newTestEngine(t, store)

	out, err := e.Search(context.Background(), SearchParams{Question: "数据分析"})
	require.NoError(t, err)

	assert.Contains(t, out.Keywords, "数据分析")
	assert.Contains(t, out.Keywords, "数据")
	assert.Contains(t, out.Keywords, "分析")
}

func TestSearchWithoutQuestionScans(t *testing.T) {
	store := &stubStore{results: []*docstore.SearchResult{
		chunkResult([]string{"c1"}, map[string]map[string]any{
			"c1": {docstore.FieldContentTokens: "数据"},
		}),
	}}
	e := newTestEngine(t, store)

	out, err := e.Search(context.Background(), SearchParams{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	assert.Nil(t, out.QueryVector)
	require.Len(t, store.calls, 1)
}
