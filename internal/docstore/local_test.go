package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocal()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	docs := []map[string]any{
		{
			FieldID:            "c1",
			FieldDocID:         "d1",
			FieldKBID:          "kb1",
			FieldDocName:       "weekly-report.docx",
			FieldTitleTokens:   "周报 数据 分析",
			FieldContentTokens: "本周 数据 分析 结果 显示 增长",
			FieldTagKwd:        []string{"分析", "周报"},
			FieldPageRank:      float64(0),
			VectorField(4):     []float32{1, 0, 0, 0},
		},
		{
			FieldID:            "c2",
			FieldDocID:         "d1",
			FieldKBID:          "kb1",
			FieldDocName:       "weekly-report.docx",
			FieldTitleTokens:   "项目 计划",
			FieldContentTokens: "项目 经理 制定 计划",
			FieldTagKwd:        []string{"项目"},
			FieldPageRank:      float64(0),
			VectorField(4):     []float32{0, 1, 0, 0},
		},
		{
			FieldID:            "c3",
			FieldDocID:         "d2",
			FieldKBID:          "kb2",
			FieldContentTokens: "机器 学习 模型 训练",
			FieldTagKwd:        []string{"模型"},
			FieldPageRank:      float64(50),
			VectorField(4):     []float32{0.9, 0.1, 0, 0},
		},
	}
	require.NoError(t, s.Insert(context.Background(), "idx", docs))
	return s
}

func TestLexicalSearch(t *testing.T) {
	s := seedStore(t)

	res, err := s.Search(context.Background(), &SearchRequest{
		Matches: []any{
			&TextMatch{
				Fields: []string{"title_tks^10", "content_ltks^2"},
				Text:   "(数据)^0.6 (分析)^0.4",
				TopN:   10,
			},
			&Fusion{Method: "weighted_sum", Weights: []float64{1, 0}},
		},
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.IDs)
	assert.Equal(t, "c1", res.IDs[0])
	assert.NotContains(t, res.IDs, "c2")
}

func TestDenseSearch(t *testing.T) {
	s := seedStore(t)

	res, err := s.Search(context.Background(), &SearchRequest{
		Matches: []any{
			&DenseMatch{Column: VectorField(4), Vector: []float32{1, 0, 0, 0}, TopN: 10, SimilarityThreshold: 0.1},
			&Fusion{Method: "weighted_sum", Weights: []float64{0, 1}},
		},
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.IDs)
	assert.Equal(t, "c1", res.IDs[0])
	// orthogonal vector falls below the similarity threshold
	assert.NotContains(t, res.IDs, "c2")
	assert.Contains(t, res.IDs, "c3")
}

func TestHybridFusionWeights(t *testing.T) {
	s := seedStore(t)

	// lexical favors c1, the vector favors c2; with all weight on the
	// dense side c2 must win
	res, err := s.Search(context.Background(), &SearchRequest{
		Matches: []any{
			&TextMatch{Fields: []string{"content_ltks^2"}, Text: "(数据)^0.5 (分析)^0.5", TopN: 10},
			&DenseMatch{Column: VectorField(4), Vector: []float32{0, 1, 0, 0}, TopN: 10},
			&Fusion{Method: "weighted_sum", Weights: []float64{0, 1}},
		},
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.IDs)
	assert.Equal(t, "c2", res.IDs[0])
}

func TestKBFilterAndCondition(t *testing.T) {
	s := seedStore(t)

	res, err := s.Search(context.Background(), &SearchRequest{
		Matches: []any{
			&DenseMatch{Column: VectorField(4), Vector: []float32{1, 0, 0, 0}, TopN: 10},
		},
		KBIDs: []string{"kb1"},
		Limit: 10,
	})
	require.NoError(t, err)
	assert.NotContains(t, res.IDs, "c3")

	res, err = s.Search(context.Background(), &SearchRequest{
		Matches: []any{
			&DenseMatch{Column: VectorField(4), Vector: []float32{1, 0, 0, 0}, TopN: 10},
		},
		Condition: map[string]any{FieldDocID: []string{"d2"}},
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c3"}, res.IDs)
}

func TestPagination(t *testing.T) {
	s := seedStore(t)

	req := &SearchRequest{
		Matches: []any{
			&DenseMatch{Column: VectorField(4), Vector: []float32{1, 0, 0, 0}, TopN: 10},
		},
		Limit: 1,
	}
	first, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.IDs, 1)

	req.Offset = 1
	second, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	if len(second.IDs) > 0 {
		assert.NotEqual(t, first.IDs[0], second.IDs[0])
	}
	assert.Equal(t, first.Total, second.Total)

	// offset beyond the result set yields an empty page, same total
	req.Offset = 100
	empty, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, empty.IDs)
	assert.Equal(t, first.Total, empty.Total)
}

func TestAggregations(t *testing.T) {
	s := seedStore(t)

	res, err := s.Search(context.Background(), &SearchRequest{
		Matches: []any{
			&DenseMatch{Column: VectorField(4), Vector: []float32{1, 0, 0, 0}, TopN: 10},
		},
		AggFields: []string{FieldTagKwd},
		Limit:     10,
	})
	require.NoError(t, err)
	require.Contains(t, res.Aggregations, FieldTagKwd)
	assert.NotEmpty(t, res.Aggregations[FieldTagKwd])
}

func TestOrderedScanWithoutMatches(t *testing.T) {
	s := seedStore(t)

	res, err := s.Search(context.Background(), &SearchRequest{
		OrderBy: []OrderSpec{{Field: FieldID}},
		KBIDs:   []string{"kb1"},
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, res.IDs)
	assert.Equal(t, int64(2), res.Total)
}

func TestDeleteByCondition(t *testing.T) {
	s := seedStore(t)

	n, err := s.Delete(context.Background(), "idx", map[string]any{FieldDocID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, s.Count())

	doc, err := s.Get(context.Background(), "c1", nil)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestInsertRejectsDimensionMismatch(t *testing.T) {
	s := seedStore(t)

	err := s.Insert(context.Background(), "idx", []map[string]any{
		{FieldID: "bad", VectorField(4): []float32{1, 0}},
	})
	assert.Error(t, err)
}

func TestParseMatchText(t *testing.T) {
	terms := parseMatchText(`(数据^0.6 OR (子 词)^0.2) "有 空"~2^0.5 plain`)

	var texts []string
	for _, qt := range terms {
		texts = append(texts, qt.text)
	}
	assert.Contains(t, texts, "数据")
	assert.Contains(t, texts, "有 空")
	assert.Contains(t, texts, "plain")
	assert.NotContains(t, texts, "OR")

	for _, qt := range terms {
		if qt.text == "有 空" {
			assert.True(t, qt.phrase)
			assert.Equal(t, 2, qt.slop)
			assert.InDelta(t, 0.5, qt.boost, 1e-9)
		}
		if qt.text == "数据" {
			assert.InDelta(t, 0.6, qt.boost, 1e-9)
		}
	}
}
