package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhagnzhenfei/industry-assistant/internal/docstore"
	"github.com/zhagnzhenfei/industry-assistant/internal/embed"
	"github.com/zhagnzhenfei/industry-assistant/internal/segment"
)

func TestReadJSONL(t *testing.T) {
	input := `
# sample corpus
{"id":"c1","doc_id":"d1","doc_name":"a.md","kb_id":"kb1","title":"数据分析","content":"这是数据分析报告"}

{"id":"c2","doc_id":"d1","doc_name":"a.md","kb_id":"kb1","content":"项目计划","tags":["plan"]}
`
	docs, err := ReadJSONL(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "c1", docs[0].ID)
	assert.Equal(t, []string{"plan"}, docs[1].Tags)
}

func TestReadJSONLBadLine(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader(`{"id":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestIngestBuildsSearchableChunks(t *testing.T) {
	ctx := context.Background()
	store, err := docstore.NewLocal()
	require.NoError(t, err)
	defer store.Close()

	ing := New(segment.Default(), embed.NewStaticEmbedder(), store, nil)
	n, err := ing.Ingest(ctx, "idx", []Document{
		{
			ID: "c1", DocID: "d1", DocName: "a.md", KBID: "kb1",
			Title:   "数据分析报告",
			Content: "这周日你有空吗",
			Tags:    []string{"schedule"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doc, err := store.Get(ctx, "c1", nil)
	require.NoError(t, err)
	require.NotNil(t, doc)

	// Tokenized fields are whitespace joined segmenter output.
	assert.Equal(t, "这 周日 你 有空 吗", doc[docstore.FieldContentTokens])
	assert.Contains(t, doc[docstore.FieldTitleTokens], "数据分析")
	assert.Contains(t, doc, docstore.VectorField(embed.StaticDimensions))
	assert.Equal(t, []string{"schedule"}, doc[docstore.FieldTagKwd])
}

func TestIngestRejectsMissingID(t *testing.T) {
	store, err := docstore.NewLocal()
	require.NoError(t, err)
	defer store.Close()

	ing := New(segment.Default(), embed.NewStaticEmbedder(), store, nil)
	_, err = ing.Ingest(context.Background(), "idx", []Document{{Content: "无标识"}})
	require.Error(t, err)
}
