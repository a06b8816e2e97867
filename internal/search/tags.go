package search

import (
	"context"
	"math"
	"sort"

	"github.com/zhagnzhenfei/industry-assistant/internal/docstore"
)

// tagSmoothing is the additive smoothing mass for tag portions.
const tagSmoothing = 1000

// chunkListBatch is the page size used when walking a document's
// chunks.
const chunkListBatch = 128

// AllTags returns the tag value counts across the scoped indexes.
func (e *Engine) AllTags(ctx context.Context, indexes, kbIDs []string) ([]docstore.AggregationBucket, error) {
	res, err := e.store.Search(ctx, &docstore.SearchRequest{
		Indexes:   indexes,
		KBIDs:     kbIDs,
		AggFields: []string{docstore.FieldTagKwd},
	})
	if err != nil {
		return nil, err
	}
	return res.Aggregations[docstore.FieldTagKwd], nil
}

// AllTagsInPortion returns each tag's smoothed share of the corpus.
func (e *Engine) AllTagsInPortion(ctx context.Context, indexes, kbIDs []string) (map[string]float64, error) {
	buckets, err := e.AllTags(ctx, indexes, kbIDs)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	out := make(map[string]float64, len(buckets))
	for _, b := range buckets {
		out[b.Value] = float64(b.Count+1) / float64(total+tagSmoothing)
	}
	return out, nil
}

// TagContent derives tag features for a chunk from the tags of
// similar indexed content and stores them on the chunk map. Returns
// false when no similar tagged content exists.
func (e *Engine) TagContent(ctx context.Context, indexes, kbIDs []string, doc map[string]any,
	allTags map[string]float64, topNTags, keywordsTopN int) (bool, error) {

	text := fieldString(doc, docstore.FieldTitleTokens) + " " + fieldString(doc, docstore.FieldContentTokens)
	match := e.builder.Paragraph(text, fieldStrings(doc, docstore.FieldImportantKwd), keywordsTopN)
	if match == nil {
		return false, nil
	}

	buckets, err := e.tagAggregation(ctx, indexes, kbIDs, textClause(match))
	if err != nil {
		return false, err
	}
	scored := tagFeatureScores(buckets, allTags, topNTags)
	if len(scored) == 0 {
		return false, nil
	}
	feas := make(map[string]float64, len(scored))
	for _, ts := range scored {
		if ts.score > 0 {
			feas[ts.tag] = ts.score
		}
	}
	doc[docstore.FieldTagFeature] = feas
	return true, nil
}

// TagQuery derives query tag weights for rank-feature scoring from
// the tags of content matching the question.
func (e *Engine) TagQuery(ctx context.Context, question string, indexes, kbIDs []string,
	allTags map[string]float64, topNTags int) (map[string]float64, error) {

	match, _ := e.builder.Question(question, 0)
	if match == nil {
		return nil, nil
	}
	buckets, err := e.tagAggregation(ctx, indexes, kbIDs, textClause(match))
	if err != nil {
		return nil, err
	}
	scored := tagFeatureScores(buckets, allTags, topNTags)
	out := make(map[string]float64, len(scored))
	for _, ts := range scored {
		c := ts.score
		if c < 1 {
			c = 1
		}
		out[ts.tag] = c
	}
	return out, nil
}

func (e *Engine) tagAggregation(ctx context.Context, indexes, kbIDs []string, matches []any) ([]docstore.AggregationBucket, error) {
	res, err := e.store.Search(ctx, &docstore.SearchRequest{
		Indexes:   indexes,
		KBIDs:     kbIDs,
		Matches:   matches,
		AggFields: []string{docstore.FieldTagKwd},
	})
	if err != nil {
		return nil, err
	}
	return res.Aggregations[docstore.FieldTagKwd], nil
}

type tagScore struct {
	tag   string
	score float64
}

// tagFeatureScores turns tag counts into the top-N feature weights,
// boosting tags rare in the corpus at large.
func tagFeatureScores(buckets []docstore.AggregationBucket, allTags map[string]float64, topN int) []tagScore {
	if len(buckets) == 0 {
		return nil
	}
	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	scored := make([]tagScore, 0, len(buckets))
	for _, b := range buckets {
		base := allTags[b.Value]
		if base < 1e-6 {
			base = 0.0001
		}
		s := math.Round(0.1 * float64(b.Count+1) / float64(total+tagSmoothing) / base)
		scored = append(scored, tagScore{tag: b.Value, score: s})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

// ChunkList walks every chunk of one document in insertion order,
// stopping early when a short page signals the end.
func (e *Engine) ChunkList(ctx context.Context, docID string, index string, kbIDs []string,
	maxCount, offset int, fields []string) ([]map[string]any, error) {

	if len(fields) == 0 {
		fields = []string{docstore.FieldDocName, docstore.FieldContent, docstore.FieldImage}
	}
	var out []map[string]any
	for p := offset; p < maxCount; p += chunkListBatch {
		res, err := e.store.Search(ctx, &docstore.SearchRequest{
			SelectFields: fields,
			Condition:    map[string]any{docstore.FieldDocID: docID},
			Offset:       p,
			Limit:        chunkListBatch,
			Indexes:      []string{index},
			KBIDs:        kbIDs,
		})
		if err != nil {
			return nil, err
		}
		for _, id := range res.IDs {
			doc := res.Fields[id]
			if doc == nil {
				continue
			}
			doc[docstore.FieldID] = id
			out = append(out, doc)
		}
		if len(res.IDs) < chunkListBatch {
			break
		}
	}
	return out, nil
}
