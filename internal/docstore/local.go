package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	bquery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/coder/hnsw"
	"golang.org/x/sync/errgroup"

	"github.com/zhagnzhenfei/industry-assistant/internal/errors"
)

// pretokenizedAnalyzer splits on whitespace only. Index fields hold
// already-segmented token strings, so the store must not re-analyze
// them.
const pretokenizedAnalyzer = "pretokenized"

// textFields are indexed with the pretokenized analyzer and stored
// for highlighting.
var textFields = []string{
	FieldTitleTokens, FieldTitleFine,
	FieldContentTokens, FieldContentFine,
	FieldImportantTks, FieldQuestionTks,
}

// keywordFields are indexed verbatim.
var keywordFields = []string{
	FieldDocID, FieldKBID, FieldDocName, FieldImportantKwd, FieldTagKwd,
}

// LocalStore is an in-process Store over a bleve full-text index and
// per-column HNSW graphs. It serves single-node deployments and
// tests; remote stores implement the same contract.
type LocalStore struct {
	mu      sync.RWMutex
	idx     bleve.Index
	docs    map[string]map[string]any
	vectors map[string]*vectorColumn
	logger  *slog.Logger
	closed  bool
}

// vectorColumn is one dense column: an HNSW graph plus the string to
// key mappings. Deletions orphan keys lazily; search skips them.
type vectorColumn struct {
	graph  *hnsw.Graph[uint64]
	idMap  map[string]uint64
	keyMap map[uint64]string
	next   uint64
	dims   int
}

func newVectorColumn(dims int) *vectorColumn {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.Ml = 0.25
	g.EfSearch = 48
	return &vectorColumn{
		graph:  g,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		dims:   dims,
	}
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) LocalOption {
	return func(s *LocalStore) { s.logger = l }
}

// NewLocal creates an empty in-memory store.
func NewLocal(opts ...LocalOption) (*LocalStore, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(pretokenizedAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     whitespace.Name,
		"token_filters": []any{lowercase.Name},
	}); err != nil {
		return nil, errors.StoreError("register analyzer", err)
	}

	dm := bleve.NewDocumentMapping()
	dm.Dynamic = false
	for _, f := range textFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = pretokenizedAnalyzer
		fm.Store = true
		dm.AddFieldMappingsAt(f, fm)
	}
	for _, f := range keywordFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		dm.AddFieldMappingsAt(f, fm)
	}
	im.DefaultMapping = dm

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, errors.StoreError("create index", err)
	}

	s := &LocalStore{
		idx:     idx,
		docs:    make(map[string]map[string]any),
		vectors: make(map[string]*vectorColumn),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Insert adds or replaces chunks. Vector columns are detected by
// their q_<dim>_vec field name.
func (s *LocalStore) Insert(ctx context.Context, index string, docs []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.StoreError("store closed", nil)
	}

	batch := s.idx.NewBatch()
	for _, doc := range docs {
		id, _ := doc[FieldID].(string)
		if id == "" {
			return errors.New(errors.CodeStoreUnavailable, "document without id", nil)
		}
		indexed := make(map[string]any)
		for _, f := range textFields {
			if v, ok := doc[f].(string); ok {
				indexed[f] = v
			}
		}
		for _, f := range keywordFields {
			switch v := doc[f].(type) {
			case string:
				indexed[f] = v
			case []string:
				indexed[f] = strings.Join(v, " ")
			}
		}
		if err := batch.Index(id, indexed); err != nil {
			return errors.StoreError("index document", err)
		}

		for field, value := range doc {
			if !strings.HasPrefix(field, "q_") || !strings.HasSuffix(field, "_vec") {
				continue
			}
			vec, ok := toVector(value)
			if !ok {
				continue
			}
			col, exists := s.vectors[field]
			if !exists {
				col = newVectorColumn(len(vec))
				s.vectors[field] = col
			}
			if len(vec) != col.dims {
				return errors.New(errors.CodeDimensionMismatch,
					fmt.Sprintf("vector column %s expects %d dimensions, got %d", field, col.dims, len(vec)), nil)
			}
			if old, ok := col.idMap[id]; ok {
				delete(col.keyMap, old)
			}
			key := col.next
			col.next++
			col.graph.Add(hnsw.MakeNode(key, vec))
			col.idMap[id] = key
			col.keyMap[key] = id
		}
		s.docs[id] = doc
	}
	if err := s.idx.Batch(batch); err != nil {
		return errors.StoreError("commit batch", err)
	}
	return nil
}

// Get fetches one chunk, nil when absent.
func (s *LocalStore) Get(ctx context.Context, id string, indexes []string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	return doc, nil
}

// Delete removes chunks matching the condition.
func (s *LocalStore) Delete(ctx context.Context, index string, condition map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, doc := range s.docs {
		if !matchCondition(doc, condition) {
			continue
		}
		if err := s.idx.Delete(id); err != nil {
			return removed, errors.StoreError("delete document", err)
		}
		for _, col := range s.vectors {
			if key, ok := col.idMap[id]; ok {
				delete(col.keyMap, key)
				delete(col.idMap, id)
			}
		}
		delete(s.docs, id)
		removed++
	}
	return removed, nil
}

// Close releases the index.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.idx.Close()
}

// Count returns the number of stored chunks.
func (s *LocalStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Search executes a request. Lexical and dense retrieval run in
// parallel and their scores fuse by the weighted sum the request
// carries.
func (s *LocalStore) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.StoreError("store closed", nil)
	}

	var tm *TextMatch
	var dm *DenseMatch
	fusion := &Fusion{Method: "weighted_sum", Weights: []float64{0.05, 0.95}}
	for _, m := range req.Matches {
		switch v := m.(type) {
		case *TextMatch:
			tm = v
		case *DenseMatch:
			dm = v
		case *Fusion:
			fusion = v
		case TextMatch:
			tm = &v
		case DenseMatch:
			dm = &v
		case Fusion:
			fusion = &v
		}
	}

	if tm == nil && dm == nil {
		return s.scanOrdered(req)
	}

	var (
		lexScores   map[string]float64
		lexFrags    map[string]string
		denseScores map[string]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	if tm != nil {
		g.Go(func() error {
			var err error
			lexScores, lexFrags, err = s.searchText(gctx, tm, req.HighlightFields)
			return err
		})
	}
	if dm != nil {
		g.Go(func() error {
			denseScores = s.searchDense(dm)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	wText, wDense := 0.05, 0.95
	if len(fusion.Weights) == 2 {
		wText, wDense = fusion.Weights[0], fusion.Weights[1]
	}

	// normalize lexical scores so the fusion weights act on a
	// comparable scale
	var lexMax float64
	for _, v := range lexScores {
		lexMax = math.Max(lexMax, v)
	}

	combined := make(map[string]float64)
	for id, v := range lexScores {
		if lexMax > 0 {
			v /= lexMax
		}
		combined[id] += wText * v
	}
	for id, v := range denseScores {
		combined[id] += wDense * v
	}

	ids := make([]string, 0, len(combined))
	for id := range combined {
		doc, ok := s.docs[id]
		if !ok || !s.passesFilters(doc, req) {
			delete(combined, id)
			continue
		}
		combined[id] += rankFeatureBoost(doc, req.RankFeature)
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		if combined[ids[i]] != combined[ids[j]] {
			return combined[ids[i]] > combined[ids[j]]
		}
		return ids[i] < ids[j]
	})

	res := &SearchResult{
		Total:        int64(len(ids)),
		Scores:       combined,
		Highlights:   map[string]string{},
		Aggregations: s.aggregate(ids, req.AggFields),
	}
	page := paginate(ids, req.Offset, req.Limit)
	res.IDs = page
	res.Fields = s.collectFields(page, req.SelectFields)
	for _, id := range page {
		if frag, ok := lexFrags[id]; ok {
			res.Highlights[id] = frag
		}
	}
	return res, nil
}

// searchText runs the extracted weighted terms as a bleve disjunction
// across the match fields.
func (s *LocalStore) searchText(ctx context.Context, tm *TextMatch, highlightFields []string) (map[string]float64, map[string]string, error) {
	terms := parseMatchText(tm.Text)
	if len(terms) == 0 {
		return nil, nil, nil
	}

	var clauses []bquery.Query
	for _, qt := range terms {
		var perField []bquery.Query
		for _, spec := range tm.Fields {
			field, fieldBoost := parseField(spec)
			if qt.phrase {
				q := bleve.NewMatchPhraseQuery(qt.text)
				q.SetField(field)
				q.SetBoost(fieldBoost * qt.boost)
				perField = append(perField, q)
			} else {
				q := bleve.NewMatchQuery(qt.text)
				q.SetField(field)
				q.SetBoost(fieldBoost * qt.boost)
				perField = append(perField, q)
			}
		}
		clauses = append(clauses, bleve.NewDisjunctionQuery(perField...))
	}

	dq := bleve.NewDisjunctionQuery(clauses...)
	if tm.MinimumShouldMatch > 0 {
		min := tm.MinimumShouldMatch
		if min < 1 {
			min = math.Floor(min * float64(len(clauses)))
		}
		if min > float64(len(clauses)) {
			min = float64(len(clauses))
		}
		dq.SetMin(min)
	}

	topN := tm.TopN
	if topN <= 0 {
		topN = 100
	}
	sr := bleve.NewSearchRequestOptions(dq, topN, 0, false)
	if len(highlightFields) > 0 {
		sr.Highlight = bleve.NewHighlight()
		sr.Highlight.Fields = highlightFields
	}

	out, err := s.idx.SearchInContext(ctx, sr)
	if err != nil {
		return nil, nil, errors.StoreError("full-text search", err)
	}

	scores := make(map[string]float64, len(out.Hits))
	frags := make(map[string]string)
	for _, hit := range out.Hits {
		scores[hit.ID] = hit.Score
		for _, fieldFrags := range hit.Fragments {
			if len(fieldFrags) > 0 {
				frags[hit.ID] = strings.Join(fieldFrags, "...")
				break
			}
		}
	}
	return scores, frags, nil
}

// searchDense runs nearest-neighbor search on the named column and
// keeps candidates at or above the similarity threshold.
func (s *LocalStore) searchDense(dm *DenseMatch) map[string]float64 {
	col, ok := s.vectors[dm.Column]
	if !ok || col.graph.Len() == 0 {
		return nil
	}
	topN := dm.TopN
	if topN <= 0 {
		topN = 100
	}
	// over-fetch to cover lazily deleted keys
	nodes := col.graph.Search(dm.Vector, topN+topN/4+1)

	scores := make(map[string]float64)
	for _, node := range nodes {
		id, ok := col.keyMap[node.Key]
		if !ok {
			continue
		}
		sim := 1 - float64(col.graph.Distance(dm.Vector, node.Value))
		if sim < dm.SimilarityThreshold {
			continue
		}
		scores[id] = sim
		if len(scores) >= topN {
			break
		}
	}
	return scores
}

// scanOrdered serves requests without match expressions: a filtered
// scan sorted by the order spec.
func (s *LocalStore) scanOrdered(req *SearchRequest) (*SearchResult, error) {
	var ids []string
	for id, doc := range s.docs {
		if s.passesFilters(doc, req) {
			ids = append(ids, id)
		}
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := s.docs[ids[i]], s.docs[ids[j]]
		for _, spec := range req.OrderBy {
			c := compareValues(a[spec.Field], b[spec.Field])
			if c == 0 {
				continue
			}
			if spec.Desc {
				return c > 0
			}
			return c < 0
		}
		return ids[i] < ids[j]
	})

	res := &SearchResult{
		Total:        int64(len(ids)),
		Scores:       map[string]float64{},
		Highlights:   map[string]string{},
		Aggregations: s.aggregate(ids, req.AggFields),
	}
	page := paginate(ids, req.Offset, req.Limit)
	res.IDs = page
	res.Fields = s.collectFields(page, req.SelectFields)
	return res, nil
}

func (s *LocalStore) passesFilters(doc map[string]any, req *SearchRequest) bool {
	if len(req.KBIDs) > 0 {
		kb, _ := doc[FieldKBID].(string)
		found := false
		for _, want := range req.KBIDs {
			if kb == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return matchCondition(doc, req.Condition)
}

func (s *LocalStore) collectFields(ids []string, selectFields []string) map[string]map[string]any {
	out := make(map[string]map[string]any, len(ids))
	for _, id := range ids {
		doc, ok := s.docs[id]
		if !ok {
			continue
		}
		if len(selectFields) == 0 {
			out[id] = doc
			continue
		}
		picked := make(map[string]any, len(selectFields))
		for _, f := range selectFields {
			if v, ok := doc[f]; ok {
				picked[f] = v
			}
		}
		out[id] = picked
	}
	return out
}

// aggregate counts field values across every matched document, not
// just the returned page.
func (s *LocalStore) aggregate(ids []string, aggFields []string) map[string][]AggregationBucket {
	if len(aggFields) == 0 {
		return nil
	}
	out := make(map[string][]AggregationBucket, len(aggFields))
	for _, field := range aggFields {
		counts := make(map[string]int64)
		for _, id := range ids {
			doc, ok := s.docs[id]
			if !ok {
				continue
			}
			for _, v := range stringValues(doc[field]) {
				counts[v]++
			}
		}
		buckets := make([]AggregationBucket, 0, len(counts))
		for v, c := range counts {
			buckets = append(buckets, AggregationBucket{Value: v, Count: c})
		}
		sort.Slice(buckets, func(i, j int) bool {
			if buckets[i].Count != buckets[j].Count {
				return buckets[i].Count > buckets[j].Count
			}
			return buckets[i].Value < buckets[j].Value
		})
		out[field] = buckets
	}
	return out
}

// rankFeatureBoost adds static document boosts: pagerank plus any
// matching tag features.
func rankFeatureBoost(doc map[string]any, features map[string]float64) float64 {
	boost := toFloat(doc[FieldPageRank]) / 100
	if len(features) == 0 {
		return boost
	}
	tagFeas, _ := doc[FieldTagFeature].(map[string]float64)
	for tag, w := range features {
		if v, ok := tagFeas[tag]; ok {
			boost += w * v / 100
		}
	}
	return boost
}

func matchCondition(doc map[string]any, cond map[string]any) bool {
	for field, want := range cond {
		have := stringValues(doc[field])
		switch w := want.(type) {
		case string:
			if !containsString(have, w) {
				return false
			}
		case []string:
			any := false
			for _, ww := range w {
				if containsString(have, ww) {
					any = true
					break
				}
			}
			if !any {
				return false
			}
		case int:
			if toFloat(doc[field]) != float64(w) {
				return false
			}
		case float64:
			if toFloat(doc[field]) != w {
				return false
			}
		}
	}
	return true
}

func stringValues(v any) []string {
	switch x := v.(type) {
	case string:
		return []string{x}
	case []string:
		return x
	case []any:
		var out []string
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	}
	return 0
}

func toVector(v any) ([]float32, bool) {
	switch x := v.(type) {
	case []float32:
		return x, true
	case []float64:
		out := make([]float32, len(x))
		for i, f := range x {
			out[i] = float32(f)
		}
		return out, true
	}
	return nil, false
}

func compareValues(a, b any) int {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}
	fa, fb := toFloat(a), toFloat(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func paginate(ids []string, offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return nil
	}
	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return ids[offset:end]
}
