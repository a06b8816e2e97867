// Package search implements the hybrid retrieval pipeline: query
// construction, one combined lexical plus dense store search with a
// single relaxation retry, reranking within the first pages, and
// per-document aggregation.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/zhagnzhenfei/industry-assistant/internal/docstore"
	"github.com/zhagnzhenfei/industry-assistant/internal/embed"
	engerr "github.com/zhagnzhenfei/industry-assistant/internal/errors"
	"github.com/zhagnzhenfei/industry-assistant/internal/query"
	"github.com/zhagnzhenfei/industry-assistant/internal/rerank"
	"github.com/zhagnzhenfei/industry-assistant/internal/segment"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// defaultFields are the chunk fields returned when a request does not
// name its own.
var defaultFields = []string{
	docstore.FieldDocName,
	docstore.FieldContentTokens,
	docstore.FieldKBID,
	docstore.FieldImage,
	docstore.FieldTitleTokens,
	docstore.FieldImportantKwd,
	docstore.FieldPositions,
	docstore.FieldDocID,
	docstore.FieldQuestionTks,
	docstore.FieldAvailable,
	docstore.FieldContent,
	docstore.FieldPageRank,
	docstore.FieldTagFeature,
}

// Engine runs hybrid retrieval against a document store. It is
// stateless per call and safe for concurrent use.
type Engine struct {
	store    docstore.Store
	embedder embed.Embedder
	builder  *query.Builder
	seg      *segment.Segmenter
	reranker rerank.Reranker
	policy   Policy
	fusion   []float64
	logger   *slog.Logger
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithReranker sets an optional external reranker. When present it
// scores rerank-eligible pages; a failing call falls back to the
// local hybrid formula.
func WithReranker(r rerank.Reranker) EngineOption {
	return func(e *Engine) { e.reranker = r }
}

// WithPolicy overrides the relaxation thresholds.
func WithPolicy(p Policy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithFusionWeights overrides the lexical and dense fusion weights.
func WithFusionWeights(lexical, dense float64) EngineOption {
	return func(e *Engine) { e.fusion = []float64{lexical, dense} }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a retrieval engine. The store, embedder, query
// builder and segmenter are required.
func NewEngine(store docstore.Store, embedder embed.Embedder, builder *query.Builder,
	seg *segment.Segmenter, opts ...EngineOption) (*Engine, error) {

	if store == nil || embedder == nil || builder == nil || seg == nil {
		return nil, ErrNilDependency
	}
	e := &Engine{
		store:    store,
		embedder: embedder,
		builder:  builder,
		seg:      seg,
		policy:   DefaultPolicy(),
		fusion:   []float64{0.05, 0.95},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search runs one store search. With a question it issues the
// combined lexical, dense and fusion clauses and relaxes once on zero
// hits; without one it returns an ordered scan.
func (e *Engine) Search(ctx context.Context, p SearchParams) (*SearchOutcome, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.TopK <= 0 {
		p.TopK = 1024
	}
	if p.PageSize <= 0 {
		p.PageSize = p.TopK
	}
	if p.SimilarityFloor <= 0 {
		p.SimilarityFloor = e.policy.InitialSimilarityFloor
	}
	fields := p.Fields
	if len(fields) == 0 {
		fields = append([]string(nil), defaultFields...)
	}

	req := &docstore.SearchRequest{
		SelectFields: fields,
		Condition:    map[string]any{},
		Offset:       (p.Page - 1) * p.PageSize,
		Limit:        p.PageSize,
		Indexes:      p.Indexes,
		KBIDs:        p.KBIDs,
		AggFields:    []string{docstore.FieldDocName},
		RankFeature:  p.RankFeature,
	}
	if len(p.DocIDs) > 0 {
		req.Condition[docstore.FieldDocID] = p.DocIDs
	}

	if strings.TrimSpace(p.Question) == "" {
		return e.scan(ctx, p, req)
	}

	if p.Highlight {
		req.HighlightFields = []string{docstore.FieldContentTokens, docstore.FieldTitleTokens}
	}

	matchText, keywords := e.builder.Question(p.Question, e.policy.InitialMinMatch)
	qvec, err := e.embedder.Embed(ctx, p.Question)
	if err != nil {
		return nil, engerr.Wrap(engerr.CodeEmbedUnavailable, err)
	}
	vcol := docstore.VectorField(len(qvec))
	req.SelectFields = append(req.SelectFields, vcol)

	dense := &docstore.DenseMatch{
		Column:              vcol,
		Vector:              qvec,
		TopN:                p.TopK,
		SimilarityThreshold: p.SimilarityFloor,
	}
	fusion := &docstore.Fusion{Method: "weighted_sum", Weights: e.fusion}
	req.Matches = matchClauses(matchText, dense, fusion)

	res, err := e.store.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("search complete", "total", res.Total, "question", p.Question)

	for r := 0; r < e.policy.MaxRelaxations && res.Total == 0; r++ {
		relaxed, _ := e.builder.Question(p.Question, e.policy.RelaxedMinMatch)
		delete(req.Condition, docstore.FieldDocID)
		dense.SimilarityThreshold = e.policy.RelaxedSimilarityFloor
		req.Matches = matchClauses(relaxed, dense, fusion)

		res, err = e.store.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("relaxed search complete", "total", res.Total,
			"min_match", e.policy.RelaxedMinMatch,
			"similarity_floor", e.policy.RelaxedSimilarityFloor)
	}

	return &SearchOutcome{
		Total:        res.Total,
		IDs:          res.IDs,
		QueryVector:  qvec,
		Fields:       res.Fields,
		Highlights:   res.Highlights,
		Aggregations: res.Aggregations[docstore.FieldDocName],
		Keywords:     e.expandKeywords(keywords),
	}, nil
}

// scan serves a questionless request, ordered by document layout when
// sorting is requested.
func (e *Engine) scan(ctx context.Context, p SearchParams, req *docstore.SearchRequest) (*SearchOutcome, error) {
	if p.Sort {
		req.OrderBy = []docstore.OrderSpec{
			{Field: "page_num_int"},
			{Field: "top_int"},
			{Field: "create_timestamp_flt", Desc: true},
		}
	}
	res, err := e.store.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return &SearchOutcome{
		Total:        res.Total,
		IDs:          res.IDs,
		Fields:       res.Fields,
		Highlights:   res.Highlights,
		Aggregations: res.Aggregations[docstore.FieldDocName],
	}, nil
}

// expandKeywords adds fine-grained sub-terms of each keyword for
// highlighting, skipping single-rune fragments.
func (e *Engine) expandKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range keywords {
		add(k)
		for _, kk := range strings.Fields(e.seg.FineGrainedString(k)) {
			if utf8.RuneCountInString(kk) < 2 {
				continue
			}
			add(kk)
		}
	}
	return out
}

// Retrieval runs the full pipeline: search with relaxation, rerank
// within the first pages, threshold filter, paginate and aggregate
// per document. A store failure degrades to an empty page; an
// embedder failure is terminal.
func (e *Engine) Retrieval(ctx context.Context, req RetrievalRequest) (*RetrievalResult, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	rankFeature := req.RankFeature
	if rankFeature == nil {
		rankFeature = map[string]float64{docstore.FieldPageRank: 10}
	}

	sp := SearchParams{
		Question:        req.Question,
		Indexes:         req.Indexes,
		KBIDs:           req.KBIDs,
		DocIDs:          req.DocIDs,
		Page:            1,
		PageSize:        max(pageSize*rerankPageLimit, candidatePoolFloor),
		TopK:            req.TopK,
		SimilarityFloor: req.SimilarityThreshold,
		Highlight:       req.Highlight,
		RankFeature:     rankFeature,
	}
	if page > rerankPageLimit {
		sp.Page = page
		sp.PageSize = pageSize
	}

	sres, err := e.Search(ctx, sp)
	if err != nil {
		if code := engerr.GetCode(err); code == engerr.CodeSearchFailed || code == engerr.CodeStoreUnavailable {
			e.logger.Warn("store search failed, returning empty page", "error", err)
			return &RetrievalResult{}, nil
		}
		return nil, err
	}

	out := &RetrievalResult{Total: sres.Total}
	if len(sres.IDs) == 0 {
		return out, nil
	}

	var sim, tsim, vsim []float64
	var order []int
	if page <= rerankPageLimit {
		sim, tsim, vsim = e.rerankScores(ctx, req.Question, sres,
			1-req.VectorWeight, req.VectorWeight, rankFeature)
		order = window(argsortDesc(sim), (page-1)*pageSize, page*pageSize)
	} else {
		sim = ones(len(sres.IDs))
		tsim, vsim = sim, sim
		order = make([]int, len(sres.IDs))
		for i := range order {
			order[i] = i
		}
	}

	vcol := docstore.VectorField(len(sres.QueryVector))
	docCounts := map[string]*DocAgg{}
	for _, i := range order {
		if sim[i] < req.SimilarityThreshold {
			break
		}
		if len(out.Chunks) >= pageSize {
			if req.Aggregations {
				continue
			}
			break
		}
		id := sres.IDs[i]
		doc := sres.Fields[id]
		ck := Chunk{
			ID:               id,
			DocID:            fieldString(doc, docstore.FieldDocID),
			DocName:          fieldString(doc, docstore.FieldDocName),
			KBID:             fieldString(doc, docstore.FieldKBID),
			Content:          fieldString(doc, docstore.FieldContent),
			ContentTokens:    fieldString(doc, docstore.FieldContentTokens),
			ImportantKwd:     fieldStrings(doc, docstore.FieldImportantKwd),
			ImageID:          fieldString(doc, docstore.FieldImage),
			Positions:        fieldInts(doc, docstore.FieldPositions),
			Similarity:       sim[i],
			TermSimilarity:   tsim[i],
			VectorSimilarity: vsim[i],
			Vector:           fieldVector(doc, vcol, len(sres.QueryVector)),
		}
		if req.Highlight {
			if hl, ok := sres.Highlights[id]; ok {
				ck.Highlight = hl
			} else {
				ck.Highlight = ck.Content
			}
		}
		out.Chunks = append(out.Chunks, ck)

		agg, ok := docCounts[ck.DocName]
		if !ok {
			agg = &DocAgg{DocName: ck.DocName, DocID: ck.DocID}
			docCounts[ck.DocName] = agg
		}
		agg.Count++
	}

	for _, agg := range docCounts {
		out.DocAggs = append(out.DocAggs, *agg)
	}
	sort.Slice(out.DocAggs, func(i, j int) bool {
		if out.DocAggs[i].Count != out.DocAggs[j].Count {
			return out.DocAggs[i].Count > out.DocAggs[j].Count
		}
		return out.DocAggs[i].DocName < out.DocAggs[j].DocName
	})
	if len(out.Chunks) > pageSize {
		out.Chunks = out.Chunks[:pageSize]
	}
	return out, nil
}

// rerankScores scores candidates with the external model when one is
// configured, falling back to the local hybrid formula on failure.
func (e *Engine) rerankScores(ctx context.Context, question string, sres *SearchOutcome,
	tokenWeight, vectorWeight float64, rankFeature map[string]float64) (sim, tsim, vsim []float64) {

	rankFea := rankFeatureScores(rankFeature, sres)
	local := &localScorer{builder: e.builder}

	if e.reranker != nil {
		model := &modelScorer{builder: e.builder, reranker: e.reranker}
		sim, tsim, vsim, err := model.score(ctx, question, sres, tokenWeight, vectorWeight, rankFea)
		if err == nil {
			return sim, tsim, vsim
		}
		e.logger.Warn("external rerank failed, using local scoring", "error", err)
	}

	sim, tsim, vsim, _ = local.score(ctx, question, sres, tokenWeight, vectorWeight, rankFea)
	return sim, tsim, vsim
}

func matchClauses(mt *query.MatchText, dense *docstore.DenseMatch, fusion *docstore.Fusion) []any {
	if mt == nil {
		return []any{dense}
	}
	return append(textClause(mt), dense, fusion)
}

// textClause converts the query builder's match expression into the
// store clause form.
func textClause(mt *query.MatchText) []any {
	return []any{&docstore.TextMatch{
		Fields:             mt.Fields,
		Text:               mt.Text,
		TopN:               mt.TopN,
		MinimumShouldMatch: mt.MinimumShouldMatch,
	}}
}

func argsortDesc(vals []float64) []int {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return vals[idx[a]] > vals[idx[b]] })
	return idx
}

func window(idx []int, lo, hi int) []int {
	if lo < 0 {
		lo = 0
	}
	if lo >= len(idx) {
		return nil
	}
	if hi > len(idx) {
		hi = len(idx)
	}
	return idx[lo:hi]
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
