package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhagnzhenfei/industry-assistant/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		chunksPath string
		index      string
		kbIDs      []string
		docIDs     []string
		page       int
		pageSize   int
		topK       int
		threshold  float64
		vecWeight  float64
		highlight  bool
		aggs       bool
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "search [flags] <question>",
		Short: "Run a hybrid retrieval query over a chunk corpus",
		Long: `Search indexes a JSONL chunk corpus, then runs the full two-stage
retrieval pipeline: bilingual query construction, fused lexical and
dense matching, and similarity reranking.

Each line of the chunks file is one document:

  {"id":"c1","doc_id":"d1","doc_name":"report.md","kb_id":"kb1","title":"...","content":"..."}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if threshold >= 0 {
				cfg.Search.SimilarityThreshold = threshold
			}
			if vecWeight >= 0 {
				cfg.Search.VectorWeight = vecWeight
			}
			if pageSize == 0 {
				pageSize = cfg.Search.PageSize
			}
			if topK == 0 {
				topK = cfg.Search.TopK
			}

			ctx := cmd.Context()
			parts, err := buildEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer parts.cleanup()

			if chunksPath != "" {
				n, err := parts.loadChunks(ctx, chunksPath, index)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "indexed %d chunks from %s\n", n, chunksPath)
			}

			req := search.RetrievalRequest{
				Question:            args[0],
				Indexes:             []string{index},
				KBIDs:               kbIDs,
				DocIDs:              docIDs,
				Page:                page,
				PageSize:            pageSize,
				TopK:                topK,
				SimilarityThreshold: cfg.Search.SimilarityThreshold,
				VectorWeight:        cfg.Search.VectorWeight,
				Aggregations:        aggs,
				Highlight:           highlight,
			}
			res, err := parts.engine.Retrieval(ctx, req)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&chunksPath, "chunks", "", "JSONL corpus file to index before searching")
	cmd.Flags().StringVar(&index, "index", "default", "index name")
	cmd.Flags().StringSliceVar(&kbIDs, "kb", nil, "restrict to knowledge base ids")
	cmd.Flags().StringSliceVar(&docIDs, "doc", nil, "restrict to document ids")
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "results per page (0 uses configured default)")
	cmd.Flags().IntVar(&topK, "top-k", 0, "dense candidate pool size (0 uses configured default)")
	cmd.Flags().Float64Var(&threshold, "threshold", -1, "similarity cutoff (-1 uses configured default)")
	cmd.Flags().Float64Var(&vecWeight, "vector-weight", -1, "vector share of blended similarity (-1 uses configured default)")
	cmd.Flags().BoolVar(&highlight, "highlight", false, "include highlighted snippets")
	cmd.Flags().BoolVar(&aggs, "aggs", true, "include per-document hit counts")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON instead of text")

	return cmd
}

func printResult(cmd *cobra.Command, res *search.RetrievalResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "total: %d\n", res.Total)
	for i, c := range res.Chunks {
		fmt.Fprintf(out, "\n%2d. %s  (doc: %s, sim %.4f = term %.4f / vec %.4f)\n",
			i+1, c.ID, c.DocName, c.Similarity, c.TermSimilarity, c.VectorSimilarity)
		text := c.Content
		if c.Highlight != "" {
			text = c.Highlight
		}
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(text, "\n", " "))
	}
	if len(res.DocAggs) > 0 {
		fmt.Fprintf(out, "\ndocuments:\n")
		for _, a := range res.DocAggs {
			fmt.Fprintf(out, "  %4d  %s\n", a.Count, a.DocName)
		}
	}
}
