package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newTagsCmd() *cobra.Command {
	var (
		chunksPath string
		index      string
		kbIDs      []string
		question   string
		topN       int
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "tags [flags]",
		Short: "Inspect corpus tag frequencies and query tag affinity",
		Long: `Tags aggregates the tag vocabulary of an indexed corpus. Without a
question it prints each tag's smoothed share of the corpus. With
--question it scores the question against the tag corpus the way
retrieval rank features do.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			parts, err := buildEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer parts.cleanup()

			if chunksPath == "" {
				return fmt.Errorf("--chunks is required")
			}
			if _, err := parts.loadChunks(ctx, chunksPath, index); err != nil {
				return err
			}

			indexes := []string{index}
			portions, err := parts.engine.AllTagsInPortion(ctx, indexes, kbIDs)
			if err != nil {
				return err
			}
			if question != "" {
				scores, err := parts.engine.TagQuery(ctx, question, indexes, kbIDs, portions, topN)
				if err != nil {
					return err
				}
				return printTagScores(cmd, scores, jsonOut)
			}
			return printTagPortions(cmd, portions, jsonOut)
		},
	}

	cmd.Flags().StringVar(&chunksPath, "chunks", "", "JSONL corpus file to index")
	cmd.Flags().StringVar(&index, "index", "default", "index name")
	cmd.Flags().StringSliceVar(&kbIDs, "kb", nil, "restrict to knowledge base ids")
	cmd.Flags().StringVar(&question, "question", "", "score this question against the tag corpus")
	cmd.Flags().IntVar(&topN, "top", 3, "number of tags to keep for a question")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON instead of text")

	return cmd
}

func printTagScores(cmd *cobra.Command, scores map[string]float64, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(scores)
	}
	type kv struct {
		tag   string
		score float64
	}
	rows := make([]kv, 0, len(scores))
	for t, s := range scores {
		rows = append(rows, kv{t, s})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].tag < rows[j].tag
	})
	for _, r := range rows {
		fmt.Fprintf(cmd.OutOrStdout(), "%8.1f  %s\n", r.score, r.tag)
	}
	return nil
}

func printTagPortions(cmd *cobra.Command, portions map[string]float64, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(portions)
	}
	type kv struct {
		tag     string
		portion float64
	}
	rows := make([]kv, 0, len(portions))
	for t, p := range portions {
		rows = append(rows, kv{t, p})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].portion != rows[j].portion {
			return rows[i].portion > rows[j].portion
		}
		return rows[i].tag < rows[j].tag
	})
	for _, r := range rows {
		fmt.Fprintf(cmd.OutOrStdout(), "%.6f  %s\n", r.portion, r.tag)
	}
	return nil
}
