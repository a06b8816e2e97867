package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhagnzhenfei/industry-assistant/internal/segment"
	"github.com/zhagnzhenfei/industry-assistant/internal/termweight"
)

func newTokenizeCmd() *cobra.Command {
	var (
		fine    bool
		weights bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "tokenize <text>",
		Short: "Segment text and show term weights",
		Long: `Tokenize runs the mixed Chinese and English segmenter over the input
and prints the resulting terms. With --fine it also shows the
fine-grained sub-terms, and with --weights the normalized importance
each term would carry in a query.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seg := segment.Default()
			text := args[0]
			tokens := seg.Tokenize(text)

			type termInfo struct {
				Term   string   `json:"term"`
				Fine   []string `json:"fine,omitempty"`
				Weight float64  `json:"weight,omitempty"`
			}
			infos := make([]termInfo, len(tokens))
			for i, tk := range tokens {
				infos[i] = termInfo{Term: tk}
				if fine {
					infos[i].Fine = seg.FineGrained([]string{tk})
				}
			}
			if weights {
				tw, err := termweight.New(seg)
				if err != nil {
					return err
				}
				for i, t := range tw.Weights(tokens, false) {
					if i < len(infos) {
						infos[i].Weight = t.Weight
					}
				}
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s", info.Term)
				if weights {
					fmt.Fprintf(cmd.OutOrStdout(), "\t%.4f", info.Weight)
				}
				if fine && len(info.Fine) > 1 {
					fmt.Fprintf(cmd.OutOrStdout(), "\t%v", info.Fine)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fine, "fine", false, "show fine-grained sub-terms")
	cmd.Flags().BoolVar(&weights, "weights", false, "show normalized term weights")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON instead of text")

	return cmd
}
