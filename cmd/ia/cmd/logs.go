package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/zhagnzhenfei/industry-assistant/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		file    string
		lines   int
		follow  bool
		level   string
		grep    string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the engine log",
		Long: `Logs tails the engine log file. By default it shows the last 50
entries; with -f it keeps following new ones. Entries can be filtered
by level and by a regular expression over the raw line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := logging.FindLogFile(file)
			if err != nil {
				return err
			}

			vcfg := logging.ViewerConfig{Level: level, NoColor: noColor}
			if grep != "" {
				re, err := regexp.Compile(grep)
				if err != nil {
					return fmt.Errorf("invalid --grep pattern: %w", err)
				}
				vcfg.Pattern = re
			}
			viewer := logging.NewViewer(vcfg, cmd.OutOrStdout())

			entries, err := viewer.Tail(path, lines)
			if err != nil {
				return err
			}
			viewer.Print(entries)

			if !follow {
				return nil
			}
			ch := make(chan logging.LogEntry, 64)
			go func() {
				for entry := range ch {
					fmt.Fprintln(cmd.OutOrStdout(), viewer.FormatEntry(entry))
				}
			}()
			return viewer.Follow(cmd.Context(), path, ch)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "log file path (default is the engine log)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of entries to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow the log for new entries")
	cmd.Flags().StringVar(&level, "level", "", "minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&grep, "grep", "", "only show lines matching this regexp")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}
