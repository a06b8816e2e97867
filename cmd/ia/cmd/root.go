// Package cmd provides the CLI commands for the retrieval engine.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhagnzhenfei/industry-assistant/internal/config"
	"github.com/zhagnzhenfei/industry-assistant/internal/logging"
	"github.com/zhagnzhenfei/industry-assistant/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the ia CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ia",
		Short: "Hybrid retrieval engine for bilingual document search",
		Long: `ia runs hybrid retrieval (full-text + dense vector) over document
chunks with CJK-aware segmentation, term weighting and synonym
expansion.

Point it at a JSONL chunk corpus and ask questions:

  ia search --chunks corpus.jsonl "数据分析的结果"
  ia tokenize "这周日你有空吗"`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("ia version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default .industry-assistant.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newTokenizeCmd())
	cmd.AddCommand(newTagsCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging(*cobra.Command, []string) error {
	cfg := logging.DefaultConfig()
	cfg.WriteToStderr = false
	if debugMode {
		cfg.Level = "debug"
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		// Logging must never block the command itself.
		fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		return nil
	}
	slog.SetDefault(logger)
	loggingCleanup = cleanup
	return nil
}

// loadConfig loads the effective configuration for the current
// directory, or the explicit --config file when given.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Load(dir)
}
