package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaneisley/ieql/pkg/ieqlconfig"
	"github.com/shaneisley/ieql/pkg/ieqllog"
)

var (
	flagConfig  ieqlconfig.Config
	configFile  string
	debugConfig bool
)

var rootCmd = &cobra.Command{
	Use:   "ieqlscan",
	Short: "Compile and run IEQL content-monitoring queries against documents",
	Long: `ieqlscan loads IEQL queries, compiles them into a shared multi-query
optimizer, and scans documents against them.

Available commands:
  validate   Load and validate query files, reporting issues
  scan       Scan documents against a compiled query group
  explain    Show which queries share the prefilter and which run unconditionally`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debugConfig, "debug-config", false, "Print configuration resolution debug information")
	rootCmd.PersistentFlags().IntVar(&flagConfig.Workers, "workers", 0, "Number of scan workers")
	rootCmd.PersistentFlags().IntVar(&flagConfig.BatchSize, "batch-size", 0, "Documents submitted to the engine per batch")
	rootCmd.PersistentFlags().StringVar(&flagConfig.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagConfig.OutputFormat, "output-format", "", "Output format for scan results (json, text)")
	rootCmd.PersistentFlags().StringVar(&flagConfig.MetricsDB, "metrics-db", "", "SQLite path to persist scan metrics snapshots (empty disables persistence)")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newExplainCommand())
}

// explicitFlagNames is used by loadConfiguration to track which
// persistent flags the caller actually set, so the precedence layer
// can distinguish "flag set to its zero value" from "flag not set".
var explicitFlagNames = []string{"workers", "batch-size", "log-level", "output-format", "metrics-db"}

var explicitFieldByFlag = map[string]string{
	"workers":       "workers",
	"batch-size":    "batch_size",
	"log-level":     "log_level",
	"output-format": "output_format",
	"metrics-db":    "metrics_db",
}

// loadConfiguration resolves the effective Config for cmd, printing
// debug info when --debug-config is set.
func loadConfiguration(cmd *cobra.Command) (*ieqlconfig.Config, error) {
	configPath := configFile
	if configPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			if found := ieqlconfig.FindConfigFile(cwd); found != "" {
				configPath = found
			}
		}
	}

	var effectiveFlagConfig *ieqlconfig.Config
	var explicitFields map[string]bool
	for _, flagName := range explicitFlagNames {
		if cmd.Flags().Changed(flagName) {
			if explicitFields == nil {
				explicitFields = make(map[string]bool)
				effectiveFlagConfig = &flagConfig
			}
			explicitFields[explicitFieldByFlag[flagName]] = true
		}
	}

	cfg, debugInfo, err := ieqlconfig.LoadWithPrecedence(configPath, effectiveFlagConfig, explicitFields, debugConfig)
	if err != nil {
		return nil, err
	}

	if debugConfig && debugInfo != nil {
		debugInfo.PrintDebugInfo()
		fmt.Println()
	}

	return cfg, nil
}

func loggerFor(component string, cfg *ieqlconfig.Config) *ieqllog.Logger {
	return ieqllog.New(component, ieqllog.Level(cfg.LogLevel))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
