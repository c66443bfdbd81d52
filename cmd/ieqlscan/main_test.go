package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/shaneisley/ieql/pkg/ieqlconfig"
)

// buildTestRootCommand assembles a fresh root command wired the same
// way main's init() wires rootCmd. A fresh *cobra.Command is built per
// test so each gets its own FlagSet: reusing the package's real
// rootCmd across tests would leak "Changed" flag state between cases.
func buildTestRootCommand() *cobra.Command {
	flagConfig = ieqlconfig.Config{}
	configFile = ""
	debugConfig = false

	root := &cobra.Command{Use: "ieqlscan"}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")
	root.PersistentFlags().BoolVar(&debugConfig, "debug-config", false, "Print configuration resolution debug information")
	root.PersistentFlags().IntVar(&flagConfig.Workers, "workers", 0, "Number of scan workers")
	root.PersistentFlags().IntVar(&flagConfig.BatchSize, "batch-size", 0, "Documents submitted to the engine per batch")
	root.PersistentFlags().StringVar(&flagConfig.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagConfig.OutputFormat, "output-format", "", "Output format for scan results (json, text)")
	root.PersistentFlags().StringVar(&flagConfig.MetricsDB, "metrics-db", "", "SQLite path to persist scan metrics snapshots (empty disables persistence)")

	root.AddCommand(newValidateCommand())
	root.AddCommand(newScanCommand())
	root.AddCommand(newExplainCommand())
	return root
}

func TestLoadConfigurationFallsBackToDefaultsWithNoFlagsSet(t *testing.T) {
	root := buildTestRootCommand()
	root.SetArgs([]string{"explain", t.TempDir()})

	err := root.Execute()
	require.NoError(t, err)
}

func TestLoadConfigurationRejectsAnOutOfRangeWorkersFlag(t *testing.T) {
	root := buildTestRootCommand()
	dir := t.TempDir()
	writeQueryFile(t, dir, "foo.ieql.yaml", validQueryYAML)
	docPath := filepath.Join(dir, "doc.html")
	require.NoError(t, os.WriteFile(docPath, []byte("foo"), 0o644))

	root.SetArgs([]string{"--workers", "0", "scan", dir, docPath})

	err := root.Execute()
	require.Error(t, err)
}

func TestLoadConfigurationAcceptsAnExplicitWorkersFlagOverride(t *testing.T) {
	root := buildTestRootCommand()
	dir := t.TempDir()
	writeQueryFile(t, dir, "foo.ieql.yaml", validQueryYAML)
	docPath := filepath.Join(dir, "doc.html")
	require.NoError(t, os.WriteFile(docPath, []byte("<html><body>foo bar</body></html>"), 0o644))

	root.SetArgs([]string{"--workers", "2", "--output-format", "text", "scan", dir, docPath})

	err := root.Execute()
	require.NoError(t, err)
}
