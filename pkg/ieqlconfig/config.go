// Package ieqlconfig resolves CLI flag / environment / config-file /
// default configuration for the engine and its CLI driver, layering
// sources in increasing priority with debug-info tooling to explain
// where each resolved value came from.
package ieqlconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the resolved configuration for cmd/ieqlscan's scan and
// explain subcommands.
type Config struct {
	Workers      int      `mapstructure:"workers"`
	BatchSize    int      `mapstructure:"batch_size"`
	LogLevel     string   `mapstructure:"log_level"`
	QueryDirs    []string `mapstructure:"query_dirs"`
	OutputFormat string   `mapstructure:"output_format"`
	MetricsDB    string   `mapstructure:"metrics_db"`
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s value '%v': %s", e.Field, e.Value, e.Message)
}

// ConfigSource represents where a configuration value came from.
type ConfigSource int

const (
	SourceDefault ConfigSource = iota
	SourceConfigFile
	SourceEnvironment
	SourceCLIFlag
)

func (s ConfigSource) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceConfigFile:
		return "config file"
	case SourceEnvironment:
		return "environment variable"
	case SourceCLIFlag:
		return "CLI flag"
	default:
		return "unknown"
	}
}

// DebugInfo holds debugging information about configuration resolution,
// surfaced by the CLI's `--debug-config` flag.
type DebugInfo struct {
	Sources map[string]ConfigSource
	Values  map[string]interface{}
}

var configKeys = []string{
	"workers", "batch_size", "log_level", "query_dirs", "output_format", "metrics_db",
}

var envMappings = map[string]string{
	"IEQL_WORKERS":       "workers",
	"IEQL_BATCH_SIZE":    "batch_size",
	"IEQL_LOG_LEVEL":     "log_level",
	"IEQL_QUERY_DIRS":    "query_dirs",
	"IEQL_OUTPUT_FORMAT": "output_format",
	"IEQL_METRICS_DB":    "metrics_db",
}

// LoadWithPrecedence resolves a Config from, in increasing priority:
// built-in defaults, an optional TOML config file, IEQL_-prefixed
// environment variables, and explicitly-set CLI flags.
func LoadWithPrecedence(configFile string, flagConfig *Config, explicitFields map[string]bool, debug bool) (*Config, *DebugInfo, error) {
	var debugInfo *DebugInfo
	if debug {
		debugInfo = &DebugInfo{Sources: make(map[string]ConfigSource), Values: make(map[string]interface{})}
	}

	v := viper.New()
	setDefaults(v)
	if debug {
		recordDefaults(debugInfo)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, debugInfo, fmt.Errorf("failed to read config file: %w", err)
		}
		if debug {
			recordConfigFile(debugInfo, v)
		}
	}

	v.SetEnvPrefix("IEQL")
	v.AutomaticEnv()
	for envVar, key := range envMappings {
		v.BindEnv(key, envVar)
	}
	if debug {
		recordEnvironment(debugInfo)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, debugInfo, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if flagConfig != nil && explicitFields != nil {
		config = *config.mergeWithExplicitFlags(flagConfig, explicitFields)
		if debug {
			recordFlags(debugInfo, flagConfig, explicitFields)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, debugInfo, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, debugInfo, nil
}

// LoadWithDefaults returns a Config populated with built-in defaults
// only, useful for tests and for recording the default layer in
// DebugInfo.
func LoadWithDefaults() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 8)
	v.SetDefault("batch_size", 64)
	v.SetDefault("log_level", "info")
	v.SetDefault("query_dirs", []string{})
	v.SetDefault("output_format", "json")
	v.SetDefault("metrics_db", "")
}

// mergeWithExplicitFlags overlays flags onto c for every field
// explicitFields marks true, leaving the rest of c untouched. Explicit
// tracking (rather than "flag is non-zero") is required because a flag
// explicitly set to its zero value (an empty metrics_db path, or
// workers=0, which Validate then rejects) must still override a
// config-file value.
func (c *Config) mergeWithExplicitFlags(flags *Config, explicitFields map[string]bool) *Config {
	result := *c
	if explicitFields["workers"] {
		result.Workers = flags.Workers
	}
	if explicitFields["batch_size"] {
		result.BatchSize = flags.BatchSize
	}
	if explicitFields["log_level"] {
		result.LogLevel = flags.LogLevel
	}
	if explicitFields["query_dirs"] {
		result.QueryDirs = flags.QueryDirs
	}
	if explicitFields["output_format"] {
		result.OutputFormat = flags.OutputFormat
	}
	if explicitFields["metrics_db"] {
		result.MetricsDB = flags.MetricsDB
	}
	return &result
}

// FindConfigFile searches dir for a conventional ieqlscan config file.
func FindConfigFile(dir string) string {
	for _, name := range []string{".ieqlscan.toml", "ieqlscan.toml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks the resolved configuration, returning every violation
// found rather than failing on the first.
func (c *Config) Validate() error {
	var issues []ValidationError

	if c.Workers <= 0 {
		issues = append(issues, ValidationError{Field: "workers", Value: c.Workers, Message: "must be greater than 0"})
	}
	if c.Workers > 10_000 {
		issues = append(issues, ValidationError{Field: "workers", Value: c.Workers, Message: "must be 10000 or less"})
	}
	if c.BatchSize <= 0 {
		issues = append(issues, ValidationError{Field: "batch_size", Value: c.BatchSize, Message: "must be greater than 0"})
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, ValidationError{Field: "log_level", Value: c.LogLevel, Message: "must be one of debug, info, warn, error"})
	}
	switch c.OutputFormat {
	case "json", "text":
	default:
		issues = append(issues, ValidationError{Field: "output_format", Value: c.OutputFormat, Message: "must be one of json, text"})
	}

	if len(issues) == 0 {
		return nil
	}
	messages := make([]string, len(issues))
	for i, issue := range issues {
		messages[i] = issue.Error()
	}
	return fmt.Errorf("validation errors:\n  - %s", strings.Join(messages, "\n  - "))
}

func recordDefaults(debug *DebugInfo) {
	defaults := LoadWithDefaults()
	for _, key := range configKeys {
		debug.Sources[key] = SourceDefault
		debug.Values[key] = fieldByKey(defaults, key)
	}
}

func recordConfigFile(debug *DebugInfo, v *viper.Viper) {
	for _, key := range configKeys {
		if v.IsSet(key) {
			debug.Sources[key] = SourceConfigFile
			debug.Values[key] = v.Get(key)
		}
	}
}

func recordEnvironment(debug *DebugInfo) {
	for envVar, key := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			debug.Sources[key] = SourceEnvironment
			debug.Values[key] = value
		}
	}
}

func recordFlags(debug *DebugInfo, flags *Config, explicitFields map[string]bool) {
	for _, key := range configKeys {
		if explicitFields[key] {
			debug.Sources[key] = SourceCLIFlag
			debug.Values[key] = fieldByKey(flags, key)
		}
	}
}

func fieldByKey(c *Config, key string) interface{} {
	switch key {
	case "workers":
		return c.Workers
	case "batch_size":
		return c.BatchSize
	case "log_level":
		return c.LogLevel
	case "query_dirs":
		return c.QueryDirs
	case "output_format":
		return c.OutputFormat
	case "metrics_db":
		return c.MetricsDB
	default:
		return nil
	}
}

// PrintDebugInfo prints configuration resolution debug information.
func (debug *DebugInfo) PrintDebugInfo() {
	fmt.Println("Configuration Resolution Debug Info:")
	fmt.Println("===================================")
	for _, key := range configKeys {
		fmt.Printf("%-15s: %-20v (from %s)\n", key, debug.Values[key], debug.Sources[key])
	}
}
