package ieqlconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithDefaults(t *testing.T) {
	c := LoadWithDefaults()
	if c.Workers != 8 {
		t.Fatalf("expected default workers 8, got %d", c.Workers)
	}
	if c.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", c.LogLevel)
	}
	if c.OutputFormat != "json" {
		t.Fatalf("expected default output format json, got %q", c.OutputFormat)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate cleanly: %v", err)
	}
}

func TestLoadWithPrecedenceConfigFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ieqlscan.toml")
	if err := os.WriteFile(path, []byte("workers = 32\nlog_level = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c, _, err := LoadWithPrecedence(path, nil, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Workers != 32 {
		t.Fatalf("expected config file to override workers to 32, got %d", c.Workers)
	}
	if c.LogLevel != "debug" {
		t.Fatalf("expected config file to override log level to debug, got %q", c.LogLevel)
	}
	if c.BatchSize != 64 {
		t.Fatalf("expected untouched batch_size to keep its default, got %d", c.BatchSize)
	}
}

func TestLoadWithPrecedenceEnvironmentOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ieqlscan.toml")
	if err := os.WriteFile(path, []byte("workers = 32\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	t.Setenv("IEQL_WORKERS", "64")

	c, _, err := LoadWithPrecedence(path, nil, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Workers != 64 {
		t.Fatalf("expected environment to override config file, got workers=%d", c.Workers)
	}
}

func TestLoadWithPrecedenceExplicitFlagOverridesEverything(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ieqlscan.toml")
	if err := os.WriteFile(path, []byte("workers = 32\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	t.Setenv("IEQL_WORKERS", "64")

	flags := &Config{Workers: 2}
	c, _, err := LoadWithPrecedence(path, flags, map[string]bool{"workers": true}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Workers != 2 {
		t.Fatalf("expected explicit CLI flag to win, got workers=%d", c.Workers)
	}
}

func TestLoadWithPrecedenceRecordsDebugInfo(t *testing.T) {
	flags := &Config{LogLevel: "warn"}
	_, debug, err := LoadWithPrecedence("", flags, map[string]bool{"log_level": true}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if debug == nil {
		t.Fatalf("expected debug info to be populated")
	}
	if debug.Sources["log_level"] != SourceCLIFlag {
		t.Fatalf("expected log_level to be sourced from CLI flag, got %v", debug.Sources["log_level"])
	}
	if debug.Sources["workers"] != SourceDefault {
		t.Fatalf("expected untouched workers to be sourced from default, got %v", debug.Sources["workers"])
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		c    Config
	}{
		{"zero workers", Config{Workers: 0, BatchSize: 1, LogLevel: "info", OutputFormat: "json"}},
		{"too many workers", Config{Workers: 20000, BatchSize: 1, LogLevel: "info", OutputFormat: "json"}},
		{"zero batch size", Config{Workers: 1, BatchSize: 0, LogLevel: "info", OutputFormat: "json"}},
		{"bad log level", Config{Workers: 1, BatchSize: 1, LogLevel: "verbose", OutputFormat: "json"}},
		{"bad output format", Config{Workers: 1, BatchSize: 1, LogLevel: "info", OutputFormat: "xml"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.c.Validate(); err == nil {
				t.Fatalf("expected a validation error")
			}
		})
	}
}

func TestFindConfigFilePrefersDotfile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ieqlscan.toml"), []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".ieqlscan.toml"), []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := FindConfigFile(dir); got != filepath.Join(dir, ".ieqlscan.toml") {
		t.Fatalf("expected dotfile to be preferred, got %q", got)
	}
}

func TestFindConfigFileReturnsEmptyWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	if got := FindConfigFile(dir); got != "" {
		t.Fatalf("expected no config file found, got %q", got)
	}
}
