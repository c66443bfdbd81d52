package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaneisley/ieql/pkg/document"
	"github.com/shaneisley/ieql/pkg/engine"
	"github.com/shaneisley/ieql/pkg/ieqllog"
	"github.com/shaneisley/ieql/pkg/loader"
	"github.com/shaneisley/ieql/pkg/metrics"
	"github.com/shaneisley/ieql/pkg/optimizer"
	"github.com/shaneisley/ieql/pkg/output"
	"github.com/shaneisley/ieql/pkg/query"
	"github.com/shaneisley/ieql/pkg/store"
)

// newValidateCommand builds `ieqlscan validate <path>`.
func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Load and validate query files, printing every issue found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}
			log := loggerFor("validate", cfg)

			queries, err := loader.LoadAll(args[0], log)
			if err != nil {
				return fmt.Errorf("loading queries: %w", err)
			}

			blocking := false
			for _, q := range queries {
				id := "<unnamed>"
				if q.ID != nil {
					id = *q.ID
				}
				issues := query.Validate(q)
				if len(issues) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", id)
					continue
				}
				for _, issue := range issues {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, issue.Error())
				}
				if query.HasBlockingIssues(issues) {
					blocking = true
				}
			}

			if blocking {
				return fmt.Errorf("one or more queries has a blocking issue")
			}
			return nil
		},
	}
}

// newExplainCommand builds `ieqlscan explain <queries-dir>`.
func newExplainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <queries-dir>",
		Short: "Show which queries join the shared prefilter and which run unconditionally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}
			log := loggerFor("explain", cfg)

			compiled, err := compileQueries(args[0], log)
			if err != nil {
				return err
			}

			for _, placement := range optimizer.Explain(compiled) {
				id := "<unnamed>"
				if placement.Query.ID != nil {
					id = *placement.Query.ID
				}
				route := "always_run"
				if placement.Candidate {
					route = "candidate"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", id, route, placement.Reason)
			}
			return nil
		},
	}
}

// newScanCommand builds `ieqlscan scan <queries-dir> <documents...>`.
func newScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <queries-dir> <documents...>",
		Short: "Compile a query group and scan documents against it, printing matches",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}
			log := loggerFor("scan", cfg)

			group, err := compileGroup(args[0], log)
			if err != nil {
				return err
			}

			run := metrics.New(time.Now())

			hooks := engine.Hooks{
				OnDocumentProcessed: func() { run.RecordDocument(0) },
				OnDocumentLoadFailed: func(_ engine.Reference, _ error) {
					run.RecordError(metrics.ErrorDocumentLoad)
				},
				OnDocumentCompileFailed: func(_ engine.Reference, _ error) {
					run.RecordError(metrics.ErrorDocumentCompile)
				},
			}
			eng := engine.New(group, cfg.Workers, engine.FileLoader{}, log, cfg.BatchSize, hooks)

			docPaths := args[1:]

			done := make(chan error, 1)
			go func() {
				done <- submitInBatches(eng, docPaths, cfg.BatchSize)
			}()

			jsonOut := cfg.OutputFormat != "text"
			for batch, ok := eng.NextOutput(); ok; batch, ok = eng.NextOutput() {
				for _, out := range batch.Outputs {
					run.RecordMatches(1)
					printOutput(cmd.OutOrStdout(), out, jsonOut)
				}
			}

			if submitErr := <-done; submitErr != nil {
				return submitErr
			}

			run.Finish(time.Now())
			snap := run.Snapshot(time.Now())

			if cfg.MetricsDB != "" {
				st, err := store.Open(cfg.MetricsDB)
				if err != nil {
					log.Error("unable to open metrics store", "error", err.Error())
				} else {
					defer st.Close()
					if err := st.Record(snap, time.Now()); err != nil {
						log.Error("unable to record metrics snapshot", "error", err.Error())
					}
				}
			}

			fmt.Fprintf(os.Stderr, "documents processed=%d skipped=%d matches=%d duration=%.3fs\n",
				snap.DocumentsProcessed, snap.DocumentsSkipped, snap.MatchesProduced, snap.DurationSeconds)

			return nil
		},
	}
}

// submitInBatches groups docPaths into engine.Batch-sized chunks (one
// path per Reference, deferring resolution to the worker) and submits
// them in order, then shuts the engine down once every batch has been
// handed off.
func submitInBatches(eng *engine.Engine, docPaths []string, batchSize int) error {
	if batchSize < 1 {
		batchSize = 1
	}
	defer eng.Shutdown()

	var current engine.Batch
	flush := func() error {
		if len(current) == 0 {
			return nil
		}
		err := eng.Submit(current)
		current = nil
		return err
	}

	for _, path := range docPaths {
		if path == "-" {
			if err := flush(); err != nil {
				return err
			}
			if err := submitStdin(eng); err != nil {
				return err
			}
			continue
		}
		current = append(current, engine.Unpopulated(path))
		if len(current) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// submitStdin reads one document's raw bytes from standard input and
// submits it as a single-item batch.
func submitStdin(eng *engine.Engine) error {
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	doc := document.Document{Data: data}
	return eng.Submit(engine.Batch{engine.Populated(doc)})
}

func printOutput(w io.Writer, out output.Output, jsonOut bool) {
	if jsonOut {
		data, err := out.MarshalJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to marshal output: %v\n", err)
			return
		}
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintln(w, out.String())
}

// compileQueries loads and compiles every query beneath dir, skipping
// (and logging) any that fails validation rather than aborting the
// whole run, matching the per-document error isolation policy applied
// to query loading.
func compileQueries(dir string, log *ieqllog.Logger) ([]*query.Compiled, error) {
	raw, err := loader.LoadAll(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("loading queries: %w", err)
	}

	var compiled []*query.Compiled
	for _, q := range raw {
		id := "<unnamed>"
		if q.ID != nil {
			id = *q.ID
		}
		issues := query.Validate(q)
		if query.HasBlockingIssues(issues) {
			if log != nil {
				for _, issue := range issues {
					log.LogQueryRejected(id, issue)
				}
			}
			continue
		}
		cq, err := query.Compile(q)
		if err != nil {
			if log != nil {
				log.LogQueryRejected(id, err)
			}
			continue
		}
		compiled = append(compiled, cq)
	}
	return compiled, nil
}

func compileGroup(dir string, log *ieqllog.Logger) (*optimizer.Group, error) {
	compiled, err := compileQueries(dir, log)
	if err != nil {
		return nil, err
	}
	group, err := optimizer.Compile(compiled)
	if err != nil {
		return nil, fmt.Errorf("compiling query group: %w", err)
	}
	return group, nil
}
