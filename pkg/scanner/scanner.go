// Package scanner implements the per-document evaluation pipeline: the
// group-level prefilter dispatch of §4.4 and the single-query scope
// gate / trigger pass / threshold / assembly pipeline of §4.5.
package scanner

import (
	"github.com/shaneisley/ieql/pkg/document"
	"github.com/shaneisley/ieql/pkg/optimizer"
	"github.com/shaneisley/ieql/pkg/output"
	"github.com/shaneisley/ieql/pkg/pattern"
	"github.com/shaneisley/ieql/pkg/query"
	"github.com/shaneisley/ieql/pkg/threshold"
)

// ScanGroup evaluates one compiled document against a compiled query
// group, returning the document's outputs in candidates-before-residuals
// order: prefilter candidates ascending by query index, then every
// always_run query in declaration order.
func ScanGroup(d *document.Compiled, g *optimizer.Group) output.Batch {
	var outputs []output.Output

	for _, q := range g.Candidates(d.Content(g.FeedChannel)) {
		if out, matched := ScanSingle(q, d); matched {
			outputs = append(outputs, out)
		}
	}
	for _, q := range g.AlwaysRun {
		if out, matched := ScanSingle(q, d); matched {
			outputs = append(outputs, out)
		}
	}

	return output.New(outputs)
}

// ScanSingle runs the full single-query evaluation pipeline: scope
// gate, trigger pass, threshold evaluation, output assembly. The second
// return value is false whenever the query produces no output for d
// (scope rejection, threshold false, or a dangling threshold reference,
// which is a silent non-match per the error handling policy).
func ScanSingle(q *query.Compiled, d *document.Compiled) (output.Output, bool) {
	if !q.Scope.Matches(d.URLOrEmpty()) {
		return output.Output{}, false
	}

	content := d.Content(q.Scope.Content)
	hits := make(map[string]bool, len(q.Triggers))
	var matches []pattern.Match
	for _, t := range q.Triggers {
		hit := t.QuickCheck(content)
		hits[t.ID] = hit
		if hit {
			if m := t.FullCheck(content); m != nil {
				matches = append(matches, *m)
			}
		}
	}

	does, err := threshold.Evaluate(q.Threshold, hits)
	if err != nil || !does {
		return output.Output{}, false
	}

	return output.Assemble(d, q, matches), true
}
