// Package optimizer builds CompiledQueryGroup, the multi-query
// optimization that replaces "run every trigger of every query on every
// document" with one shared multi-pattern prefilter plus a residual
// list of queries that cannot be safely prefiltered.
package optimizer

import (
	"fmt"

	"github.com/shaneisley/ieql/pkg/pattern"
	"github.com/shaneisley/ieql/pkg/query"
	"github.com/shaneisley/ieql/pkg/scope"
	"github.com/shaneisley/ieql/pkg/threshold"
)

// FeedChannel is the single content channel fed to the shared matcher.
// Fixed to scope.Text, matching the reference implementation's choice
// (§9 open question 3); a query whose own scope.Content differs cannot
// use the prefilter and is routed to AlwaysRun.
const FeedChannel = scope.Text

// CompileError reports that a group's shared matcher could not be
// built. Compilation of a group is all-or-nothing: a single bad
// pattern rejects the whole group rather than partially compiling it.
type CompileError struct {
	Reason string
}

func (e *CompileError) Error() string {
	return e.Reason
}

// Group is a CompiledQueryGroup: a shared multi-pattern matcher, the
// mapping from a fired pattern back to the query it belongs to, and the
// residual queries that must run unconditionally on every document.
type Group struct {
	Queries         []*query.Compiled
	matcher         setMatcher
	patternOwnerIdx []int // matcher pattern index -> index into Queries
	AlwaysRun       []*query.Compiled
	FeedChannel     scope.Content
}

// participant is one trigger pattern entered into the shared matcher,
// tagged with the owning query's index.
type participant struct {
	pattern pattern.Pattern
	queryIx int
}

// Compile partitions compiled queries into the prefilterable set and
// always_run, builds the shared matcher over every participating
// trigger of the prefilterable set, and returns the assembled Group.
//
// A query is routed to always_run when it is inversion-tainted (its
// threshold can match with no trigger firing) or when its scope's
// content channel differs from FeedChannel, since the shared matcher
// only ever sees FeedChannel's content.
func Compile(queries []*query.Compiled) (*Group, error) {
	g := &Group{Queries: queries, FeedChannel: FeedChannel}

	var participants []participant
	for qi, q := range queries {
		if threshold.IsInversionTainted(q.Threshold) || q.Scope.Content != FeedChannel {
			g.AlwaysRun = append(g.AlwaysRun, q)
			continue
		}

		referenced := make(map[string]bool)
		for _, id := range threshold.TriggerIDs(q.Threshold) {
			referenced[id] = true
		}
		participated := false
		for _, t := range q.Triggers {
			if !referenced[t.ID] {
				continue
			}
			participants = append(participants, participant{pattern: t.Pattern.Original(), queryIx: qi})
			participated = true
		}
		if !participated {
			// Every TriggerRef is dangling: the threshold can never see
			// a true trigger via the prefilter, but it is not tainted,
			// so it still belongs to the candidate path with no
			// participating patterns of its own; routing it to
			// always_run keeps the prefilter sound without losing the
			// query (its threshold will simply evaluate against an
			// empty hit map and fail with EvalError, a silent no-match
			// per §7).
			g.AlwaysRun = append(g.AlwaysRun, q)
		}
	}

	patterns := make([]pattern.Pattern, len(participants))
	owners := make([]int, len(participants))
	for i, p := range participants {
		patterns[i] = p.pattern
		owners[i] = p.queryIx
	}

	matcher, err := buildSetMatcher(patterns)
	if err != nil {
		return nil, &CompileError{Reason: fmt.Sprintf("unable to compile master regex set: %v", err)}
	}
	g.matcher = matcher
	g.patternOwnerIdx = owners

	return g, nil
}

// Candidates returns, in ascending query-index order, the queries whose
// prefilter signalled a possible hit against content (which must be
// content(FeedChannel) of the document being scanned).
func (g *Group) Candidates(content string) []*query.Compiled {
	fired := g.matcher.findOwners(content)
	if len(fired) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(fired))
	var idxs []int
	for _, patternIdx := range fired {
		qi := g.patternOwnerIdx[patternIdx]
		if _, ok := seen[qi]; ok {
			continue
		}
		seen[qi] = struct{}{}
		idxs = append(idxs, qi)
	}

	// Sort ascending by query index (§4.4: "order: ascending by index").
	for i := 1; i < len(idxs); i++ {
		for j := i; j > 0 && idxs[j-1] > idxs[j]; j-- {
			idxs[j-1], idxs[j] = idxs[j], idxs[j-1]
		}
	}

	out := make([]*query.Compiled, len(idxs))
	for i, qi := range idxs {
		out[i] = g.Queries[qi]
	}
	return out
}

// Placement is one query's prefilter-eligibility diagnosis, the
// `explain` subcommand's unit of output.
type Placement struct {
	Query     *query.Compiled
	Candidate bool // false means the query runs on every document (AlwaysRun)
	Reason    string
}

// Explain classifies every query in queries the same way Compile does,
// without building a shared matcher, for the CLI's diagnostic surface
// over this package's routing policy.
func Explain(queries []*query.Compiled) []Placement {
	placements := make([]Placement, 0, len(queries))
	for _, q := range queries {
		switch {
		case threshold.IsInversionTainted(q.Threshold):
			placements = append(placements, Placement{Query: q, Reason: "inversion-tainted: threshold can match with no trigger firing"})
		case q.Scope.Content != FeedChannel:
			placements = append(placements, Placement{Query: q, Reason: fmt.Sprintf("scope content channel %q differs from the shared matcher's feed channel", q.Scope.Content)})
		default:
			referenced := make(map[string]bool)
			for _, id := range threshold.TriggerIDs(q.Threshold) {
				referenced[id] = true
			}
			participates := false
			for _, t := range q.Triggers {
				if referenced[t.ID] {
					participates = true
					break
				}
			}
			if participates {
				placements = append(placements, Placement{Query: q, Candidate: true, Reason: "participates in the shared matcher"})
			} else {
				placements = append(placements, Placement{Query: q, Reason: "every threshold reference is a dangling trigger id; no pattern participates"})
			}
		}
	}
	return placements
}
