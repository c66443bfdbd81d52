// Package query implements the Query aggregate: the triggers, scope,
// threshold, and response that together describe one content-monitoring
// rule, plus its compiled and validated forms.
package query

import (
	"fmt"

	"github.com/shaneisley/ieql/pkg/response"
	"github.com/shaneisley/ieql/pkg/scope"
	"github.com/shaneisley/ieql/pkg/threshold"
	"github.com/shaneisley/ieql/pkg/trigger"
)

// Query is the loader-constructed, uncompiled form of one rule. Once
// validated and compiled it is treated as immutable and safe to share
// across worker goroutines.
type Query struct {
	ID        *string             `yaml:"id,omitempty"`
	Response  response.Response   `yaml:"response"`
	Scope     scope.Scope         `yaml:"scope"`
	Threshold threshold.Threshold `yaml:"threshold"`
	Triggers  []trigger.Trigger   `yaml:"triggers"`
}

// Compiled is the compiled counterpart of Query: every pattern
// (scope + triggers) is pre-built; Response and Threshold are copied
// by value since they carry no compiled state of their own.
type Compiled struct {
	ID        *string
	Response  response.Response
	Scope     *scope.Compiled
	Threshold threshold.Threshold
	Triggers  []*trigger.Compiled
}

// Severity distinguishes advisory from blocking validation issues.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Issue is one problem found by Validate.
type Issue struct {
	Severity Severity
	Message  string
}

func (i *Issue) Error() string {
	return fmt.Sprintf("(%s): %s", i.Severity, i.Message)
}

// DuplicateTriggerError reports that a Query declared the same trigger
// id more than once, violating the §3 invariant that ids are unique
// within a query. Unlike a dangling threshold reference (a runtime
// EvalError, per the threshold package), a duplicate id is a
// structural defect in the query itself and blocks compilation.
type DuplicateTriggerError struct {
	QueryID string
	ID      string
}

func (e *DuplicateTriggerError) Error() string {
	return fmt.Sprintf("duplicate trigger id %q in query %s", e.ID, e.QueryID)
}

func idOrUnnamed(id *string) string {
	if id == nil {
		return "<unnamed>"
	}
	return *id
}

// Validate runs every structural check the loader must apply before a
// Query is handed to the optimizer: it must compile, its response must
// satisfy the partial/non-reducible-field invariant, its trigger ids
// must be unique, and every id its threshold references must resolve
// to a defined trigger. A Warning is advisory (the query is usable but
// probably not what the author meant); an Error blocks further use.
func Validate(q Query) []*Issue {
	var issues []*Issue

	if _, err := Compile(q); err != nil {
		issues = append(issues, &Issue{Severity: Error, Message: err.Error()})
	}

	for _, respIssue := range response.Validate(q.Response) {
		issues = append(issues, &Issue{Severity: Error, Message: respIssue.Error()})
	}

	seen := make(map[string]bool)
	defined := make(map[string]bool)
	for _, t := range q.Triggers {
		if seen[t.ID] {
			issues = append(issues, &Issue{Severity: Error, Message: fmt.Sprintf("duplicate trigger id %q in query %s", t.ID, idOrUnnamed(q.ID))})
		}
		seen[t.ID] = true
		defined[t.ID] = true
	}

	// A dangling threshold reference resolves to a runtime EvalError
	// (silent non-match) rather than a compile failure, so it is
	// advisory here to preserve Validate/Compile's round-trip property
	// (compile(q) succeeds iff validate(q) has no Error-severity issue).
	for _, id := range threshold.TriggerIDs(q.Threshold) {
		if !defined[id] {
			issues = append(issues, &Issue{Severity: Warning, Message: fmt.Sprintf("threshold references undefined trigger id %q in query %s; it will silently never match", id, idOrUnnamed(q.ID))})
		}
	}

	if threshold.IsInversionTainted(q.Threshold) {
		issues = append(issues, &Issue{Severity: Warning, Message: fmt.Sprintf("query %s matches when no triggers fire (inversion-tainted); it will be evaluated on every document", idOrUnnamed(q.ID))})
	}

	return issues
}

// HasBlockingIssues reports whether issues contains any Error-severity
// entry.
func HasBlockingIssues(issues []*Issue) bool {
	for _, i := range issues {
		if i.Severity == Error {
			return true
		}
	}
	return false
}

// Compile lowers a Query to a Compiled query: the scope pattern and
// every trigger pattern are compiled; Response/Threshold/ID are copied
// by value. Compile fails exactly when Validate reports an
// Error-severity issue: a pattern that does not compile, a duplicate
// trigger id, or an item a Partial response may not include.
func Compile(q Query) (*Compiled, error) {
	if respIssues := response.Validate(q.Response); len(respIssues) > 0 {
		return nil, respIssues[0]
	}

	compiledScope, err := scope.Compile(q.Scope)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(q.Triggers))
	triggers := make([]*trigger.Compiled, 0, len(q.Triggers))
	for _, t := range q.Triggers {
		if seen[t.ID] {
			return nil, &DuplicateTriggerError{QueryID: idOrUnnamed(q.ID), ID: t.ID}
		}
		seen[t.ID] = true
		ct, err := trigger.Compile(t)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, ct)
	}

	return &Compiled{
		ID:        q.ID,
		Response:  q.Response,
		Scope:     compiledScope,
		Threshold: q.Threshold,
		Triggers:  triggers,
	}, nil
}
