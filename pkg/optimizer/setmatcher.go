package optimizer

import (
	"fmt"
	"regexp"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/shaneisley/ieql/pkg/pattern"
)

// setMatcher is the shared multi-pattern matcher contract: given the
// selected content channel of a document, report the indices (into the
// owner slice the caller built it from) of every participating pattern
// that occurs, in one linear pass.
type setMatcher interface {
	findOwners(content string) []int
}

// buildSetMatcher picks the fastest strategy that can serve patterns:
// a literal-only trigger set runs on a real Aho-Corasick automaton: any
// regex pattern in the mix falls back to a single disjunctive regexp
// built from non-capturing groups, since Aho-Corasick itself has no notion
// of regex alternation/quantifiers.
func buildSetMatcher(patterns []pattern.Pattern) (setMatcher, error) {
	if len(patterns) == 0 {
		return emptyMatcher{}, nil
	}

	if allLiteral(patterns) {
		m, err := newAhoCorasickMatcher(patterns)
		if err == nil {
			return m, nil
		}
		// fall through to the regex strategy on any build failure; it
		// can express everything the literal fast path can.
	}

	return newDisjunctiveRegexMatcher(patterns)
}

func allLiteral(patterns []pattern.Pattern) bool {
	for _, p := range patterns {
		if p.Kind != pattern.Literal {
			return false
		}
	}
	return true
}

// emptyMatcher backs a group with no participating patterns: every
// query referencing it must have already been routed to always_run.
type emptyMatcher struct{}

func (emptyMatcher) findOwners(string) []int { return nil }

// ahoCorasickMatcher is the literal-only fast path. The automaton
// itself is used only as an O(n) fast reject (LeftMostFirstMatch, like
// any other use of this library, suppresses overlapping occurrences —
// it would otherwise never report "bcd" firing in "abcd" alongside
// "abc"). Whenever it reports at least one hit, every participating
// literal is re-confirmed individually via its own CompiledPattern, the
// same two-stage shape the disjunctive regex matcher below uses.
type ahoCorasickMatcher struct {
	ac       ahocorasick.AhoCorasick
	compiled []*pattern.CompiledPattern
}

func newAhoCorasickMatcher(patterns []pattern.Pattern) (*ahoCorasickMatcher, error) {
	literals := make([]string, len(patterns))
	compiled := make([]*pattern.CompiledPattern, len(patterns))
	for i, p := range patterns {
		literals[i] = p.Content
		cp, err := pattern.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("unable to compile master regex set: %w", err)
		}
		compiled[i] = cp
	}

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: false,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostFirstMatch,
		DFA:                  true,
	})
	ac := builder.Build(literals)
	return &ahoCorasickMatcher{ac: ac, compiled: compiled}, nil
}

func (m *ahoCorasickMatcher) findOwners(content string) []int {
	if len(m.ac.FindAll(content)) == 0 {
		return nil
	}
	var owners []int
	for i, cp := range m.compiled {
		if cp.QuickCheck(content) {
			owners = append(owners, i)
		}
	}
	return owners
}

// disjunctiveRegexMatcher joins every participating pattern into one
// `p0|p1|...` regexp purely as a fast reject: Go's regexp package is
// RE2-based and therefore linear in the length of the haystack
// regardless of how many alternatives are joined, so a single
// QuickCheck against the union answers "does nothing match" in one
// pass for the common case.
//
// The union alone cannot be trusted to recover *which* patterns fired:
// RE2's leftmost-first semantics pick one alternative per match and
// then advance past it, so two patterns that both occur but overlap
// (e.g. triggers "abc" and "bcd" against "abcd") can see the second
// one skipped over. Recovering the exact firing set correctly still
// needs one QuickCheck per participating pattern; this matcher only
// exists to make the overwhelmingly common no-match case cost one
// pass instead of len(patterns) passes.
type disjunctiveRegexMatcher struct {
	union    *regexp.Regexp
	compiled []*pattern.CompiledPattern
}

func newDisjunctiveRegexMatcher(patterns []pattern.Pattern) (*disjunctiveRegexMatcher, error) {
	groups := make([]string, len(patterns))
	compiled := make([]*pattern.CompiledPattern, len(patterns))
	for i, p := range patterns {
		groups[i] = fmt.Sprintf("(?:%s)", p.AsRegexSource())
		cp, err := pattern.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("unable to compile master regex set: %w", err)
		}
		compiled[i] = cp
	}
	union, err := regexp.Compile(strings.Join(groups, "|"))
	if err != nil {
		return nil, fmt.Errorf("unable to compile master regex set: %w", err)
	}
	return &disjunctiveRegexMatcher{union: union, compiled: compiled}, nil
}

func (m *disjunctiveRegexMatcher) findOwners(content string) []int {
	if !m.union.MatchString(content) {
		return nil
	}
	var owners []int
	for i, cp := range m.compiled {
		if cp.QuickCheck(content) {
			owners = append(owners, i)
		}
	}
	return owners
}
