// Package pattern implements the single regex-or-literal matcher that
// underlies every trigger and scope in the engine. Compiled patterns are
// backed by Go's standard regexp package, which — like the reference
// implementation's regex engine — guarantees worst-case linear time in
// the length of the searched string and structurally forbids
// backreferences and lookaround.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind distinguishes a pattern whose content is itself a regular
// expression from one that should be matched verbatim.
type Kind int

const (
	// Regex treats Content as a regular expression.
	Regex Kind = iota
	// Literal escapes Content and matches it verbatim as a substring.
	Literal
)

func (k Kind) String() string {
	switch k {
	case Regex:
		return "regex"
	case Literal:
		return "literal"
	default:
		return "unknown"
	}
}

// MarshalYAML renders Kind as its lowercase name.
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// UnmarshalYAML decodes Kind from its lowercase name.
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "regex":
		*k = Regex
	case "literal":
		*k = Literal
	default:
		return fmt.Errorf("invalid pattern kind: %s", s)
	}
	return nil
}

// Pattern is the declarative, uncompiled form of a regex-or-literal
// matcher.
type Pattern struct {
	Content string `yaml:"content"`
	Kind    Kind   `yaml:"kind"`
}

// CompileError reports that a Pattern could not be lowered to a
// CompiledPattern.
type CompileError struct {
	Pattern Pattern
	Reason  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("pattern compile error: %s (content=%q kind=%s)", e.Reason, e.Pattern.Content, e.Pattern.Kind)
}

// AsRegexSource returns the content of p rewritten as a regular
// expression source string: verbatim for Regex patterns, fully escaped
// for Literal ones.
func (p Pattern) AsRegexSource() string {
	switch p.Kind {
	case Literal:
		return regexp.QuoteMeta(p.Content)
	default:
		return p.Content
	}
}

// CompiledPattern is a Pattern lowered to a ready-to-use matcher.
type CompiledPattern struct {
	original Pattern
	source   string
	re       *regexp.Regexp
}

// Compile lowers a Pattern to a CompiledPattern, or returns a
// CompileError describing why the underlying regex engine rejected it.
func Compile(p Pattern) (*CompiledPattern, error) {
	source := p.AsRegexSource()
	re, err := regexp.Compile(source)
	if err != nil {
		reason := "regex could not compile"
		if p.Kind == Literal {
			reason = "escaped regex literal could not compile"
		}
		return nil, &CompileError{Pattern: p, Reason: reason}
	}
	return &CompiledPattern{original: p, source: source, re: re}, nil
}

// Source returns the regex source the pattern compiled to, for
// diagnostics.
func (cp *CompiledPattern) Source() string {
	return cp.source
}

// Original returns the declarative Pattern this CompiledPattern was
// built from, for callers (the optimizer's set-matcher builder) that
// need to re-inspect Kind/Content rather than the lowered regex source.
func (cp *CompiledPattern) Original() Pattern {
	return cp.original
}

// QuickCheck reports whether any substring of s matches, without
// allocating on the non-matching path.
func (cp *CompiledPattern) QuickCheck(s string) bool {
	return cp.re.MatchString(s)
}

// Match is the excerpt produced by a successful FullCheck: the
// (currently unnarrowed) searched string, plus the byte offsets of the
// leftmost match within it.
type Match struct {
	Excerpt string `json:"excerpt"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// FullCheck returns the leftmost match in s, or nil if there is none.
func (cp *CompiledPattern) FullCheck(s string) *Match {
	loc := cp.re.FindStringIndex(s)
	if loc == nil {
		return nil
	}
	return &Match{Excerpt: s, Start: loc[0], End: loc[1]}
}
