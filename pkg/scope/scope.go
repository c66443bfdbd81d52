// Package scope implements the URL-applicability gate and content
// channel selector attached to a Query.
package scope

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaneisley/ieql/pkg/pattern"
)

// Content selects which view of a document a Scope (and the triggers
// evaluated under it) read from.
type Content int

const (
	// Raw is the lossy UTF-8 decoding of a document's bytes.
	Raw Content = iota
	// Text is the extracted, human-readable text of a document.
	Text
)

func (c Content) String() string {
	switch c {
	case Raw:
		return "raw"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// MarshalYAML renders Content as its lowercase name.
func (c Content) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML decodes Content from its lowercase name.
func (c *Content) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "raw":
		*c = Raw
	case "text":
		*c = Text
	default:
		return fmt.Errorf("invalid scope content channel: %s", s)
	}
	return nil
}

// Scope is the declarative, uncompiled URL gate plus content selector.
type Scope struct {
	Pattern pattern.Pattern `yaml:"pattern"`
	Content Content         `yaml:"content"`
}

// Compiled is a Scope lowered to a ready-to-use matcher.
type Compiled struct {
	Pattern *pattern.CompiledPattern
	Content Content
}

// Compile lowers a Scope to a Compiled scope.
func Compile(s Scope) (*Compiled, error) {
	cp, err := pattern.Compile(s.Pattern)
	if err != nil {
		return nil, err
	}
	return &Compiled{Pattern: cp, Content: s.Content}, nil
}

// Matches reports whether a document's URL (empty string if absent)
// passes the scope gate.
func (c *Compiled) Matches(url string) bool {
	return c.Pattern.QuickCheck(url)
}
