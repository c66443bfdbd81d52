// Package trigger defines the named pattern wrapper a Threshold
// evaluates against.
package trigger

import "github.com/shaneisley/ieql/pkg/pattern"

// Trigger is a Pattern with an id that a Threshold's considerations
// reference by name.
type Trigger struct {
	ID      string          `yaml:"id"`
	Pattern pattern.Pattern `yaml:"pattern"`
}

// Compiled is a Trigger lowered to a ready-to-use matcher.
type Compiled struct {
	ID      string
	Pattern *pattern.CompiledPattern
}

// Compile lowers a Trigger to a Compiled trigger.
func Compile(t Trigger) (*Compiled, error) {
	cp, err := pattern.Compile(t.Pattern)
	if err != nil {
		return nil, err
	}
	return &Compiled{ID: t.ID, Pattern: cp}, nil
}

// QuickCheck reports whether the trigger's pattern occurs in s.
func (c *Compiled) QuickCheck(s string) bool {
	return c.Pattern.QuickCheck(s)
}

// FullCheck returns the leftmost match of the trigger's pattern in s.
func (c *Compiled) FullCheck(s string) *pattern.Match {
	return c.Pattern.FullCheck(s)
}
