// Package threshold implements the recursive boolean composition over
// named triggers that decides whether a query matches a document.
package threshold

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// EvalError reports that a Threshold referenced a trigger id not
// present in the results map handed to Evaluate.
type EvalError struct {
	TriggerID string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("unknown trigger id %q", e.TriggerID)
}

// Consideration is one element of a Threshold's considers list: either
// a reference to a named trigger, or a nested sub-threshold.
type Consideration struct {
	TriggerID string     // set when Nested is nil
	Nested    *Threshold // set when this consideration is a sub-threshold
}

// TriggerRef builds a Consideration referencing a trigger by id.
func TriggerRef(id string) Consideration {
	return Consideration{TriggerID: id}
}

// NestedThreshold builds a Consideration wrapping a sub-threshold.
func NestedThreshold(t Threshold) Consideration {
	return Consideration{Nested: &t}
}

func (c Consideration) isNested() bool {
	return c.Nested != nil
}

// considerationWire is the YAML tagged-union shape of a Consideration:
// exactly one of trigger_ref/nested is present.
type considerationWire struct {
	TriggerRef *string    `yaml:"trigger_ref,omitempty"`
	Nested     *Threshold `yaml:"nested,omitempty"`
}

// MarshalYAML renders a Consideration as its tagged-union wire form.
func (c Consideration) MarshalYAML() (interface{}, error) {
	if c.isNested() {
		return considerationWire{Nested: c.Nested}, nil
	}
	id := c.TriggerID
	return considerationWire{TriggerRef: &id}, nil
}

// UnmarshalYAML decodes a Consideration from its tagged-union wire form.
func (c *Consideration) UnmarshalYAML(value *yaml.Node) error {
	var w considerationWire
	if err := value.Decode(&w); err != nil {
		return err
	}
	switch {
	case w.Nested != nil:
		*c = Consideration{Nested: w.Nested}
	case w.TriggerRef != nil:
		*c = Consideration{TriggerID: *w.TriggerRef}
	default:
		return fmt.Errorf("consideration must set trigger_ref or nested")
	}
	return nil
}

// Threshold is a recursive boolean expression over named triggers: at
// least Requires of Considers must evaluate true, then the result is
// XORed with Inverse.
type Threshold struct {
	Considers []Consideration `yaml:"considers"`
	Requires  int             `yaml:"requires"`
	Inverse   bool            `yaml:"inverse"`
}

// Evaluate resolves t against a trigger_id -> hit map, depth first.
func Evaluate(t Threshold, results map[string]bool) (bool, error) {
	matched := 0
	for _, c := range t.Considers {
		var hit bool
		if c.isNested() {
			var err error
			hit, err = Evaluate(*c.Nested, results)
			if err != nil {
				return false, err
			}
		} else {
			v, ok := results[c.TriggerID]
			if !ok {
				return false, &EvalError{TriggerID: c.TriggerID}
			}
			hit = v
		}
		if hit {
			matched++
		}
	}

	does := matched >= t.Requires
	if t.Inverse {
		does = !does
	}
	return does, nil
}

// TriggerIDs returns the set of trigger ids transitively referenced by
// t's considers, deduplicated, in first-seen order.
func TriggerIDs(t Threshold) []string {
	seen := make(map[string]struct{})
	var ids []string
	var walk func(Threshold)
	walk = func(th Threshold) {
		for _, c := range th.Considers {
			if c.isNested() {
				walk(*c.Nested)
				continue
			}
			if _, ok := seen[c.TriggerID]; ok {
				continue
			}
			seen[c.TriggerID] = struct{}{}
			ids = append(ids, c.TriggerID)
		}
	}
	walk(t)
	return ids
}

// IsInversionTainted implements the optimizer's stricter always-run
// rule: a threshold taints itself and its parent when its own Inverse
// flag is set, when its own Requires is zero (it can match with no
// considerations true), or when any nested threshold is tainted.
func IsInversionTainted(t Threshold) bool {
	if t.Inverse || t.Requires == 0 {
		return true
	}
	for _, c := range t.Considers {
		if c.isNested() && IsInversionTainted(*c.Nested) {
			return true
		}
	}
	return false
}
