// Package response implements the declarative description of what a
// matching query should emit.
package response

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind selects between a full and a reduced (partial) output shape.
type Kind int

const (
	Full Kind = iota
	Partial
)

func (k Kind) String() string {
	switch k {
	case Full:
		return "full"
	case Partial:
		return "partial"
	default:
		return "unknown"
	}
}

// MarshalYAML renders Kind as its lowercase name.
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// MarshalJSON renders Kind as its lowercase name, matching MarshalYAML.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalYAML decodes Kind from its lowercase name.
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "full":
		*k = Full
	case "partial":
		*k = Partial
	default:
		return fmt.Errorf("invalid response kind: %s", s)
	}
	return nil
}

// Item names a field that may be included in an Output.
type Item int

const (
	ItemURL Item = iota
	ItemMime
	ItemDomain
	ItemExcerpt
	ItemFullContent
)

func (i Item) String() string {
	switch i {
	case ItemURL:
		return "url"
	case ItemMime:
		return "mime"
	case ItemDomain:
		return "domain"
	case ItemExcerpt:
		return "excerpt"
	case ItemFullContent:
		return "full_content"
	default:
		return "unknown"
	}
}

// MarshalYAML renders Item as its lowercase name.
func (i Item) MarshalYAML() (interface{}, error) {
	return i.String(), nil
}

// MarshalJSON renders Item as its lowercase name, matching MarshalYAML.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalYAML decodes Item from its lowercase name.
func (i *Item) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "url":
		*i = ItemURL
	case "mime":
		*i = ItemMime
	case "domain":
		*i = ItemDomain
	case "excerpt":
		*i = ItemExcerpt
	case "full_content":
		*i = ItemFullContent
	default:
		return fmt.Errorf("invalid response item: %s", s)
	}
	return nil
}

// Response is the declarative output spec attached to a Query.
type Response struct {
	Kind    Kind   `yaml:"kind"`
	Include []Item `yaml:"include"`
}

// Issue reports a validation problem found in Validate.
type Issue struct {
	Message string
}

func (i *Issue) Error() string { return i.Message }

// nonReducible lists the fields a Partial response may not include,
// because they cannot be meaningfully reduced: the full matched
// excerpt and the document's own URL.
var nonReducible = map[Item]bool{
	ItemExcerpt: true,
	ItemURL:     true,
}

// Validate checks the Partial/non-reducible-field invariant, returning
// one Issue per disallowed item.
func Validate(r Response) []*Issue {
	if r.Kind != Partial {
		return nil
	}
	var issues []*Issue
	for _, item := range r.Include {
		if nonReducible[item] {
			issues = append(issues, &Issue{Message: fmt.Sprintf("include %q is not allowed in partial responses", item)})
		}
	}
	return issues
}
