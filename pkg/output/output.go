// Package output implements the match record an evaluated query
// produces and the batch container the scan engine streams them in.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaneisley/ieql/pkg/document"
	"github.com/shaneisley/ieql/pkg/pattern"
	"github.com/shaneisley/ieql/pkg/query"
	"github.com/shaneisley/ieql/pkg/response"
)

// Kind mirrors response.Kind on the emitted record.
type Kind = response.Kind

// Item is one OutputItem: a response.Item paired with the value
// assembled from the matching document.
type Item struct {
	Kind    response.Item
	URL     *string
	Mime    *string
	Domain  *string
	Content *string // FullContent
	Matches []pattern.Match
}

// Output is one match record: zero or more per document, at most one
// per matching query.
type Output struct {
	ID      *string
	QueryID *string
	Kind    Kind
	Items   []Item
}

// Assemble builds the Output for one query/document match, following
// the field order and per-item rules of the evaluation pipeline's
// assembly step.
func Assemble(doc *document.Compiled, q *query.Compiled, matches []pattern.Match) Output {
	items := make([]Item, 0, len(q.Response.Include))
	for _, include := range q.Response.Include {
		switch include {
		case response.ItemURL:
			items = append(items, Item{Kind: response.ItemURL, URL: doc.URL})
		case response.ItemMime:
			items = append(items, Item{Kind: response.ItemMime, Mime: doc.Mime})
		case response.ItemDomain:
			items = append(items, Item{Kind: response.ItemDomain, Domain: doc.Domain})
		case response.ItemExcerpt:
			items = append(items, Item{Kind: response.ItemExcerpt, Matches: matches})
		case response.ItemFullContent:
			raw := doc.Raw
			items = append(items, Item{Kind: response.ItemFullContent, Content: &raw})
		}
	}

	return Output{
		QueryID: q.ID,
		Kind:    q.Response.Kind,
		Items:   items,
	}
}

// MarshalJSON serializes an Output with the field order `items, kind,
// id, query_id`, per the language-independent serialization rule
// external consumers of JSON Lines scan output rely on.
func (o Output) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')

	b.WriteString(`"items":`)
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, err
	}
	b.Write(items)

	kind, err := json.Marshal(o.Kind)
	if err != nil {
		return nil, err
	}
	b.WriteString(`,"kind":`)
	b.Write(kind)

	if o.ID != nil {
		id, err := json.Marshal(*o.ID)
		if err != nil {
			return nil, err
		}
		b.WriteString(`,"id":`)
		b.Write(id)
	}
	if o.QueryID != nil {
		queryID, err := json.Marshal(*o.QueryID)
		if err != nil {
			return nil, err
		}
		b.WriteString(`,"query_id":`)
		b.Write(queryID)
	}

	b.WriteByte('}')
	return []byte(b.String()), nil
}

// MarshalJSON serializes an Item as its kind string plus whichever
// value field that kind populates.
func (it Item) MarshalJSON() ([]byte, error) {
	kind, err := json.Marshal(it.Kind)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteByte('{')
	b.WriteString(`"kind":`)
	b.Write(kind)

	switch it.Kind {
	case response.ItemURL:
		writeOptionalStringField(&b, "url", it.URL)
	case response.ItemMime:
		writeOptionalStringField(&b, "mime", it.Mime)
	case response.ItemDomain:
		writeOptionalStringField(&b, "domain", it.Domain)
	case response.ItemFullContent:
		writeOptionalStringField(&b, "content", it.Content)
	case response.ItemExcerpt:
		matches, err := json.Marshal(it.Matches)
		if err != nil {
			return nil, err
		}
		b.WriteString(`,"matches":`)
		b.Write(matches)
	}

	b.WriteByte('}')
	return []byte(b.String()), nil
}

func writeOptionalStringField(b *strings.Builder, name string, value *string) {
	if value == nil {
		return
	}
	encoded, _ := json.Marshal(*value)
	b.WriteString(`,"`)
	b.WriteString(name)
	b.WriteString(`":`)
	b.Write(encoded)
}

// String renders a human-readable one-line summary of an Output,
// supplementing the machine-readable record with a presentation form
// for the CLI's non-JSON output mode.
func (o Output) String() string {
	id := ""
	if o.ID != nil {
		id = fmt.Sprintf("[%s]", *o.ID)
	}
	kindName := "full response"
	if o.Kind == response.Partial {
		kindName = "partial response"
	}
	queryID := ""
	if o.QueryID != nil {
		queryID = fmt.Sprintf(" from %q", *o.QueryID)
	}

	parts := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		parts = append(parts, item.Kind.String())
	}

	return fmt.Sprintf("%s %s%s: [%s]", id, kindName, queryID, strings.Join(parts, ", "))
}

// Batch is an ordered collection of Outputs produced from scanning one
// document batch.
type Batch struct {
	Outputs []Output
}

// MergeWith appends other's outputs after b's own, in order. MergeWith
// is associative and preserves element order within each operand.
func (b *Batch) MergeWith(other Batch) {
	b.Outputs = append(b.Outputs, other.Outputs...)
}

// New builds a Batch from a slice of Outputs.
func New(outputs []Output) Batch {
	return Batch{Outputs: outputs}
}
