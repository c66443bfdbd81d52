// Package document implements document compilation: turning raw bytes
// and caller-supplied metadata into the extracted text, domain, and
// raw-text views the rest of the engine scans against.
package document

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shaneisley/ieql/pkg/scope"
)

// Document is the transient, caller-supplied input to compilation.
type Document struct {
	URL  *string
	Data []byte
	Mime *string
}

// Kind is the structured-content heuristic document compilation uses
// to decide whether to run HTML extraction.
type Kind int

const (
	Unknown Kind = iota
	HTML
)

// Compiled is a Document lowered to its scan-ready views. It is
// read-only for the lifetime of a scan batch and dropped once that
// batch's outputs are emitted.
type Compiled struct {
	URL    *string
	Mime   *string
	Raw    string
	Text   string
	Domain *string
}

// DecodeError reports that document compilation could not proceed.
// Compile itself never returns one: lossy UTF-8 decoding and URL
// parsing both degrade gracefully rather than fail, and nil or empty
// Data compiles to empty raw and text.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("document decode error: %s", e.Reason)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Compile turns a Document into a Compiled document: raw is the lossy
// UTF-8 decoding of the bytes, text is the extracted human-readable
// text (equal to raw for documents not recognized as structured), and
// domain is the host component of URL when it parses.
func Compile(d Document) (*Compiled, error) {
	raw := string(d.Data) // Go strings are valid-UTF8-or-not; invalid
	// sequences surface as the replacement character U+FFFD when ranged
	// over or re-encoded, matching the "lossy decode, never fatal" rule.

	kind := classify(d)

	var text string
	switch kind {
	case HTML:
		text = extractHTMLText(raw)
	default:
		text = raw
	}

	var domain *string
	if d.URL != nil {
		if parsed, err := url.Parse(*d.URL); err == nil && parsed.Host != "" {
			host := parsed.Host
			domain = &host
		}
	}

	return &Compiled{
		URL:    d.URL,
		Mime:   d.Mime,
		Raw:    raw,
		Text:   text,
		Domain: domain,
	}, nil
}

func classify(d Document) Kind {
	if d.Mime != nil && *d.Mime == "text/html" {
		return HTML
	}
	if d.URL != nil {
		lower := strings.ToLower(*d.URL)
		if strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm") {
			return HTML
		}
	}
	return Unknown
}

// extractHTMLText strips tags via goquery's DOM-based text extraction
// (which also decodes entities as part of HTML parsing) and collapses
// whitespace runs to a single space.
func extractHTMLText(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		// Malformed HTML never fails document compilation; fall back to
		// a bare tag strip so callers still get something text-shaped.
		return whitespaceRun.ReplaceAllString(stripTags(raw), " ")
	}
	text := doc.Text()
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(raw string) string {
	return tagPattern.ReplaceAllString(raw, " ")
}

// Content returns the view of the document selected by a scope's
// content channel.
func (c *Compiled) Content(channel scope.Content) string {
	switch channel {
	case scope.Raw:
		return c.Raw
	default:
		return c.Text
	}
}

// URLOrEmpty returns the document's URL, or the empty string when
// absent — the value scope gates are evaluated against.
func (c *Compiled) URLOrEmpty() string {
	if c.URL == nil {
		return ""
	}
	return *c.URL
}
