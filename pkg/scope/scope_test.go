package scope

import (
	"testing"

	"github.com/shaneisley/ieql/pkg/pattern"
)

func TestCompileAndMatches(t *testing.T) {
	s := Scope{Pattern: pattern.Pattern{Content: `^https://a\.example/`, Kind: pattern.Regex}, Content: Text}
	c, err := Compile(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Matches("https://a.example/foo") {
		t.Fatalf("expected scope to match")
	}
	if c.Matches("https://b.example/foo") {
		t.Fatalf("expected scope exclusion of a different host")
	}
}

func TestWildcardScopeMatchesMissingURL(t *testing.T) {
	s := Scope{Pattern: pattern.Pattern{Content: ".*", Kind: pattern.Regex}, Content: Raw}
	c, err := Compile(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Matches("") {
		t.Fatalf("a .* scope must still gate through on the empty string")
	}
}
