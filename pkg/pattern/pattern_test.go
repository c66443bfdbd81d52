package pattern

import "testing"

func TestCompileLiteralEscapesMetacharacters(t *testing.T) {
	cp, err := Compile(Pattern{Content: "a.b*c", Kind: Literal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cp.QuickCheck("xxa.b*cxx") != true {
		t.Fatalf("expected literal match of escaped content")
	}
	if cp.QuickCheck("xxaZbWWWcxx") {
		t.Fatalf("literal pattern must not behave like a regex")
	}
}

func TestCompileRegexMatchesAsRegex(t *testing.T) {
	cp, err := Compile(Pattern{Content: "a.b*c", Kind: Regex})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cp.QuickCheck("aZbbbbc") {
		t.Fatalf("expected regex match")
	}
}

func TestCompileInvalidRegexFails(t *testing.T) {
	_, err := Compile(Pattern{Content: "(unclosed", Kind: Regex})
	if err == nil {
		t.Fatalf("expected compile error for invalid regex")
	}
	ce, ok := err.(*CompileError)
	if !ok {
		t.Fatalf("expected *CompileError, got %T", err)
	}
	if ce.Reason != "regex could not compile" {
		t.Fatalf("unexpected reason: %s", ce.Reason)
	}
}

func TestFullCheckReturnsLeftmostMatch(t *testing.T) {
	cp, err := Compile(Pattern{Content: "hello", Kind: Literal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := cp.FullCheck("say hello hello")
	if m == nil {
		t.Fatalf("expected a match")
	}
	if m.Excerpt != "say hello hello" {
		t.Fatalf("excerpt should equal the searched string, got %q", m.Excerpt)
	}
	if m.Start != 4 || m.End != 9 {
		t.Fatalf("expected leftmost match at (4,9), got (%d,%d)", m.Start, m.End)
	}
}

func TestFullCheckNoMatch(t *testing.T) {
	cp, err := Compile(Pattern{Content: "zzz", Kind: Literal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cp.FullCheck("abc") != nil {
		t.Fatalf("expected no match")
	}
}

func TestQuickCheckEmptyPatternMatchesEmptyString(t *testing.T) {
	cp, err := Compile(Pattern{Content: "", Kind: Literal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cp.QuickCheck("") {
		t.Fatalf("empty pattern should match empty string")
	}
}
