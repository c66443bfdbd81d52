package threshold

import "testing"

func TestEvaluateBasic(t *testing.T) {
	th := Threshold{Considers: []Consideration{TriggerRef("a"), TriggerRef("b")}, Requires: 1}
	ok, err := Evaluate(th, map[string]bool{"a": true, "b": false})
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
}

func TestEvaluateUnknownTriggerErrors(t *testing.T) {
	th := Threshold{Considers: []Consideration{TriggerRef("missing")}, Requires: 1}
	_, err := Evaluate(th, map[string]bool{})
	if err == nil {
		t.Fatalf("expected EvalError for unknown trigger id")
	}
	if _, ok := err.(*EvalError); !ok {
		t.Fatalf("expected *EvalError, got %T", err)
	}
}

func TestEvaluateEmptyConsidersRequiresZeroMatches(t *testing.T) {
	ok, err := Evaluate(Threshold{Requires: 0}, map[string]bool{})
	if err != nil || !ok {
		t.Fatalf("empty considers with requires=0 must match unconditionally")
	}
}

func TestEvaluateEmptyConsidersRequiresPositiveNeverMatches(t *testing.T) {
	ok, err := Evaluate(Threshold{Requires: 1}, map[string]bool{})
	if err != nil || ok {
		t.Fatalf("empty considers with requires>0 must never match")
	}
}

func TestEvaluateInversionIsXOR(t *testing.T) {
	r := map[string]bool{"a": true}
	th := Threshold{Considers: []Consideration{TriggerRef("a")}, Requires: 1}
	normal, err := Evaluate(th, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	th.Inverse = true
	inverted, err := Evaluate(th, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if normal == inverted {
		t.Fatalf("flipping inverse must negate the result")
	}
}

func TestEvaluateRequiresGreaterThanConsidersNeverMatches(t *testing.T) {
	th := Threshold{Considers: []Consideration{TriggerRef("a"), TriggerRef("b")}, Requires: 5}
	ok, err := Evaluate(th, map[string]bool{"a": true, "b": true})
	if err != nil || ok {
		t.Fatalf("requires greater than len(considers) must never match")
	}
}

func TestEvaluateNestedThreshold(t *testing.T) {
	// considers=[A, Nested{[B,C], requires=1}], requires=2
	th := Threshold{
		Considers: []Consideration{
			TriggerRef("A"),
			NestedThreshold(Threshold{Considers: []Consideration{TriggerRef("B"), TriggerRef("C")}, Requires: 1}),
		},
		Requires: 2,
	}

	ok, err := Evaluate(th, map[string]bool{"A": true, "B": true, "C": false})
	if err != nil || !ok {
		t.Fatalf("expected match: A true, nested(B,C) true via B")
	}

	ok, err = Evaluate(th, map[string]bool{"A": true, "B": false, "C": false})
	if err != nil || ok {
		t.Fatalf("expected no match: only A true")
	}

	ok, err = Evaluate(th, map[string]bool{"A": false, "B": true, "C": true})
	if err != nil || ok {
		t.Fatalf("expected no match: A false, only nested satisfied")
	}
}

func TestTriggerIDsFlattensNested(t *testing.T) {
	th := Threshold{
		Considers: []Consideration{
			TriggerRef("A"),
			NestedThreshold(Threshold{Considers: []Consideration{TriggerRef("B"), TriggerRef("A")}, Requires: 1}),
		},
		Requires: 1,
	}
	ids := TriggerIDs(th)
	if len(ids) != 2 || ids[0] != "A" || ids[1] != "B" {
		t.Fatalf("expected deduplicated [A B], got %v", ids)
	}
}

func TestIsInversionTainted(t *testing.T) {
	cases := []struct {
		name   string
		th     Threshold
		tainted bool
	}{
		{"plain", Threshold{Considers: []Consideration{TriggerRef("a")}, Requires: 1}, false},
		{"inverse", Threshold{Considers: []Consideration{TriggerRef("a")}, Requires: 1, Inverse: true}, true},
		{"requires zero", Threshold{Requires: 0}, true},
		{
			"nested tainted",
			Threshold{
				Requires: 1,
				Considers: []Consideration{
					TriggerRef("a"),
					NestedThreshold(Threshold{Requires: 0}),
				},
			},
			true,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsInversionTainted(c.th); got != c.tainted {
				t.Fatalf("expected tainted=%v, got %v", c.tainted, got)
			}
		})
	}
}
