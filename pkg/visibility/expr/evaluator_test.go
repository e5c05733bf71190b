package expr

import (
	"testing"
)

func mustEval(t *testing.T, e *Evaluator, rule string, values map[string]any) bool {
	t.Helper()
	ok, err := e.Eval(rule, values)
	if err != nil {
		t.Fatalf("Eval(%q) returned error: %v", rule, err)
	}
	return ok
}

func TestEvaluatorComparisons(t *testing.T) {
	t.Parallel()

	e := New()
	cases := []struct {
		rule   string
		values map[string]any
		want   bool
	}{
		{`accountType == "business"`, map[string]any{"accountType": "business"}, true},
		{`accountType == business`, map[string]any{"accountType": "business"}, true},
		{`accountType != 'business'`, map[string]any{"accountType": "personal"}, true},
		{"enabled == true", map[string]any{"enabled": "true"}, true},
		{"enabled == false", map[string]any{}, true},
		{"age >= 18", map[string]any{"age": "21"}, true},
		{"age >= 18", map[string]any{"age": 17}, false},
		{"age < 18", map[string]any{}, false},
		{"count == 3", map[string]any{"count": 3.0}, true},
		{"count != 3", map[string]any{"count": "x"}, true},
		{"missing == null", map[string]any{}, true},
		{"enabled != null", map[string]any{"enabled": false}, true},
	}
	for _, tc := range cases {
		if got := mustEval(t, e, tc.rule, tc.values); got != tc.want {
			t.Fatalf("%q with %v = %v, want %v", tc.rule, tc.values, got, tc.want)
		}
	}
}

func TestEvaluatorTruthyAndComposition(t *testing.T) {
	t.Parallel()

	e := New()
	values := map[string]any{
		"newsletter": true,
		"frequency":  "weekly",
		"tags":       []any{},
		"country":    "US",
	}
	if !mustEval(t, e, `newsletter && frequency != "never"`, values) {
		t.Fatalf("expected conjunction to hold")
	}
	if mustEval(t, e, "tags", values) {
		t.Fatalf("empty list must not be truthy")
	}
	if !mustEval(t, e, `tags || !(country == "CA")`, values) {
		t.Fatalf("expected disjunction with negated group to hold")
	}
	if mustEval(t, e, `!newsletter`, values) {
		t.Fatalf("expected negation to be false")
	}
}

func TestEvaluatorDotLookup(t *testing.T) {
	t.Parallel()

	e := New()
	if !mustEval(t, e, `address.country == "NZ"`, map[string]any{"address.country": "NZ"}) {
		t.Fatalf("expected flat dotted key lookup")
	}
	nested := map[string]any{"address": map[string]any{"country": "NZ"}}
	if !mustEval(t, e, `address.country == "NZ"`, nested) {
		t.Fatalf("expected nested map lookup")
	}
}

func TestEvaluatorCompileErrors(t *testing.T) {
	t.Parallel()

	e := New()
	for _, rule := range []string{
		"a = 1",
		"a & b",
		`a == "unterminated`,
		"(a == 1",
		"a ==",
		"a > \"x\"",
		"== 1",
		"a b",
	} {
		if _, err := e.Compile(rule); err == nil {
			t.Fatalf("expected compile error for %q", rule)
		}
	}
}

func TestEvaluatorBlankRuleAlwaysVisible(t *testing.T) {
	t.Parallel()

	cond, err := New().Compile("   ")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !cond(nil) {
		t.Fatalf("blank rule must be visible")
	}
}

func TestEvaluatorCachesParsedRules(t *testing.T) {
	t.Parallel()

	e := New()
	if _, err := e.Compile("a && b"); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := e.Compile("a && b"); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.cache) != 1 {
		t.Fatalf("expected one cached rule, got %d", len(e.cache))
	}
}
