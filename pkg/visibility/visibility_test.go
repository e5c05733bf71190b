package visibility_test

import (
	"testing"

	"github.com/goliatone/go-formstate/pkg/visibility"
)

func TestConditionHelpers(t *testing.T) {
	t.Parallel()

	business := visibility.FieldEquals("accountType", "business")
	hasPhone := visibility.FieldSet("phone")

	values := map[string]any{"accountType": " business ", "phone": ""}
	if !business(values) {
		t.Fatalf("expected trimmed string equality")
	}
	if hasPhone(values) {
		t.Fatalf("blank phone must not count as set")
	}
	if visibility.All(business, hasPhone)(values) {
		t.Fatalf("All must require every condition")
	}
	if !visibility.Any(business, hasPhone)(values) {
		t.Fatalf("Any must accept one condition")
	}
	if !visibility.Not(hasPhone)(values) {
		t.Fatalf("Not must invert")
	}
	if !visibility.All()(nil) || visibility.Any()(nil) {
		t.Fatalf("unexpected identity values for All/Any")
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	for _, v := range []any{true, "x", 1, 2.5, []string{"a"}, map[string]any{"a": 1}} {
		if !visibility.Truthy(v) {
			t.Fatalf("expected %#v to be truthy", v)
		}
	}
	for _, v := range []any{nil, false, "  ", 0, 0.0, []any{}, map[string]any{}} {
		if visibility.Truthy(v) {
			t.Fatalf("expected %#v to be falsy", v)
		}
	}
}
