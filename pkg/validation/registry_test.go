package validation_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/validation"
)

func TestParseSpec(t *testing.T) {
	t.Parallel()

	cases := map[string][2]string{
		"required":          {"required", ""},
		" length : 2,40 ":   {"length", "2,40"},
		"pattern:^a:b$":     {"pattern", "^a:b$"},
		"gt:field:start_at": {"gt", "field:start_at"},
	}
	for spec, want := range cases {
		name, raw := validation.ParseSpec(spec)
		if name != want[0] || raw != want[1] {
			t.Fatalf("ParseSpec(%q) = %q, %q; want %q, %q", spec, name, raw, want[0], want[1])
		}
	}
}

func TestRegistryBuiltins(t *testing.T) {
	t.Parallel()

	reg := validation.NewRegistry()
	want := []string{"email", "enum", "gt", "length", "lt", "match", "max", "maxLength", "min", "minLength", "numeric", "pattern", "phone", "required", "url"}
	if diff := cmp.Diff(want, reg.Names()); diff != "" {
		t.Fatalf("builtin names mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryUnknownValidator(t *testing.T) {
	t.Parallel()

	reg := validation.NewRegistry()
	_, err := reg.Build("zipcode", model.Field{ID: "postal"})
	var unknown validation.UnknownValidatorError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownValidatorError, got %v", err)
	}
	if unknown.FieldID != "postal" || unknown.Validator != "zipcode" {
		t.Fatalf("unexpected error details %#v", unknown)
	}
	if !errors.Is(err, validation.ErrUnknownValidator) {
		t.Fatalf("expected errors.Is to match ErrUnknownValidator")
	}
}

func TestRegistryReadsParamsFromMetadata(t *testing.T) {
	t.Parallel()

	reg := validation.NewRegistry()
	field := model.Field{
		ID: "password",
		Metadata: map[string]any{
			"minLength": 8,
			"messages":  map[string]any{"minLength": "Use {{ min }}+ characters"},
		},
	}
	v, err := reg.Build("minLength", field)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := check(t, v, "short", nil)
	if res.Valid || res.Message != "Use 8+ characters" {
		t.Fatalf("unexpected result %#v", res)
	}

	v, err = reg.Build("minLength:3", field)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res := check(t, v, "short", nil); !res.Valid {
		t.Fatalf("argument must win over metadata")
	}
}

func TestRegistryFactoryErrors(t *testing.T) {
	t.Parallel()

	reg := validation.NewRegistry()
	for _, spec := range []string{"length", "pattern", "pattern:([", "match", "enum", "min", "min:NaN", "max:Inf", "gt"} {
		if _, err := reg.Build(spec, model.Field{ID: "f"}); err == nil {
			t.Fatalf("expected %q without parameters to fail", spec)
		}
	}
}

func TestRegistryEnumFromOptionsAndBounds(t *testing.T) {
	t.Parallel()

	reg := validation.NewRegistry()
	field := model.Field{
		ID:      "size",
		Type:    model.FieldTypeSelect,
		Options: []model.Option{{Value: "s"}, {Value: "m"}},
	}
	v, err := reg.Build("enum", field)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res := check(t, v, "xl", nil); res.Valid {
		t.Fatalf("expected xl to be rejected")
	}

	minValue := 18.0
	age := model.Field{ID: "age", MinValue: &minValue}
	v, err = reg.Build("numeric", age)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res := check(t, v, "17", nil); res.Valid {
		t.Fatalf("expected field bounds to apply")
	}

	v, err = reg.Build("gt:field:start", model.Field{ID: "end"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res := check(t, v, 1, map[string]any{"start": 2}); res.Valid {
		t.Fatalf("expected field bound comparison to fail")
	}
}

func TestRegistryCustomFactory(t *testing.T) {
	t.Parallel()

	reg := validation.NewRegistry()
	reg.Register("slug", func(p validation.Params) (validation.Validator, error) {
		return validation.Pattern(`^[a-z0-9-]+$`, p.Options()...)
	})
	if !reg.Has("slug") {
		t.Fatalf("expected slug to be registered")
	}
	v, err := reg.Build("slug", model.Field{ID: "handle"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res := check(t, v, "Not A Slug", nil); res.Valid {
		t.Fatalf("expected custom validator to run")
	}
}
