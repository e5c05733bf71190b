package builder_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/internal/openapi"
	"github.com/goliatone/go-formstate/pkg/builder"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/testsupport"
)

func TestFromOpenAPI(t *testing.T) {
	t.Parallel()

	raw := testsupport.MustFixture(t, testsupport.PetstoreOpenAPI)
	form, err := builder.New().FromOpenAPI(context.Background(), raw, "createPet")
	if err != nil {
		t.Fatalf("FromOpenAPI: %v", err)
	}

	if form.ID != "createPet" || form.Title != "Create a pet" {
		t.Fatalf("unexpected form header %q / %q", form.ID, form.Title)
	}
	if diff := cmp.Diff(&model.SubmissionSettings{Endpoint: "/pets", Method: "POST"}, form.Submission); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}

	types := make(map[string]model.FieldType)
	for _, field := range form.Fields {
		types[field.ID] = field.Type
	}
	wantTypes := map[string]model.FieldType{
		"birthday":      model.FieldTypeDate,
		"colors":        model.FieldTypeMultiSelect,
		"name":          model.FieldTypeText,
		"owner.email":   model.FieldTypeEmail,
		"owner.website": model.FieldTypeText,
		"species":       model.FieldTypeSelect,
		"tag":           model.FieldTypeText,
		"vaccinated":    model.FieldTypeCheckbox,
		"weight":        model.FieldTypeDecimal,
	}
	if diff := cmp.Diff(wantTypes, types); diff != "" {
		t.Fatalf("field types mismatch (-want +got):\n%s", diff)
	}

	species, _ := form.Field("species")
	wantOptions := []model.Option{
		{Value: "cat", Label: "Cat"},
		{Value: "dog", Label: "Dog"},
		{Value: "bird", Label: "Bird"},
	}
	if diff := cmp.Diff(wantOptions, species.Options); diff != "" {
		t.Fatalf("species options mismatch (-want +got):\n%s", diff)
	}
	if !species.Required {
		t.Fatalf("species must be required")
	}

	name, _ := form.Field("name")
	if name.Label != "Pet name" {
		t.Fatalf("title must become the label, got %q", name.Label)
	}
	email, _ := form.Field("owner.email")
	if email.Label != "Email" || !email.Required || !cmp.Equal([]string{"email"}, email.Validators) {
		t.Fatalf("unexpected owner.email field %#v", email)
	}
	website, _ := form.Field("owner.website")
	if !cmp.Equal([]string{"url"}, website.Validators) {
		t.Fatalf("uri format must map to the url validator, got %v", website.Validators)
	}
}

func TestFromOpenAPIControllerValidates(t *testing.T) {
	t.Parallel()

	b := builder.New()
	form, err := b.FromOpenAPI(context.Background(), testsupport.MustFixture(t, testsupport.PetstoreOpenAPI), "createPet")
	if err != nil {
		t.Fatalf("FromOpenAPI: %v", err)
	}
	ctl, err := b.BuildController(form)
	if err != nil {
		t.Fatalf("BuildController: %v", err)
	}
	_ = ctl.SetFieldValue("name", "R")
	_ = ctl.SetFieldValue("species", "fish")
	_ = ctl.SetFieldValue("owner.email", "owner@example.com")
	_ = ctl.SetFieldValue("weight", 250)

	if ctl.ValidateAll(context.Background()) {
		t.Fatalf("expected validation failures")
	}
	errs := ctl.Errors()
	if errs["name"] != "Must be at least 2 characters" || errs["weight"] != "Must be at most 200" {
		t.Fatalf("unexpected errors %v", errs)
	}
	if errs["species"] == "" {
		t.Fatalf("species outside the enum must fail, errors %v", errs)
	}
}

func TestFromOpenAPIErrors(t *testing.T) {
	t.Parallel()

	raw := testsupport.MustFixture(t, testsupport.PetstoreOpenAPI)
	b := builder.New()

	if _, err := b.FromOpenAPI(context.Background(), raw, "listPets"); !errors.Is(err, openapi.ErrNoRequestBody) {
		t.Fatalf("expected ErrNoRequestBody, got %v", err)
	}
	if _, err := b.FromOpenAPI(context.Background(), raw, "missing"); !errors.Is(err, openapi.ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}

	ids, err := builder.Operations(context.Background(), raw)
	if err != nil {
		t.Fatalf("Operations: %v", err)
	}
	if diff := cmp.Diff([]string{"createPet"}, ids); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
}

func TestDeclarationRoundTrip(t *testing.T) {
	t.Parallel()

	b := builder.New()
	form, err := b.FromDeclaration(testsupport.MustFixture(t, testsupport.SignupDeclaration))
	if err != nil {
		t.Fatalf("FromDeclaration: %v", err)
	}

	for _, format := range []builder.Format{builder.FormatJSON, builder.FormatYAML} {
		encoded, err := builder.EncodeDeclaration(form, format)
		if err != nil {
			t.Fatalf("EncodeDeclaration(%s): %v", format, err)
		}
		if got := builder.DetectFormat(encoded); got != format {
			t.Fatalf("encoded %s detected as %s", format, got)
		}
		decoded, err := b.FromDeclaration(encoded)
		if err != nil {
			t.Fatalf("FromDeclaration(%s): %v", format, err)
		}
		if diff := testsupport.CompareForms(form, decoded); diff != "" {
			t.Fatalf("%s round trip mismatch (-want +got):\n%s", format, diff)
		}
	}

	if _, err := builder.EncodeDeclaration(form, "toml"); !errors.Is(err, builder.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	cases := map[string]builder.Format{
		"json":  builder.FormatJSON,
		".JSON": builder.FormatJSON,
		"yml":   builder.FormatYAML,
		"yaml":  builder.FormatYAML,
	}
	for raw, want := range cases {
		got, err := builder.ParseFormat(raw)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := builder.ParseFormat("xml"); !errors.Is(err, builder.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestOpenAPIImportGolden(t *testing.T) {
	t.Parallel()

	form, err := builder.New().FromOpenAPI(context.Background(), testsupport.MustFixture(t, testsupport.PetstoreOpenAPI), "createPet")
	if err != nil {
		t.Fatalf("FromOpenAPI: %v", err)
	}
	testsupport.AssertJSONGolden(t, filepath.Join("testdata", "petstore_form.golden.json"), form)
}
