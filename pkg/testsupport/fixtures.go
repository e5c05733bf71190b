package testsupport

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formstate/pkg/model"
)

//go:embed testdata
var fixtures embed.FS

// Fixture names shipped with the package.
const (
	SignupDeclaration  = "signup.json"
	ContactDeclaration = "contact.yaml"
	PetstoreOpenAPI    = "petstore.yaml"
)

// Fixture returns the raw bytes of an embedded fixture.
func Fixture(name string) ([]byte, error) {
	if name == "" {
		return nil, errors.New("testsupport: fixture name is required")
	}
	data, err := fixtures.ReadFile(path.Join("testdata", name))
	if err != nil {
		return nil, fmt.Errorf("testsupport: read fixture: %w", err)
	}
	return data, nil
}

// MustFixture is Fixture for tests.
func MustFixture(t testing.TB, name string) []byte {
	t.Helper()
	data, err := Fixture(name)
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return data
}

// CompareForms diffs two forms, ignoring visibility predicates which cannot
// be compared.
func CompareForms(want, got model.Form) string {
	return cmp.Diff(want, got,
		cmpopts.IgnoreFields(model.Field{}, "Visibility"),
		cmpopts.EquateEmpty(),
	)
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t testing.TB, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// AssertJSONGolden marshals value and compares it against the golden file at
// path, rewriting the golden instead when UPDATE_GOLDENS is set.
func AssertJSONGolden(t testing.TB, path string, value any) {
	t.Helper()
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	payload = append(payload, '\n')
	if WriteMaybeGolden(t, path, payload) {
		return
	}

	var want, got any
	if err := json.Unmarshal(MustReadGolden(t, path), &want); err != nil {
		t.Fatalf("decode golden %s: %v", path, err)
	}
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if diff := CompareGolden(want, got); diff != "" {
		t.Fatalf("golden mismatch %s (-want +got):\n%s", path, diff)
	}
}
