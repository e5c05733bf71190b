package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidForm is the root of every structural form definition error.
	ErrInvalidForm = errors.New("model: invalid form definition")

	errFormIDMissing  = fmt.Errorf("%w: form id is required", ErrInvalidForm)
	errFieldIDMissing = fmt.Errorf("%w: field id is required", ErrInvalidForm)
)

// FieldError reports a structural problem with one field or section entry.
type FieldError struct {
	FieldID string
	Reason  string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("model: field %q: %s", e.FieldID, e.Reason)
}

// Is lets errors.Is match FieldError against ErrInvalidForm.
func (e FieldError) Is(target error) bool {
	return target == ErrInvalidForm
}

// Validate checks the structural invariants of a form definition: a form id,
// unique non-empty field ids, options on choice fields, and section
// references that resolve to declared fields.
func (f Form) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return errFormIDMissing
	}

	seen := make(map[string]struct{}, len(f.Fields))
	for idx, field := range f.Fields {
		if err := validateField(field); err != nil {
			if errors.Is(err, errFieldIDMissing) {
				return fmt.Errorf("%w (index %d)", err, idx)
			}
			return err
		}
		if _, exists := seen[field.ID]; exists {
			return FieldError{FieldID: field.ID, Reason: "duplicate field id"}
		}
		seen[field.ID] = struct{}{}
	}

	for _, section := range f.Sections {
		for _, ref := range section.Refs() {
			if _, ok := seen[ref]; !ok {
				return FieldError{
					FieldID: ref,
					Reason:  fmt.Sprintf("referenced by section %q but not declared in fields", section.ID),
				}
			}
		}
	}
	return nil
}

func validateField(field Field) error {
	if strings.TrimSpace(field.ID) == "" {
		return errFieldIDMissing
	}
	if field.Type.IsChoice() && len(field.Options) == 0 {
		return FieldError{FieldID: field.ID, Reason: fmt.Sprintf("%s field requires options", field.Type)}
	}
	if field.MinLength != nil && field.MaxLength != nil && *field.MinLength > *field.MaxLength {
		return FieldError{FieldID: field.ID, Reason: "minLength exceeds maxLength"}
	}
	if field.MinValue != nil && field.MaxValue != nil && *field.MinValue > *field.MaxValue {
		return FieldError{FieldID: field.ID, Reason: "minValue exceeds maxValue"}
	}
	return nil
}
