package builder

import (
	"github.com/goliatone/go-formstate/pkg/model"
)

// FieldOverride rewrites one field while cloning a form.
type FieldOverride func(model.Field) model.Field

// FromSections assembles a form from sections carrying inline field
// definitions. Fields are flattened in section order and each section keeps
// a FieldIDs index into them.
func FromSections(formID string, sections ...model.Section) (model.Form, error) {
	form := model.Form{ID: formID}
	owners := make(map[string]string)
	for _, section := range sections {
		out := section.Clone()
		out.Fields = nil
		for _, field := range section.Fields {
			if owner, dup := owners[field.ID]; dup {
				return model.Form{}, DuplicateFieldIDError{FieldID: field.ID, Sources: []string{owner, section.ID}}
			}
			owners[field.ID] = section.ID
			form.Fields = append(form.Fields, field.Clone())
			if !contains(out.FieldIDs, field.ID) {
				out.FieldIDs = append(out.FieldIDs, field.ID)
			}
		}
		form.Sections = append(form.Sections, out)
	}
	return form, nil
}

// SimpleForm builds a form of plain text fields labelled from their ids.
func SimpleForm(formID string, fieldIDs ...string) model.Form {
	form := model.Form{ID: formID, Fields: make([]model.Field, 0, len(fieldIDs))}
	for _, id := range fieldIDs {
		form.Fields = append(form.Fields, model.Field{
			ID:    id,
			Type:  model.FieldTypeText,
			Label: model.Humanize(id),
		})
	}
	return form
}

// MergeForms concatenates the fields and sections of forms under formID. The
// first non-empty title, description and submission settings win. A field id
// declared by two inputs fails with DuplicateFieldIDError.
func MergeForms(formID string, forms ...model.Form) (model.Form, error) {
	merged := model.Form{ID: formID}
	owners := make(map[string]string)
	for _, form := range forms {
		for _, field := range form.Fields {
			if owner, dup := owners[field.ID]; dup {
				return model.Form{}, DuplicateFieldIDError{FieldID: field.ID, Sources: []string{owner, form.ID}}
			}
			owners[field.ID] = form.ID
			merged.Fields = append(merged.Fields, field.Clone())
		}
		for _, section := range form.Sections {
			merged.Sections = append(merged.Sections, section.Clone())
		}
		if merged.Title == "" {
			merged.Title = form.Title
		}
		if merged.Description == "" {
			merged.Description = form.Description
		}
		if merged.Submission == nil && form.Submission != nil {
			settings := *form.Submission
			merged.Submission = &settings
		}
	}
	return merged, nil
}

// FilterForm returns a copy of form keeping only fields for which keep
// returns true. Section references to dropped fields are removed, as are
// sections left empty.
func FilterForm(form model.Form, keep func(model.Field) bool) model.Form {
	out := form.Clone()
	out.Fields = nil
	kept := make(map[string]bool)
	for _, field := range form.Fields {
		if keep == nil || keep(field) {
			out.Fields = append(out.Fields, field.Clone())
			kept[field.ID] = true
		}
	}

	out.Sections = nil
	for _, section := range form.Sections {
		s := section.Clone()
		s.FieldIDs = nil
		for _, id := range section.FieldIDs {
			if kept[id] {
				s.FieldIDs = append(s.FieldIDs, id)
			}
		}
		s.Fields = nil
		for _, field := range section.Fields {
			if kept[field.ID] {
				s.Fields = append(s.Fields, field.Clone())
			}
		}
		if len(s.FieldIDs) > 0 || len(s.Fields) > 0 {
			out.Sections = append(out.Sections, s)
		}
	}
	return out
}

// CloneForm deep-copies form under newID and applies overrides keyed by
// field id. Overrides for unknown ids are ignored.
func CloneForm(form model.Form, newID string, overrides map[string]FieldOverride) model.Form {
	out := form.Clone()
	out.ID = newID
	for i, field := range out.Fields {
		if override, ok := overrides[field.ID]; ok && override != nil {
			out.Fields[i] = override(field)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
