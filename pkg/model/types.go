package model

import "strings"

// FieldType describes the kind of input a field collects. The core passes it
// through untouched; unknown values are preserved so newer declarations keep
// loading on older hosts.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeEmail       FieldType = "email"
	FieldTypePassword    FieldType = "password"
	FieldTypePhone       FieldType = "phone"
	FieldTypeInteger     FieldType = "integer"
	FieldTypeDecimal     FieldType = "decimal"
	FieldTypeDate        FieldType = "date"
	FieldTypeTime        FieldType = "time"
	FieldTypeDateTime    FieldType = "datetime"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiselect"
	FieldTypeTextArea    FieldType = "textarea"
	FieldTypeSlider      FieldType = "slider"
	FieldTypeToggle      FieldType = "toggle"
	FieldTypeFile        FieldType = "file"
	FieldTypeCustom      FieldType = "custom"
)

// IsChoice reports whether the field type selects from a fixed option list.
func (t FieldType) IsChoice() bool {
	return t == FieldTypeSelect || t == FieldTypeMultiSelect
}

// IsNumeric reports whether values of this type are expected to parse as
// numbers.
func (t FieldType) IsNumeric() bool {
	return t == FieldTypeInteger || t == FieldTypeDecimal || t == FieldTypeSlider
}

// IsBoolean reports whether the field collects a yes/no value.
func (t FieldType) IsBoolean() bool {
	return t == FieldTypeCheckbox || t == FieldTypeToggle
}

// VisibilityCondition decides, from a snapshot of the current form values,
// whether a field participates in validation and submission.
type VisibilityCondition func(values map[string]any) bool

// Option is a value/label pair offered by choice fields.
type Option struct {
	Value any    `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Field is the immutable description of one form input. Validators lists
// registry references (for example "required" or "minLength:8") resolved by
// the builder; Metadata carries validator parameters and renderer hints.
type Field struct {
	ID           string              `json:"id" yaml:"id"`
	Type         FieldType           `json:"fieldType" yaml:"fieldType"`
	Label        string              `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder  string              `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelperText   string              `json:"helperText,omitempty" yaml:"helperText,omitempty"`
	InitialValue any                 `json:"initialValue,omitempty" yaml:"initialValue,omitempty"`
	Required     bool                `json:"isRequired,omitempty" yaml:"isRequired,omitempty"`
	MinLength    *int                `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength    *int                `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	MinValue     *float64            `json:"minValue,omitempty" yaml:"minValue,omitempty"`
	MaxValue     *float64            `json:"maxValue,omitempty" yaml:"maxValue,omitempty"`
	Validators   []string            `json:"validators,omitempty" yaml:"validators,omitempty"`
	VisibleWhen  string              `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty"`
	Visibility   VisibilityCondition `json:"-" yaml:"-"`
	Options      []Option            `json:"options,omitempty" yaml:"options,omitempty"`
	Metadata     map[string]any      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Visible evaluates the field's visibility condition. Fields without a
// condition are always visible.
func (f Field) Visible(values map[string]any) bool {
	if f.Visibility == nil {
		return true
	}
	return f.Visibility(values)
}

// DisplayLabel returns the configured label or a humanised form of the id.
func (f Field) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return Humanize(f.ID)
}

// Clone returns a deep copy. The visibility predicate is shared since
// functions are immutable.
func (f Field) Clone() Field {
	out := f
	out.InitialValue = CloneValue(f.InitialValue)
	if f.MinLength != nil {
		v := *f.MinLength
		out.MinLength = &v
	}
	if f.MaxLength != nil {
		v := *f.MaxLength
		out.MaxLength = &v
	}
	if f.MinValue != nil {
		v := *f.MinValue
		out.MinValue = &v
	}
	if f.MaxValue != nil {
		v := *f.MaxValue
		out.MaxValue = &v
	}
	if f.Validators != nil {
		out.Validators = append([]string(nil), f.Validators...)
	}
	if f.Options != nil {
		out.Options = make([]Option, len(f.Options))
		for i, opt := range f.Options {
			out.Options[i] = Option{Value: CloneValue(opt.Value), Label: opt.Label}
		}
	}
	if f.Metadata != nil {
		out.Metadata = CloneValue(f.Metadata).(map[string]any)
	}
	return out
}

// Section groups fields for presentation. Inside a Form sections reference
// fields by FieldIDs; Fields holds inline definitions consumed when a form is
// assembled from sections.
type Section struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Collapsible bool     `json:"collapsible,omitempty" yaml:"collapsible,omitempty"`
	Collapsed   bool     `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
	FieldIDs    []string `json:"fieldIds,omitempty" yaml:"fieldIds,omitempty"`
	Fields      []Field  `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Refs lists every field id the section mentions, FieldIDs first followed by
// inline field ids not already referenced.
func (s Section) Refs() []string {
	out := make([]string, 0, len(s.FieldIDs)+len(s.Fields))
	seen := make(map[string]struct{}, cap(out))
	for _, id := range s.FieldIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, field := range s.Fields {
		if _, ok := seen[field.ID]; ok {
			continue
		}
		seen[field.ID] = struct{}{}
		out = append(out, field.ID)
	}
	return out
}

// Clone deep-copies the section.
func (s Section) Clone() Section {
	out := s
	if s.FieldIDs != nil {
		out.FieldIDs = append([]string(nil), s.FieldIDs...)
	}
	if s.Fields != nil {
		out.Fields = make([]Field, len(s.Fields))
		for i, field := range s.Fields {
			out.Fields[i] = field.Clone()
		}
	}
	return out
}

// SubmissionSettings carries host-facing submission hints. The core only
// reads IncludeHidden and SanitizeHTML.
type SubmissionSettings struct {
	Endpoint      string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Method        string `json:"method,omitempty" yaml:"method,omitempty"`
	IncludeHidden bool   `json:"includeHidden,omitempty" yaml:"includeHidden,omitempty"`
	SanitizeHTML  bool   `json:"sanitizeHtml,omitempty" yaml:"sanitizeHtml,omitempty"`
}

// Form is the declarative definition a controller is built from. Sections
// index into Fields; they never own fields.
type Form struct {
	ID          string              `json:"formId" yaml:"formId"`
	Title       string              `json:"title,omitempty" yaml:"title,omitempty"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field             `json:"fields" yaml:"fields"`
	Sections    []Section           `json:"sections,omitempty" yaml:"sections,omitempty"`
	Submission  *SubmissionSettings `json:"submission,omitempty" yaml:"submission,omitempty"`
}

// Field looks up a field definition by id.
func (f Form) Field(id string) (Field, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return Field{}, false
}

// FieldIDs returns field ids in declaration order.
func (f Form) FieldIDs() []string {
	ids := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		ids = append(ids, field.ID)
	}
	return ids
}

// Clone deep-copies the form definition.
func (f Form) Clone() Form {
	out := f
	if f.Fields != nil {
		out.Fields = make([]Field, len(f.Fields))
		for i, field := range f.Fields {
			out.Fields[i] = field.Clone()
		}
	}
	if f.Sections != nil {
		out.Sections = make([]Section, len(f.Sections))
		for i, section := range f.Sections {
			out.Sections[i] = section.Clone()
		}
	}
	if f.Submission != nil {
		settings := *f.Submission
		out.Submission = &settings
	}
	return out
}

// CloneValue deep-copies maps and slices produced by declaration decoding so
// definitions shared across controllers are never aliased.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = CloneValue(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = CloneValue(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
