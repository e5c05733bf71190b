package builder

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/internal/openapi"
	"github.com/goliatone/go-formstate/pkg/model"
)

// FromOpenAPI derives a form from the request body of operationID in an
// OpenAPI 3 document (JSON or YAML). Nested objects become dotted field ids,
// enums become select fields and schema bounds become field constraints.
func (b *Builder) FromOpenAPI(ctx context.Context, raw []byte, operationID string) (model.Form, error) {
	doc, err := openapi.Load(ctx, raw)
	if err != nil {
		return model.Form{}, err
	}
	op, err := openapi.Find(doc, operationID)
	if err != nil {
		return model.Form{}, err
	}
	if len(op.Properties) == 0 {
		return model.Form{}, fmt.Errorf("%w: %q", openapi.ErrNoRequestBody, operationID)
	}

	form := model.Form{
		ID:          op.ID,
		Title:       op.Summary,
		Description: op.Description,
		Submission: &model.SubmissionSettings{
			Endpoint: op.Path,
			Method:   op.Method,
		},
	}
	for _, prop := range op.Properties {
		form.Fields = append(form.Fields, fieldFromProperty(prop))
	}

	if err := b.Check(form); err != nil {
		return model.Form{}, err
	}
	b.logger.Debug("form imported from openapi",
		zap.String("operation", op.ID),
		zap.Int("fields", len(form.Fields)),
	)
	return form, nil
}

// Operations lists the operation ids of an OpenAPI document that carry an
// object request body.
func Operations(ctx context.Context, raw []byte) ([]string, error) {
	doc, err := openapi.Load(ctx, raw)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, op := range openapi.Operations(doc) {
		if len(op.Properties) > 0 {
			ids = append(ids, op.ID)
		}
	}
	return ids, nil
}

func fieldFromProperty(p openapi.Property) model.Field {
	label := p.Title
	if label == "" {
		name := p.Name
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}
		label = model.Humanize(name)
	}

	field := model.Field{
		ID:           p.Name,
		Type:         fieldType(p),
		Label:        label,
		HelperText:   p.Description,
		InitialValue: p.Default,
		Required:     p.Required,
		MinLength:    p.MinLength,
		MaxLength:    p.MaxLength,
		MinValue:     p.Minimum,
		MaxValue:     p.Maximum,
	}

	choices := p.Enum
	if len(choices) == 0 {
		choices = p.ItemsEnum
	}
	for _, value := range choices {
		field.Options = append(field.Options, model.Option{
			Value: value,
			Label: model.Humanize(fmt.Sprint(value)),
		})
	}

	switch p.Format {
	case "email":
		field.Validators = append(field.Validators, "email")
	case "uri", "url":
		field.Validators = append(field.Validators, "url")
	}
	if p.Pattern != "" {
		field.Validators = append(field.Validators, "pattern")
		field.Metadata = map[string]any{"pattern": p.Pattern}
	}
	for key, value := range p.Extensions {
		if field.Metadata == nil {
			field.Metadata = make(map[string]any)
		}
		field.Metadata[key] = value
	}
	return field
}

func fieldType(p openapi.Property) model.FieldType {
	if len(p.ItemsEnum) > 0 && p.Type == "array" {
		return model.FieldTypeMultiSelect
	}
	if len(p.Enum) > 0 {
		return model.FieldTypeSelect
	}
	switch p.Type {
	case "integer":
		return model.FieldTypeInteger
	case "number":
		return model.FieldTypeDecimal
	case "boolean":
		return model.FieldTypeCheckbox
	}
	switch p.Format {
	case "email":
		return model.FieldTypeEmail
	case "password":
		return model.FieldTypePassword
	case "date":
		return model.FieldTypeDate
	case "date-time":
		return model.FieldTypeDateTime
	case "time":
		return model.FieldTypeTime
	case "binary":
		return model.FieldTypeFile
	}
	if p.MaxLength != nil && *p.MaxLength > 255 {
		return model.FieldTypeTextArea
	}
	return model.FieldTypeText
}
