// Package openapi extracts flat property lists from OpenAPI 3 request bodies
// so they can be turned into form fields.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var (
	// ErrOperationNotFound is returned when the requested operation does not
	// exist in the document.
	ErrOperationNotFound = errors.New("openapi: operation not found")
	// ErrNoRequestBody is returned when the operation has no object request
	// body to derive fields from.
	ErrNoRequestBody = errors.New("openapi: operation has no object request body")
)

// Property is one leaf of a request body schema. Nested object properties
// are flattened with dotted names ("address.city").
type Property struct {
	Name        string
	Type        string
	Format      string
	Title       string
	Description string
	Default     any
	Required    bool
	Enum        []any
	Minimum     *float64
	Maximum     *float64
	MinLength   *int
	MaxLength   *int
	Pattern     string
	ItemsEnum   []any
	Extensions  map[string]any
}

// Operation summarises a single path operation.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	Properties  []Property
}

// Load parses and validates raw (JSON or YAML). External references are not
// followed.
func Load(ctx context.Context, raw []byte) (*openapi3.T, error) {
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	return doc, nil
}

var methodOrder = []string{"GET", "PUT", "POST", "DELETE", "PATCH", "HEAD", "OPTIONS", "TRACE"}

// Operations lists every operation in doc, sorted by id. Operations without
// an operationId are keyed "method:path".
func Operations(doc *openapi3.T) []Operation {
	if doc == nil || doc.Paths == nil {
		return nil
	}
	var out []Operation
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, method := range methodOrder {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			out = append(out, describe(method, path, op))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Find returns the operation whose id (or "method:path" key) matches id.
func Find(doc *openapi3.T, id string) (Operation, error) {
	for _, op := range Operations(doc) {
		if op.ID == id {
			return op, nil
		}
	}
	return Operation{}, fmt.Errorf("%w: %q", ErrOperationNotFound, id)
}

func describe(method, path string, op *openapi3.Operation) Operation {
	id := op.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}
	out := Operation{
		ID:          id,
		Method:      method,
		Path:        path,
		Summary:     op.Summary,
		Description: op.Description,
	}
	if schema := requestSchema(op.RequestBody); schema != nil {
		out.Properties = flatten(schema, "", make(map[*openapi3.Schema]bool))
	}
	return out
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.SchemaRef {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil && mt.Schema != nil {
			return mt.Schema
		}
	}
	return nil
}

// flatten walks object properties depth first in name order. Schemas already
// on the current path are skipped so recursive references terminate.
func flatten(ref *openapi3.SchemaRef, prefix string, seen map[*openapi3.Schema]bool) []Property {
	if ref == nil || ref.Value == nil {
		return nil
	}
	schema := merged(ref.Value)
	if seen[ref.Value] {
		return nil
	}
	seen[ref.Value] = true
	defer delete(seen, ref.Value)

	if len(schema.Properties) == 0 {
		return nil
	}
	req := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		req[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Property
	for _, name := range names {
		child := schema.Properties[name]
		if child == nil || child.Value == nil {
			continue
		}
		full := name
		if prefix != "" {
			full = prefix + "." + name
		}
		value := merged(child.Value)
		if value.Type.Is(openapi3.TypeObject) && len(value.Properties) > 0 {
			out = append(out, flatten(child, full, seen)...)
			continue
		}
		if value.ReadOnly {
			continue
		}
		out = append(out, property(full, value, req[name]))
	}
	return out
}

// merged folds allOf members into a copy of schema.
func merged(schema *openapi3.Schema) *openapi3.Schema {
	if len(schema.AllOf) == 0 {
		return schema
	}
	out := *schema
	props := make(openapi3.Schemas, len(schema.Properties))
	for k, v := range schema.Properties {
		props[k] = v
	}
	required := append([]string(nil), schema.Required...)
	for _, member := range schema.AllOf {
		if member == nil || member.Value == nil {
			continue
		}
		m := merged(member.Value)
		for k, v := range m.Properties {
			if _, exists := props[k]; !exists {
				props[k] = v
			}
		}
		required = append(required, m.Required...)
		if out.Type == nil {
			out.Type = m.Type
		}
	}
	out.Properties = props
	out.Required = required
	out.AllOf = nil
	return &out
}

func property(name string, s *openapi3.Schema, required bool) Property {
	p := Property{
		Name:        name,
		Type:        firstType(s.Type),
		Format:      s.Format,
		Title:       s.Title,
		Description: s.Description,
		Default:     s.Default,
		Required:    required,
		Pattern:     s.Pattern,
	}
	if len(s.Enum) > 0 {
		p.Enum = append([]any(nil), s.Enum...)
	}
	if s.Min != nil {
		v := *s.Min
		p.Minimum = &v
	}
	if s.Max != nil {
		v := *s.Max
		p.Maximum = &v
	}
	if s.MinLength > 0 {
		v := int(s.MinLength)
		p.MinLength = &v
	}
	if s.MaxLength != nil {
		v := int(*s.MaxLength)
		p.MaxLength = &v
	}
	if s.Items != nil && s.Items.Value != nil && len(s.Items.Value.Enum) > 0 {
		p.ItemsEnum = append([]any(nil), s.Items.Value.Enum...)
	}
	if len(s.Extensions) > 0 {
		p.Extensions = make(map[string]any)
		for key, value := range s.Extensions {
			if strings.HasPrefix(key, "x-form") {
				p.Extensions[key] = value
			}
		}
		if len(p.Extensions) == 0 {
			p.Extensions = nil
		}
	}
	return p
}

func firstType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	for _, t := range types.Slice() {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return ""
}
