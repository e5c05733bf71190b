package builder

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/model"
)

// Format identifies a declaration encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a flag value or file extension ("yml", ".json") to a
// Format.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// DetectFormat treats documents starting with '{' as JSON and everything
// else as YAML.
func DetectFormat(raw []byte) Format {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// FromDeclaration parses a JSON or YAML form document, checks its structure,
// compiles visibleWhen rules and resolves every validator reference. Unknown
// field types pass through; unknown validators fail with
// UnknownValidatorError.
func (b *Builder) FromDeclaration(raw []byte) (model.Form, error) {
	form, err := Decode(raw)
	if err != nil {
		return model.Form{}, err
	}
	if err := b.Check(form); err != nil {
		return model.Form{}, err
	}
	compiled, err := b.Compile(form)
	if err != nil {
		return model.Form{}, err
	}
	b.logger.Debug("declaration parsed",
		zap.String("form", compiled.ID),
		zap.Int("fields", len(compiled.Fields)),
		zap.Int("sections", len(compiled.Sections)),
	)
	return compiled, nil
}

// Decode parses raw without resolving validators or visibility rules.
func Decode(raw []byte) (model.Form, error) {
	var form model.Form
	switch DetectFormat(raw) {
	case FormatJSON:
		if err := json.Unmarshal(raw, &form); err != nil {
			return model.Form{}, fmt.Errorf("builder: decode json declaration: %w", err)
		}
	default:
		if err := yaml.Unmarshal(raw, &form); err != nil {
			return model.Form{}, fmt.Errorf("builder: decode yaml declaration: %w", err)
		}
	}
	return form, nil
}

// EncodeDeclaration writes form back out as a declaration document.
// Visibility predicates are not encoded; visibleWhen rules are.
func EncodeDeclaration(form model.Form, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(form, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("builder: encode json declaration: %w", err)
		}
		return append(out, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(form); err != nil {
			return nil, fmt.Errorf("builder: encode yaml declaration: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("builder: encode yaml declaration: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
