package validation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formstate/pkg/model"
)

// Built-in validator names registered by NewRegistry.
const (
	NameRequired  = "required"
	NameEmail     = "email"
	NameURL       = "url"
	NamePhone     = "phone"
	NameLength    = "length"
	NameMinLength = "minLength"
	NameMaxLength = "maxLength"
	NamePattern   = "pattern"
	NameNumeric   = "numeric"
	NameMin       = "min"
	NameMax       = "max"
	NameEnum      = "enum"
	NameMatch     = "match"
	NameGreater   = "gt"
	NameLess      = "lt"
)

// ErrUnknownValidator is matched by UnknownValidatorError.
var ErrUnknownValidator = errors.New("validation: unknown validator")

// UnknownValidatorError names the field and validator reference that could
// not be resolved.
type UnknownValidatorError struct {
	FieldID   string
	Validator string
}

func (e UnknownValidatorError) Error() string {
	return fmt.Sprintf("validation: field %q references unknown validator %q", e.FieldID, e.Validator)
}

// Is lets errors.Is match against ErrUnknownValidator.
func (e UnknownValidatorError) Is(target error) bool {
	return target == ErrUnknownValidator
}

// Params is what a Factory receives: the parsed reference plus the field it
// is attached to. Arguments win over field metadata, which wins over the
// field's declared bounds.
type Params struct {
	Name  string
	Raw   string
	Args  []string
	Field model.Field
}

// ParseSpec splits a reference like "length:2,40" into name and raw argument.
func ParseSpec(spec string) (name, raw string) {
	trimmed := strings.TrimSpace(spec)
	if idx := strings.Index(trimmed, ":"); idx >= 0 {
		return strings.TrimSpace(trimmed[:idx]), strings.TrimSpace(trimmed[idx+1:])
	}
	return trimmed, ""
}

func newParams(spec string, field model.Field) Params {
	name, raw := ParseSpec(spec)
	p := Params{Name: name, Raw: raw, Field: field}
	if raw != "" {
		for _, arg := range strings.Split(raw, ",") {
			p.Args = append(p.Args, strings.TrimSpace(arg))
		}
	}
	return p
}

// Arg returns the positional argument at idx when present and non-empty.
func (p Params) Arg(idx int) (string, bool) {
	if idx < 0 || idx >= len(p.Args) || p.Args[idx] == "" {
		return "", false
	}
	return p.Args[idx], true
}

// Meta reads a field metadata entry.
func (p Params) Meta(key string) (any, bool) {
	if p.Field.Metadata == nil {
		return nil, false
	}
	v, ok := p.Field.Metadata[key]
	return v, ok && v != nil
}

// Int resolves an integer from argument idx, then metadata key.
func (p Params) Int(idx int, key string) (int, bool) {
	if arg, ok := p.Arg(idx); ok {
		if n, err := strconv.Atoi(arg); err == nil {
			return n, true
		}
	}
	if v, ok := p.Meta(key); ok {
		if f, ok := ToFloat(v); ok {
			return int(f), true
		}
	}
	return 0, false
}

// Float resolves a number from argument idx, then metadata key.
func (p Params) Float(idx int, key string) (*float64, bool) {
	if arg, ok := p.Arg(idx); ok {
		if f, ok := ToFloat(arg); ok {
			return &f, true
		}
	}
	if v, ok := p.Meta(key); ok {
		if f, ok := ToFloat(v); ok {
			return &f, true
		}
	}
	return nil, false
}

// String resolves a string from the raw argument, then metadata key.
func (p Params) String(key string) (string, bool) {
	if p.Raw != "" {
		return p.Raw, true
	}
	if v, ok := p.Meta(key); ok {
		if s := strings.TrimSpace(asString(v)); s != "" {
			return s, true
		}
	}
	return "", false
}

// Options returns message overrides declared under metadata.messages[name].
func (p Params) Options() []Option {
	raw, ok := p.Meta("messages")
	if !ok {
		return nil
	}
	var message string
	switch typed := raw.(type) {
	case map[string]any:
		message = asString(typed[p.Name])
	case map[string]string:
		message = typed[p.Name]
	}
	if message == "" || message == "<nil>" {
		return nil
	}
	return []Option{WithMessage(message)}
}

// Factory builds a Validator for one field reference.
type Factory func(p Params) (Validator, error)

// Registry resolves validator references by name. It is safe for concurrent
// use; hosts register custom factories before parsing declarations.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in validators registered.
func NewRegistry() *Registry {
	reg := &Registry{factories: make(map[string]Factory)}
	reg.registerBuiltins()
	return reg
}

// Register adds or replaces a factory. Empty names and nil factories are
// ignored.
func (r *Registry) Register(name string, factory Factory) {
	if r == nil || factory == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = make(map[string]Factory)
	}
	r.factories[trimmed] = factory
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[strings.TrimSpace(name)]
	return ok
}

// Names lists registered validator names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves a single reference for field.
func (r *Registry) Build(spec string, field model.Field) (Validator, error) {
	params := newParams(spec, field)
	if r == nil {
		return nil, UnknownValidatorError{FieldID: field.ID, Validator: params.Name}
	}
	r.mu.RLock()
	factory, ok := r.factories[params.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, UnknownValidatorError{FieldID: field.ID, Validator: params.Name}
	}
	v, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("validation: field %q validator %q: %w", field.ID, params.Name, err)
	}
	return v, nil
}

func (r *Registry) registerBuiltins() {
	r.Register(NameRequired, func(p Params) (Validator, error) {
		return Required(p.Options()...), nil
	})
	r.Register(NameEmail, func(p Params) (Validator, error) {
		return Email(p.Options()...), nil
	})
	r.Register(NameURL, func(p Params) (Validator, error) {
		return URL(p.Options()...), nil
	})
	r.Register(NamePhone, func(p Params) (Validator, error) {
		return Phone(p.Options()...), nil
	})

	r.Register(NameLength, func(p Params) (Validator, error) {
		minLen, hasMin := p.Int(0, NameMinLength)
		if !hasMin && p.Field.MinLength != nil {
			minLen, hasMin = *p.Field.MinLength, true
		}
		maxLen, hasMax := p.Int(1, NameMaxLength)
		if !hasMax && p.Field.MaxLength != nil {
			maxLen, hasMax = *p.Field.MaxLength, true
		}
		if !hasMin && !hasMax {
			return nil, errors.New("length requires a minimum or maximum")
		}
		if !hasMin {
			minLen = -1
		}
		if !hasMax {
			maxLen = -1
		}
		return Length(minLen, maxLen, p.Options()...), nil
	})
	r.Register(NameMinLength, func(p Params) (Validator, error) {
		n, ok := p.Int(0, NameMinLength)
		if !ok && p.Field.MinLength != nil {
			n, ok = *p.Field.MinLength, true
		}
		if !ok {
			return nil, errors.New("minLength requires a value")
		}
		return Length(n, -1, p.Options()...), nil
	})
	r.Register(NameMaxLength, func(p Params) (Validator, error) {
		n, ok := p.Int(0, NameMaxLength)
		if !ok && p.Field.MaxLength != nil {
			n, ok = *p.Field.MaxLength, true
		}
		if !ok {
			return nil, errors.New("maxLength requires a value")
		}
		return Length(-1, n, p.Options()...), nil
	})

	r.Register(NamePattern, func(p Params) (Validator, error) {
		expr, ok := p.String(NamePattern)
		if !ok {
			return nil, errors.New("pattern requires an expression")
		}
		opts := p.Options()
		if msg, ok := p.Meta("patternMessage"); ok {
			opts = append(opts, WithMessage(asString(msg)))
		}
		return Pattern(expr, opts...)
	})

	r.Register(NameNumeric, func(p Params) (Validator, error) {
		minVal, _ := p.Float(0, "minValue")
		if minVal == nil {
			minVal = p.Field.MinValue
		}
		maxVal, _ := p.Float(1, "maxValue")
		if maxVal == nil {
			maxVal = p.Field.MaxValue
		}
		return Numeric(minVal, maxVal, p.Options()...), nil
	})
	r.Register(NameMin, func(p Params) (Validator, error) {
		minVal, ok := p.Float(0, "minValue")
		if !ok {
			minVal = p.Field.MinValue
		}
		if minVal == nil {
			return nil, errors.New("min requires a value")
		}
		return Numeric(minVal, nil, p.Options()...), nil
	})
	r.Register(NameMax, func(p Params) (Validator, error) {
		maxVal, ok := p.Float(0, "maxValue")
		if !ok {
			maxVal = p.Field.MaxValue
		}
		if maxVal == nil {
			return nil, errors.New("max requires a value")
		}
		return Numeric(nil, maxVal, p.Options()...), nil
	})

	r.Register(NameEnum, func(p Params) (Validator, error) {
		var allowed []any
		switch {
		case p.Raw != "":
			for _, item := range strings.Split(p.Raw, "|") {
				if trimmed := strings.TrimSpace(item); trimmed != "" {
					allowed = append(allowed, trimmed)
				}
			}
		case len(p.Field.Options) > 0:
			for _, opt := range p.Field.Options {
				allowed = append(allowed, opt.Value)
			}
		default:
			if v, ok := p.Meta("allowed"); ok {
				if list, ok := v.([]any); ok {
					allowed = append(allowed, list...)
				}
			}
		}
		if len(allowed) == 0 {
			return nil, errors.New("enum requires allowed values")
		}
		return Enum(allowed, p.Options()...), nil
	})

	r.Register(NameMatch, func(p Params) (Validator, error) {
		other, ok := p.String("matchField")
		if !ok {
			return nil, errors.New("match requires a field id")
		}
		return Match(other, p.Options()...), nil
	})

	r.Register(NameGreater, func(p Params) (Validator, error) {
		bound, err := boundFromParams(p, "gt")
		if err != nil {
			return nil, err
		}
		return GreaterThan(bound, p.Options()...), nil
	})
	r.Register(NameLess, func(p Params) (Validator, error) {
		bound, err := boundFromParams(p, "lt")
		if err != nil {
			return nil, err
		}
		return LessThan(bound, p.Options()...), nil
	})
}

// boundFromParams reads "gt:5", "gt:field:start" or "gt:start". A bare value
// that parses as a number or date is a literal, anything else names a field.
func boundFromParams(p Params, key string) (Bound, error) {
	raw, ok := p.String(key)
	if !ok {
		return Bound{}, fmt.Errorf("%s requires a bound", p.Name)
	}
	if strings.HasPrefix(raw, "field:") {
		return FieldRef(strings.TrimSpace(strings.TrimPrefix(raw, "field:"))), nil
	}
	if f, ok := ToFloat(raw); ok {
		return Literal(f), nil
	}
	if _, ok := toTime(raw); ok {
		return Literal(raw), nil
	}
	return FieldRef(raw), nil
}
