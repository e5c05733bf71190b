package validation

import (
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// Default message templates. They are pongo2 templates rendered with the
// validator parameters plus "field" (label or id) and "value".
const (
	MessageRequired    = "This field is required"
	MessageEmail       = "Enter a valid email address"
	MessageURL         = "Enter a valid URL"
	MessagePhone       = "Enter a valid phone number"
	MessageTooShort    = "Must be at least {{ min }} characters"
	MessageTooLong     = "Must be at most {{ max }} characters"
	MessagePattern     = "Invalid format"
	MessageNotANumber  = "Must be a number"
	MessageTooSmall    = "Must be at least {{ min }}"
	MessageTooBig      = "Must be at most {{ max }}"
	MessageEnum        = "Must be one of: {{ allowed }}"
	MessageMatch       = "Must match {{ other }}"
	MessageGreaterThan = "Must be greater than {{ bound }}"
	MessageLessThan    = "Must be less than {{ bound }}"
	MessageTimeout     = "Validation timed out"
)

var templateCache sync.Map // map[string]*pongo2.Template

// FormatMessage renders a message template with params. Templates without
// pongo2 markup are returned unchanged; templates that fail to parse or
// execute fall back to the raw text so a bad message never hides a failure.
func FormatMessage(tpl string, params map[string]any) string {
	if !strings.Contains(tpl, "{{") && !strings.Contains(tpl, "{%") {
		return tpl
	}

	compiled, err := compileMessage(tpl)
	if err != nil {
		return tpl
	}

	ctx := make(pongo2.Context, len(params))
	for key, value := range params {
		if s, ok := value.(string); ok {
			ctx[key] = pongo2.AsSafeValue(s)
			continue
		}
		ctx[key] = value
	}

	out, err := compiled.Execute(ctx)
	if err != nil {
		return tpl
	}
	return out
}

func compileMessage(tpl string) (*pongo2.Template, error) {
	if cached, ok := templateCache.Load(tpl); ok {
		return cached.(*pongo2.Template), nil
	}
	compiled, err := pongo2.FromString(tpl)
	if err != nil {
		return nil, err
	}
	templateCache.Store(tpl, compiled)
	return compiled, nil
}

// Option customises a built-in validator.
type Option func(*options)

type options struct {
	message string
}

// WithMessage overrides the validator's failure message. The text may use the
// same template variables as the default message.
func WithMessage(tpl string) Option {
	return func(o *options) {
		if strings.TrimSpace(tpl) != "" {
			o.message = tpl
		}
	}
}

func resolveOptions(opts []Option) options {
	var cfg options
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}

func (o options) render(fallback string, vctx Context, value any, params map[string]any) string {
	tpl := fallback
	if o.message != "" {
		tpl = o.message
	}
	merged := make(map[string]any, len(params)+2)
	merged["field"] = vctx.name()
	merged["value"] = asString(value)
	for k, v := range params {
		merged[k] = v
	}
	return FormatMessage(tpl, merged)
}
