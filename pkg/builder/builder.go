package builder

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/sanitize"
	"github.com/goliatone/go-formstate/pkg/validation"
	"github.com/goliatone/go-formstate/pkg/visibility"
	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

// Builder turns declarations into form definitions and controllers.
type Builder struct {
	registry  *validation.Registry
	evaluator visibility.Compiler
	logger    *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry overrides the validator registry. Hosts register custom
// factories on it before parsing declarations.
func WithRegistry(reg *validation.Registry) Option {
	return func(b *Builder) {
		if reg != nil {
			b.registry = reg
		}
	}
}

// WithEvaluator overrides the compiler used for visibleWhen rules.
func WithEvaluator(compiler visibility.Compiler) Option {
	return func(b *Builder) {
		if compiler != nil {
			b.evaluator = compiler
		}
	}
}

// WithLogger attaches a zap logger, also handed to built controllers.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New returns a Builder with the built-in validators and the default
// expression evaluator.
func New(opts ...Option) *Builder {
	b := &Builder{
		registry:  validation.NewRegistry(),
		evaluator: expr.New(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Registry exposes the validator registry.
func (b *Builder) Registry() *validation.Registry {
	return b.registry
}

// Resolve composes the validator for field with Chain, in this order:
// required, declared references, then implicit length, range and choice
// constraints not already covered by a declared reference. A field without
// constraints resolves to nil, which always passes.
func (b *Builder) Resolve(field model.Field) (validation.Validator, error) {
	var chain []validation.Validator
	declared := make(map[string]bool, len(field.Validators))

	if field.Required {
		v, err := b.registry.Build(validation.NameRequired, field)
		if err != nil {
			return nil, err
		}
		chain = append(chain, v)
		declared[validation.NameRequired] = true
	}

	for _, spec := range field.Validators {
		name, _ := validation.ParseSpec(spec)
		if name == "" {
			continue
		}
		if name == validation.NameRequired && declared[name] {
			continue
		}
		v, err := b.registry.Build(spec, field)
		if err != nil {
			return nil, err
		}
		chain = append(chain, v)
		declared[name] = true
	}

	implicit := []struct {
		name    string
		applies bool
		covered []string
	}{
		{
			name:    validation.NameLength,
			applies: field.MinLength != nil || field.MaxLength != nil,
			covered: []string{validation.NameLength, validation.NameMinLength, validation.NameMaxLength},
		},
		{
			name:    validation.NameNumeric,
			applies: field.MinValue != nil || field.MaxValue != nil || field.Type.IsNumeric(),
			covered: []string{validation.NameNumeric, validation.NameMin, validation.NameMax},
		},
		{
			name:    validation.NameEnum,
			applies: field.Type.IsChoice() && len(field.Options) > 0,
			covered: []string{validation.NameEnum},
		},
	}
	for _, rule := range implicit {
		if !rule.applies || anyDeclared(declared, rule.covered) {
			continue
		}
		v, err := b.registry.Build(rule.name, field)
		if err != nil {
			return nil, err
		}
		chain = append(chain, v)
	}

	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	default:
		return validation.Chain(chain...), nil
	}
}

func anyDeclared(declared map[string]bool, names []string) bool {
	for _, name := range names {
		if declared[name] {
			return true
		}
	}
	return false
}

// Compile attaches visibility predicates compiled from visibleWhen rules to
// fields that do not already carry one.
func (b *Builder) Compile(form model.Form) (model.Form, error) {
	out := form.Clone()
	for i, field := range out.Fields {
		if field.Visibility != nil || field.VisibleWhen == "" {
			continue
		}
		cond, err := b.evaluator.Compile(field.VisibleWhen)
		if err != nil {
			return model.Form{}, fmt.Errorf("builder: field %q visibleWhen: %w", field.ID, err)
		}
		out.Fields[i].Visibility = cond
	}
	return out, nil
}

// Check validates the form structure and resolves every field's validators
// without building a controller.
func (b *Builder) Check(form model.Form) error {
	if err := form.Validate(); err != nil {
		return err
	}
	for _, field := range form.Fields {
		if _, err := b.Resolve(field); err != nil {
			return err
		}
	}
	return nil
}

// BuildController validates form, registers every field with its resolved
// validator and applies the form's submission settings. opts are applied
// after the builder's own controller options.
func (b *Builder) BuildController(form model.Form, opts ...controller.Option) (*controller.Controller, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	compiled, err := b.Compile(form)
	if err != nil {
		return nil, err
	}

	ctlOpts := []controller.Option{controller.WithLogger(b.logger)}
	if settings := compiled.Submission; settings != nil {
		if settings.IncludeHidden {
			ctlOpts = append(ctlOpts, controller.WithHiddenValues(true))
		}
		if settings.SanitizeHTML {
			ctlOpts = append(ctlOpts, controller.WithSubmitTransformer(sanitizerFor(compiled).Transformer()))
		}
	}
	ctlOpts = append(ctlOpts, opts...)

	ctl := controller.New(compiled.ID, ctlOpts...)
	for _, field := range compiled.Fields {
		v, err := b.Resolve(field)
		if err != nil {
			return nil, err
		}
		if err := ctl.RegisterField(field, v); err != nil {
			return nil, err
		}
	}
	b.logger.Debug("controller built",
		zap.String("form", compiled.ID),
		zap.Int("fields", len(compiled.Fields)),
	)
	return ctl, nil
}

// sanitizerFor keeps formatting in textareas and leaves password values
// untouched.
func sanitizerFor(form model.Form) *sanitize.Sanitizer {
	var rich, skip []string
	for _, field := range form.Fields {
		switch field.Type {
		case model.FieldTypeTextArea:
			rich = append(rich, field.ID)
		case model.FieldTypePassword:
			skip = append(skip, field.ID)
		}
	}
	return sanitize.New(sanitize.WithRichText(rich...), sanitize.WithSkip(skip...))
}
