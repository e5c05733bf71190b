package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// Session fills a controller interactively, one visible field at a time.
// Each answer is stored with SetFieldValue and validated before moving on;
// invalid answers are reported through Driver.Info and asked again.
type Session struct {
	driver      Driver
	logger      *zap.Logger
	maxAttempts int
}

// Option configures a Session.
type Option func(*Session)

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithLogger attaches a zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxAttempts bounds how often a single field is asked. Zero means no
// limit.
func WithMaxAttempts(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.maxAttempts = n
		}
	}
}

// New returns a Session prompting on the terminal.
func New(opts ...Option) *Session {
	s := &Session{
		driver: NewSurveyDriver(nil),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Fill asks every visible field of ctl in registration order and returns the
// resulting values. Fields that become visible because of a later answer are
// asked in a further pass.
func (s *Session) Fill(ctx context.Context, ctl *controller.Controller) (map[string]any, error) {
	asked := make(map[string]bool)
	for {
		progressed := false
		for _, id := range ctl.FieldIDs() {
			if asked[id] || !ctl.Visible(id) {
				continue
			}
			if err := s.ask(ctx, ctl, id); err != nil {
				return nil, err
			}
			asked[id] = true
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return ctl.Values(), nil
}

func (s *Session) ask(ctx context.Context, ctl *controller.Controller, id string) error {
	field, ok := ctl.Config(id)
	if !ok {
		return fmt.Errorf("prompt: field %q is not registered", id)
	}
	label := field.DisplayLabel()

	for attempt := 1; ; attempt++ {
		state, _ := ctl.Field(id)
		value, problem, err := s.read(ctx, field, state.Value)
		if err != nil {
			return err
		}

		if problem == "" {
			if err := ctl.SetFieldValue(id, value); err != nil {
				return err
			}
			if ctl.ValidateField(ctx, id) {
				s.logger.Debug("field answered", zap.String("field", id), zap.Int("attempt", attempt))
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			problem = ctl.FieldError(id)
		}

		if err := s.driver.Info(ctx, fmt.Sprintf("%s: %s", label, problem)); err != nil {
			return err
		}
		if s.maxAttempts > 0 && attempt >= s.maxAttempts {
			return fmt.Errorf("%w: %s", ErrTooManyAttempts, id)
		}
	}
}

// read prompts once. A non-empty problem means the answer could not be
// turned into a value and should be asked again.
func (s *Session) read(ctx context.Context, field model.Field, current any) (value any, problem string, err error) {
	input := InputConfig{
		Message: field.DisplayLabel(),
		Help:    field.HelperText,
		Default: defaultString(current),
	}

	switch {
	case field.Type.IsBoolean():
		current, _ := current.(bool)
		answer, err := s.driver.Confirm(ctx, ConfirmConfig{Message: input.Message, Help: input.Help, Default: current})
		return answer, "", err

	case field.Type == model.FieldTypeSelect:
		labels := optionLabels(field.Options)
		idx, err := s.driver.Select(ctx, SelectConfig{
			Message:      input.Message,
			Help:         input.Help,
			Options:      labels,
			DefaultIndex: optionIndex(field.Options, current),
		})
		if err != nil {
			return nil, "", err
		}
		if idx < 0 || idx >= len(field.Options) {
			return nil, "Choose one of the options", nil
		}
		return field.Options[idx].Value, "", nil

	case field.Type == model.FieldTypeMultiSelect:
		var defaults []int
		if list, ok := current.([]any); ok {
			for _, item := range list {
				if idx := optionIndex(field.Options, item); idx >= 0 {
					defaults = append(defaults, idx)
				}
			}
		}
		picked, err := s.driver.MultiSelect(ctx, SelectConfig{
			Message:  input.Message,
			Help:     input.Help,
			Options:  optionLabels(field.Options),
			Defaults: defaults,
		})
		if err != nil {
			return nil, "", err
		}
		out := make([]any, 0, len(picked))
		for _, idx := range picked {
			if idx >= 0 && idx < len(field.Options) {
				out = append(out, field.Options[idx].Value)
			}
		}
		return out, "", nil

	case field.Type.IsNumeric():
		raw, err := s.driver.Input(ctx, input)
		if err != nil {
			return nil, "", err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, "", nil
		}
		if field.Type == model.FieldTypeInteger {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, validation.MessageNotANumber, nil
			}
			return n, "", nil
		}
		f, ok := validation.ToFloat(raw)
		if !ok {
			return nil, validation.MessageNotANumber, nil
		}
		return f, "", nil

	case field.Type == model.FieldTypePassword:
		answer, err := s.driver.Password(ctx, input)
		return answer, "", err

	case field.Type == model.FieldTypeTextArea:
		answer, err := s.driver.TextArea(ctx, input)
		return answer, "", err

	default:
		answer, err := s.driver.Input(ctx, input)
		return answer, "", err
	}
}

func optionLabels(options []model.Option) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = opt.Label
		if out[i] == "" {
			out[i] = fmt.Sprint(opt.Value)
		}
	}
	return out
}

func optionIndex(options []model.Option, value any) int {
	if value == nil {
		return -1
	}
	want := fmt.Sprint(value)
	for i, opt := range options {
		if fmt.Sprint(opt.Value) == want {
			return i
		}
	}
	return -1
}

func defaultString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
