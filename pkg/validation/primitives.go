package validation

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Issue codes stored in Result.Details["code"].
const (
	CodeRequired      = "required"
	CodeInvalidFormat = "invalid_format"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodePattern       = "pattern"
	CodeNotANumber    = "not_a_number"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeInvalidEnum   = "invalid_enum"
	CodeMismatch      = "mismatch"
	CodeComparison    = "comparison"
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9(][0-9\s\-().]{5,22}[0-9]$`)
)

// Required fails on nil, empty or whitespace-only strings and empty
// collections.
func Required(opts ...Option) Validator {
	cfg := resolveOptions(opts)
	return ValidatorFunc(func(_ context.Context, value any, vctx Context) Result {
		if IsEmpty(value) {
			return failWithCode(CodeRequired, cfg.render(MessageRequired, vctx, value, nil), nil)
		}
		return Pass()
	})
}

// Email checks a pragmatic RFC 5322 subset: local@domain.tld.
func Email(opts ...Option) Validator {
	cfg := resolveOptions(opts)
	return ValidatorFunc(func(_ context.Context, value any, vctx Context) Result {
		if IsEmpty(value) {
			return Pass()
		}
		if !emailPattern.MatchString(strings.TrimSpace(asString(value))) {
			return failWithCode(CodeInvalidFormat, cfg.render(MessageEmail, vctx, value, nil), map[string]any{"format": "email"})
		}
		return Pass()
	})
}

// URL accepts absolute http and https URLs with a host.
func URL(opts ...Option) Validator {
	cfg := resolveOptions(opts)
	return ValidatorFunc(func(_ context.Context, value any, vctx Context) Result {
		if IsEmpty(value) {
			return Pass()
		}
		parsed, err := url.Parse(strings.TrimSpace(asString(value)))
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return failWithCode(CodeInvalidFormat, cfg.render(MessageURL, vctx, value, nil), map[string]any{"format": "url"})
		}
		return Pass()
	})
}

// Phone accepts loose international numbers: an optional leading plus, digits
// with common separators, and at least seven digits overall.
func Phone(opts ...Option) Validator {
	cfg := resolveOptions(opts)
	return ValidatorFunc(func(_ context.Context, value any, vctx Context) Result {
		if IsEmpty(value) {
			return Pass()
		}
		raw := strings.TrimSpace(asString(value))
		digits := 0
		for _, r := range raw {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if !phonePattern.MatchString(raw) || digits < 7 || digits > 15 {
			return failWithCode(CodeInvalidFormat, cfg.render(MessagePhone, vctx, value, nil), map[string]any{"format": "phone"})
		}
		return Pass()
	})
}

// Length checks inclusive bounds on the rune count of strings or the length of
// collections. A negative bound disables that side.
func Length(min, max int, opts ...Option) Validator {
	cfg := resolveOptions(opts)
	return ValidatorFunc(func(_ context.Context, value any, vctx Context) Result {
		if IsEmpty(value) {
			return Pass()
		}
		n := lengthOf(value)
		params := map[string]any{"min": strconv.Itoa(min), "max": strconv.Itoa(max), "length": strconv.Itoa(n)}
		if min >= 0 && n < min {
			return failWithCode(CodeTooShort, cfg.render(MessageTooShort, vctx, value, params), map[string]any{"min": min, "length": n})
		}
		if max >= 0 && n > max {
			return failWithCode(CodeTooLong, cfg.render(MessageTooLong, vctx, value, params), map[string]any{"max": max, "length": n})
		}
		return Pass()
	})
}

func lengthOf(value any) int {
	switch typed := value.(type) {
	case string:
		return utf8.RuneCountInString(typed)
	case []byte:
		return utf8.RuneCount(typed)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	}
	return utf8.RuneCountInString(asString(value))
}

// Pattern matches the string form of the value against expr.
func Pattern(expr string, opts ...Option) (Validator, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("validation: invalid pattern %q: %w", expr, err)
	}
	cfg := resolveOptions(opts)
	return ValidatorFunc(func(_ context.Context, value any, vctx Context) Result {
		if IsEmpty(value) {
			return Pass()
		}
		if !re.MatchString(asString(value)) {
			return failWithCode(CodePattern, cfg.render(MessagePattern, vctx, value, map[string]any{"pattern": expr}), map[string]any{"pattern": expr})
		}
		return Pass()
	}), nil
}

// MustPattern is Pattern for expressions known at compile time.
func MustPattern(expr string, opts ...Option) Validator {
	v, err := Pattern(expr, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

// Numeric parses the value as a number and checks the optional inclusive
// bounds. Unparsable input fails with MessageNotANumber.
func Numeric(min, max *float64, opts ...Option) Validator {
	cfg := resolveOptions(opts)
	return ValidatorFunc(func(_ context.Context, value any, vctx Context) Result {
		if IsEmpty(value) {
			return Pass()
		}
		n, ok := ToFloat(value)
		if !ok {
			return failWithCode(CodeNotANumber, cfg.render(MessageNotANumber, vctx, value, nil), nil)
		}
		params := map[string]any{}
		if min != nil {
			params["min"] = formatNumber(*min)
		}
		if max != nil {
			params["max"] = formatNumber(*max)
		}
		if min != nil && n < *min {
			return failWithCode(CodeTooSmall, cfg.render(MessageTooSmall, vctx, value, params), map[string]any{"min": *min})
		}
		if max != nil && n > *max {
			return failWithCode(CodeTooBig, cfg.render(MessageTooBig, vctx, value, params), map[string]any{"max": *max})
		}
		return Pass()
	})
}

// Enum requires the value, or every element of a slice value, to be one of
// allowed. Comparison falls back to string form so "1" matches 1.
func Enum(allowed []any, opts ...Option) Validator {
	cfg := resolveOptions(opts)
	labels := make([]string, len(allowed))
	for i, a := range allowed {
		labels[i] = asString(a)
	}
	joined := strings.Join(labels, ", ")

	contains := func(candidate any) bool {
		for _, a := range allowed {
			if sameValue(a, candidate) {
				return true
			}
		}
		return false
	}

	return ValidatorFunc(func(_ context.Context, value any, vctx Context) Result {
		if IsEmpty(value) {
			return Pass()
		}
		var candidates []any
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				candidates = append(candidates, rv.Index(i).Interface())
			}
		} else {
			candidates = []any{value}
		}
		for _, candidate := range candidates {
			if !contains(candidate) {
				return failWithCode(CodeInvalidEnum, cfg.render(MessageEnum, vctx, value, map[string]any{"allowed": joined}), map[string]any{"allowed": allowed})
			}
		}
		return Pass()
	})
}

// Match requires the value to equal the snapshot value of otherField.
func Match(otherField string, opts ...Option) Validator {
	cfg := resolveOptions(opts)
	return ValidatorFunc(func(_ context.Context, value any, vctx Context) Result {
		other, _ := vctx.Value(otherField)
		if IsEmpty(value) && IsEmpty(other) {
			return Pass()
		}
		if !sameValue(value, other) {
			return failWithCode(CodeMismatch, cfg.render(MessageMatch, vctx, value, map[string]any{"other": otherField}), map[string]any{"other": otherField})
		}
		return Pass()
	})
}

// Bound is the right-hand side of GreaterThan and LessThan: either a literal
// or another field's snapshot value.
type Bound struct {
	literal any
	field   string
}

// Literal compares against a fixed number or date string.
func Literal(value any) Bound {
	return Bound{literal: value}
}

// FieldRef compares against another field's value.
func FieldRef(fieldID string) Bound {
	return Bound{field: fieldID}
}

func (b Bound) resolve(vctx Context) (any, string) {
	if b.field != "" {
		v, _ := vctx.Value(b.field)
		return v, b.field
	}
	return b.literal, asString(b.literal)
}

// GreaterThan requires value > bound. Numbers compare numerically; values that
// parse as dates or times compare chronologically. An empty bound field
// passes since there is nothing to compare against yet.
func GreaterThan(bound Bound, opts ...Option) Validator {
	return compareValidator(bound, 1, MessageGreaterThan, opts)
}

// LessThan requires value < bound. See GreaterThan.
func LessThan(bound Bound, opts ...Option) Validator {
	return compareValidator(bound, -1, MessageLessThan, opts)
}

func compareValidator(bound Bound, want int, fallback string, opts []Option) Validator {
	cfg := resolveOptions(opts)
	return ValidatorFunc(func(_ context.Context, value any, vctx Context) Result {
		if IsEmpty(value) {
			return Pass()
		}
		other, label := bound.resolve(vctx)
		if IsEmpty(other) {
			return Pass()
		}
		cmp, ok := compareValues(value, other)
		if !ok {
			return failWithCode(CodeNotANumber, cfg.render(MessageNotANumber, vctx, value, nil), nil)
		}
		if cmp != want {
			return failWithCode(CodeComparison, cfg.render(fallback, vctx, value, map[string]any{"bound": label}), map[string]any{"bound": label})
		}
		return Pass()
	})
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02", "15:04:05", "15:04"}

func compareValues(a, b any) (int, bool) {
	if fa, ok := ToFloat(a); ok {
		fb, ok := ToFloat(b)
		if !ok {
			return 0, false
		}
		return sign(fa - fb), true
	}
	ta, ok := toTime(a)
	if !ok {
		return 0, false
	}
	tb, ok := toTime(b)
	if !ok {
		return 0, false
	}
	return ta.Compare(tb), true
}

func toTime(value any) (time.Time, bool) {
	if t, ok := value.(time.Time); ok {
		return t, true
	}
	raw := strings.TrimSpace(asString(value))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
