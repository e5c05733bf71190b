package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// InternalErrorMessage is reported when a validator panics or an async
// validator returns an error. The underlying cause is kept in
// Result.Details["cause"].
const InternalErrorMessage = "Validation failed due to an internal error"

// Result is the immutable outcome of a validator invocation. Discarded marks
// an async validation that was cancelled; it is neither valid nor invalid and
// callers must not record it.
type Result struct {
	Valid     bool           `json:"isValid"`
	Message   string         `json:"errorMessage,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Discarded bool           `json:"-"`
}

// Pass returns a successful result.
func Pass() Result {
	return Result{Valid: true}
}

// Fail returns a failed result carrying message.
func Fail(message string) Result {
	return Result{Valid: false, Message: message}
}

// Discard returns the result used for cancelled validations.
func Discard() Result {
	return Result{Discarded: true}
}

// Internal converts an unexpected error into a failed result.
func Internal(cause any) Result {
	return Result{
		Valid:   false,
		Message: InternalErrorMessage,
		Details: map[string]any{"cause": fmt.Sprint(cause)},
	}
}

func failWithCode(code, message string, params map[string]any) Result {
	details := make(map[string]any, len(params)+1)
	for k, v := range params {
		details[k] = v
	}
	details["code"] = code
	return Result{Valid: false, Message: message, Details: details}
}

// Code returns Details["code"] when present.
func (r Result) Code() string {
	if r.Details == nil {
		return ""
	}
	code, _ := r.Details["code"].(string)
	return code
}

// Context gives validators read access to a snapshot of the form values taken
// when validation of FieldID started.
type Context struct {
	FieldID string
	Label   string
	Values  map[string]any
}

// Value returns the snapshot value of another field.
func (c Context) Value(fieldID string) (any, bool) {
	if c.Values == nil {
		return nil, false
	}
	v, ok := c.Values[fieldID]
	return v, ok
}

func (c Context) name() string {
	if c.Label != "" {
		return c.Label
	}
	return c.FieldID
}

// Validator checks a single value. Implementations must be safe for
// concurrent use; the controller may validate several fields at once.
type Validator interface {
	Validate(ctx context.Context, value any, vctx Context) Result
}

// ValidatorFunc adapts a function into a Validator.
type ValidatorFunc func(ctx context.Context, value any, vctx Context) Result

// Validate calls the underlying function.
func (fn ValidatorFunc) Validate(ctx context.Context, value any, vctx Context) Result {
	return fn(ctx, value, vctx)
}

// Run invokes v, converting panics into an internal failure. A nil validator
// always passes.
func Run(ctx context.Context, v Validator, value any, vctx Context) (result Result) {
	if v == nil {
		return Pass()
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			result = Internal(recovered)
		}
	}()
	return v.Validate(ctx, value, vctx)
}

// IsEmpty reports whether value counts as absent: nil, blank strings, and
// empty slices or maps.
func IsEmpty(value any) bool {
	if value == nil {
		return true
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed) == ""
	case []byte:
		return strings.TrimSpace(string(typed)) == ""
	case json.Number:
		return strings.TrimSpace(typed.String()) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return IsEmpty(rv.Elem().Interface())
	}
	return false
}

func asString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(value)
	}
}

// ToFloat coerces numbers and numeric strings into a finite float64. NaN and
// infinities are not numbers for validation purposes.
func ToFloat(value any) (float64, bool) {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func sameValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	if a == nil || b == nil {
		return IsEmpty(a) && IsEmpty(b)
	}
	return asString(a) == asString(b)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
