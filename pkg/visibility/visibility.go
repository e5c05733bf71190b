package visibility

import (
	"reflect"
	"strings"

	"github.com/goliatone/go-formstate/pkg/model"
)

// Compiler turns a declarative visibleWhen rule into a condition evaluated
// against the current form values.
type Compiler interface {
	Compile(rule string) (model.VisibilityCondition, error)
}

// CompilerFunc adapts a function into a Compiler.
type CompilerFunc func(rule string) (model.VisibilityCondition, error)

// Compile delegates to the underlying function.
func (fn CompilerFunc) Compile(rule string) (model.VisibilityCondition, error) {
	return fn(rule)
}

// Always is the condition of a field without a rule.
func Always(map[string]any) bool { return true }

// FieldEquals is visible while values[fieldID] equals want. Strings are
// compared after trimming; other values use reflect.DeepEqual.
func FieldEquals(fieldID string, want any) model.VisibilityCondition {
	return func(values map[string]any) bool {
		got, ok := values[fieldID]
		if !ok {
			return want == nil
		}
		if gs, ok := got.(string); ok {
			if ws, ok := want.(string); ok {
				return strings.TrimSpace(gs) == strings.TrimSpace(ws)
			}
		}
		return reflect.DeepEqual(got, want)
	}
}

// FieldSet is visible while values[fieldID] holds a non-empty value.
func FieldSet(fieldID string) model.VisibilityCondition {
	return func(values map[string]any) bool {
		return Truthy(values[fieldID])
	}
}

// All is visible when every condition is. A nil entry counts as visible.
func All(conds ...model.VisibilityCondition) model.VisibilityCondition {
	return func(values map[string]any) bool {
		for _, cond := range conds {
			if cond != nil && !cond(values) {
				return false
			}
		}
		return true
	}
}

// Any is visible when at least one condition is.
func Any(conds ...model.VisibilityCondition) model.VisibilityCondition {
	return func(values map[string]any) bool {
		for _, cond := range conds {
			if cond == nil || cond(values) {
				return true
			}
		}
		return false
	}
}

// Not inverts cond.
func Not(cond model.VisibilityCondition) model.VisibilityCondition {
	return func(values map[string]any) bool {
		if cond == nil {
			return false
		}
		return !cond(values)
	}
}

// Truthy reports whether a form value counts as set: true booleans, non-blank
// strings, non-zero numbers and non-empty collections.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
