// Package validation implements the validator algebra used by the form
// controller. A Validator maps a value plus a snapshot Context of the whole
// form to a Result. Primitives (Required, Email, Length, Numeric, Match, ...)
// pass on empty input so they compose with Required; combinators (Chain, And,
// Or, Not, Conditional) evaluate their children strictly in declared order.
//
// Async validators receive the caller's context. Cancellation resolves to a
// discarded Result that the controller ignores, while WithTimeout turns an
// expired deadline into a failure.
//
// Declarations refer to validators by name through a Registry of factories:
//
//	reg := validation.NewRegistry()
//	reg.Register("username", func(p validation.Params) (validation.Validator, error) {
//		return validation.Async(checkUsername), nil
//	})
//	v, err := reg.Build("length:3,20", field)
//
// Failure messages are pongo2 templates; override them per validator with
// WithMessage or per field with metadata.messages.
package validation
