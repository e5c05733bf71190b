package validation

import (
	"context"
	"strings"
)

// Chain runs validators in order and stops at the first failure, returning
// that failure unchanged.
func Chain(validators ...Validator) Validator {
	list := compact(validators)
	return ValidatorFunc(func(ctx context.Context, value any, vctx Context) Result {
		for _, v := range list {
			result := Run(ctx, v, value, vctx)
			if result.Discarded || !result.Valid {
				return result
			}
		}
		return Pass()
	})
}

// AndOptions configures how And reports failures.
type AndOptions struct {
	// Join reports every failure message joined by Separator instead of only
	// the first one.
	Join      bool
	Separator string
}

// And runs every validator regardless of earlier failures. On failure the
// first message is surfaced and all failed results are kept in
// Details["failures"].
func And(validators ...Validator) Validator {
	return AndWith(AndOptions{}, validators...)
}

// AndWith is And with configurable message reporting.
func AndWith(opts AndOptions, validators ...Validator) Validator {
	list := compact(validators)
	sep := opts.Separator
	if sep == "" {
		sep = "; "
	}
	return ValidatorFunc(func(ctx context.Context, value any, vctx Context) Result {
		var failures []Result
		for _, v := range list {
			result := Run(ctx, v, value, vctx)
			if result.Discarded {
				return result
			}
			if !result.Valid {
				failures = append(failures, result)
			}
		}
		if len(failures) == 0 {
			return Pass()
		}
		message := failures[0].Message
		if opts.Join {
			message = joinMessages(failures, sep)
		}
		return Result{
			Valid:   false,
			Message: message,
			Details: map[string]any{"failures": failures},
		}
	})
}

// Or succeeds as soon as one validator succeeds. When every validator fails
// the messages are joined with "; ".
func Or(validators ...Validator) Validator {
	return OrWithMessage("", validators...)
}

// OrWithMessage is Or with a caller-supplied message for total failure. An
// empty message falls back to joining the individual messages.
func OrWithMessage(message string, validators ...Validator) Validator {
	list := compact(validators)
	return ValidatorFunc(func(ctx context.Context, value any, vctx Context) Result {
		failures := make([]Result, 0, len(list))
		for _, v := range list {
			result := Run(ctx, v, value, vctx)
			if result.Discarded {
				return result
			}
			if result.Valid {
				return Pass()
			}
			failures = append(failures, result)
		}
		if len(failures) == 0 {
			return Pass()
		}
		msg := message
		if msg == "" {
			msg = joinMessages(failures, "; ")
		} else {
			msg = FormatMessage(msg, map[string]any{"field": vctx.name()})
		}
		return Result{
			Valid:   false,
			Message: msg,
			Details: map[string]any{"failures": failures},
		}
	})
}

// Not inverts v. The inner message is never reused: failure always reports
// message.
func Not(v Validator, message string) Validator {
	return ValidatorFunc(func(ctx context.Context, value any, vctx Context) Result {
		result := Run(ctx, v, value, vctx)
		if result.Discarded {
			return result
		}
		if result.Valid {
			return Fail(FormatMessage(message, map[string]any{"field": vctx.name(), "value": asString(value)}))
		}
		return Pass()
	})
}

// Predicate decides whether a Conditional validator applies.
type Predicate func(value any, vctx Context) bool

// Conditional delegates to v only when pred holds; otherwise it passes.
func Conditional(pred Predicate, v Validator) Validator {
	return ValidatorFunc(func(ctx context.Context, value any, vctx Context) Result {
		if pred == nil || !pred(value, vctx) {
			return Pass()
		}
		return Run(ctx, v, value, vctx)
	})
}

// WhenFieldSet is a Predicate that holds when another field has a non-empty
// value, the usual "required only if X is set" case.
func WhenFieldSet(fieldID string) Predicate {
	return func(_ any, vctx Context) bool {
		other, _ := vctx.Value(fieldID)
		return !IsEmpty(other)
	}
}

// WhenFieldEquals holds when another field's value equals want.
func WhenFieldEquals(fieldID string, want any) Predicate {
	return func(_ any, vctx Context) bool {
		other, _ := vctx.Value(fieldID)
		return sameValue(other, want)
	}
}

// Custom wraps a one-off check. message receives the failing value.
func Custom(check func(value any, vctx Context) bool, message func(value any) string) Validator {
	return ValidatorFunc(func(_ context.Context, value any, vctx Context) Result {
		if check == nil || check(value, vctx) {
			return Pass()
		}
		msg := MessagePattern
		if message != nil {
			msg = message(value)
		}
		return Fail(msg)
	})
}

func compact(validators []Validator) []Validator {
	out := make([]Validator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func joinMessages(results []Result, sep string) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if msg := strings.TrimSpace(r.Message); msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, sep)
}
