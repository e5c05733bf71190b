package validation

import (
	"context"
	"errors"
	"time"
)

// AsyncFunc is the body of an asynchronous validator, for example a
// server-side uniqueness check. It should honour ctx cancellation.
type AsyncFunc func(ctx context.Context, value any, vctx Context) (Result, error)

// Async wraps fn. A cancelled ctx yields a discarded result, an error yields an
// internal failure, and a panic is recovered the same way.
func Async(fn AsyncFunc) Validator {
	return ValidatorFunc(func(ctx context.Context, value any, vctx Context) (result Result) {
		if fn == nil {
			return Pass()
		}
		if ctx == nil {
			ctx = context.Background()
		}
		if ctx.Err() != nil {
			return Discard()
		}
		defer func() {
			if recovered := recover(); recovered != nil {
				result = Internal(recovered)
			}
		}()

		res, err := fn(ctx, value, vctx)
		if ctx.Err() != nil {
			if errors.Is(context.Cause(ctx), errValidationTimeout) {
				return timeoutResult()
			}
			return Discard()
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return Discard()
			}
			return Internal(err)
		}
		return res
	})
}

var errValidationTimeout = errors.New("validation: timed out")

// WithTimeout bounds v by d. When the deadline passes first the validation
// resolves to a failure with MessageTimeout rather than being discarded.
func WithTimeout(v Validator, d time.Duration) Validator {
	if d <= 0 {
		return v
	}
	return ValidatorFunc(func(ctx context.Context, value any, vctx Context) Result {
		if ctx == nil {
			ctx = context.Background()
		}
		tctx, cancel := context.WithTimeoutCause(ctx, d, errValidationTimeout)
		defer cancel()

		done := make(chan Result, 1)
		go func() {
			done <- Run(tctx, v, value, vctx)
		}()

		select {
		case result := <-done:
			if result.Discarded && errors.Is(context.Cause(tctx), errValidationTimeout) {
				return timeoutResult()
			}
			return result
		case <-tctx.Done():
			if errors.Is(context.Cause(tctx), errValidationTimeout) && ctx.Err() == nil {
				return timeoutResult()
			}
			return Discard()
		}
	})
}

func timeoutResult() Result {
	return Result{Valid: false, Message: MessageTimeout, Details: map[string]any{"code": "timeout"}}
}
