package controller

import (
	"context"

	"go.uber.org/zap"
)

// SubmitTransformer mutates the submitted values before they reach the submit
// callback. A returned error fails the submission.
type SubmitTransformer func(map[string]any) (map[string]any, error)

// Option configures a Controller.
type Option func(*Controller)

// WithLiveValidation validates a field in the background every time its
// value changes.
func WithLiveValidation(enabled bool) Option {
	return func(c *Controller) {
		c.live = enabled
	}
}

// WithLogger attaches a zap logger. Nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSubmitTransformer appends a transformer applied, in registration order,
// to the values handed to the submit callback.
func WithSubmitTransformer(fn SubmitTransformer) Option {
	return func(c *Controller) {
		if fn != nil {
			c.transformers = append(c.transformers, fn)
		}
	}
}

// WithHiddenValues controls whether fields hidden by their visibility
// condition keep their last value in Values and in submissions. Hidden fields
// are excluded by default.
func WithHiddenValues(include bool) Option {
	return func(c *Controller) {
		c.includeHidden = include
	}
}

// WithContext sets the base context for background validations. Dispose
// cancels a context derived from it.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.parent = ctx
		}
	}
}
