// Package sanitize strips markup from submitted form values before they are
// handed to the host's submit callback.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/pkg/controller"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
	richOnce     sync.Once
	richPolicy   *bluemonday.Policy
)

func strict() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

func rich() *bluemonday.Policy {
	richOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		richPolicy = policy
	})
	return richPolicy
}

// Sanitizer cleans string values. Plain fields lose every tag; rich text
// fields keep the user-generated-content subset of HTML.
type Sanitizer struct {
	plain    *bluemonday.Policy
	richText *bluemonday.Policy
	rich     map[string]struct{}
	skip     map[string]struct{}
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithPolicy replaces the policy applied to plain fields.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(s *Sanitizer) {
		if policy != nil {
			s.plain = policy
		}
	}
}

// WithRichText marks fields (typically textareas) that may keep basic
// formatting markup.
func WithRichText(fieldIDs ...string) Option {
	return func(s *Sanitizer) {
		for _, id := range fieldIDs {
			s.rich[id] = struct{}{}
		}
	}
}

// WithSkip leaves the named fields untouched, for example password inputs.
func WithSkip(fieldIDs ...string) Option {
	return func(s *Sanitizer) {
		for _, id := range fieldIDs {
			s.skip[id] = struct{}{}
		}
	}
}

// New returns a Sanitizer using bluemonday's strict policy for plain fields.
func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{
		plain:    strict(),
		richText: rich(),
		rich:     make(map[string]struct{}),
		skip:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Values returns a copy of values with every string, including strings nested
// in slices and maps, sanitized. The input map is not modified.
func (s *Sanitizer) Values(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for id, value := range values {
		if _, ok := s.skip[id]; ok {
			out[id] = value
			continue
		}
		policy := s.plain
		if _, ok := s.rich[id]; ok {
			policy = s.richText
		}
		out[id] = clean(policy, value)
	}
	return out
}

// Transformer adapts the sanitizer to a controller submit transformer.
func (s *Sanitizer) Transformer() controller.SubmitTransformer {
	return func(values map[string]any) (map[string]any, error) {
		return s.Values(values), nil
	}
}

// String sanitizes a single value with the strict policy.
func String(raw string) string {
	return strings.TrimSpace(strict().Sanitize(raw))
}

func clean(policy *bluemonday.Policy, value any) any {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(policy.Sanitize(typed))
	case []string:
		out := make([]string, len(typed))
		for i, item := range typed {
			out[i] = strings.TrimSpace(policy.Sanitize(item))
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = clean(policy, item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = clean(policy, item)
		}
		return out
	default:
		return value
	}
}
