// Package model defines the declarative form definition consumed by the
// builder and controller. A Form is pure data: an ordered list of Field
// entries, optional Sections that index into those fields by id, and
// submission hints for the host. Field.Validators holds registry references
// such as "required", "email" or "length:2,40" that pkg/builder resolves into
// validation.Validator values; Field.Metadata carries validator parameters
// (minLength, pattern, messages) alongside renderer hints the core ignores.
//
// Definitions are immutable once built and may be shared between controllers.
// Use Form.Clone or Field.Clone before mutating a copy.
package model
