// Package controller tracks the runtime state of a form: values, per-field
// errors, touched flags, in-flight validations and submission status.
//
// Validation results are guarded by a per-field generation counter. Every
// SetFieldValue, Reset and Dispose advances it, and a validator that
// finishes after the counter moved has its result ignored, so a slow async
// check can never overwrite the outcome for a newer value:
//
//	ctl := controller.New("signup", controller.WithLiveValidation(true))
//	_ = ctl.RegisterField(model.Field{ID: "username"}, uniqueUsername)
//	_ = ctl.SetFieldValue("username", "ada")
//	_ = ctl.SetFieldValue("username", "grace") // "ada" result is discarded
//
// Observers subscribe with OnChange and receive an Event after every
// mutation.
package controller
