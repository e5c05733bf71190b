// Package builder turns declarative form documents into model.Form values
// and ready-to-use controllers.
//
// Validator references are resolved by name against a validation.Registry
// that hosts extend before parsing:
//
//	b := builder.New()
//	b.Registry().Register("slug", slugFactory)
//	form, err := b.FromDeclaration(raw)
//	if err != nil {
//		return err
//	}
//	ctl, err := b.BuildController(form, controller.WithLiveValidation(true))
//
// The dynamic helpers (FromSections, SimpleForm, MergeForms, FilterForm,
// CloneForm) only operate on model.Form values and never touch controllers.
package builder
