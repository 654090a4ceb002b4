package view

import (
	"log"

	"facet/internal/schema"
)

type SelectOption struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// FormField is one renderable input of a form view.
type FormField struct {
	Key         string         `json:"key"`
	Label       string         `json:"label"`
	Placeholder string         `json:"placeholder,omitempty"`
	Widget      string         `json:"widget"`
	InputType   string         `json:"inputType"`
	Required    bool           `json:"required"`
	Rows        int            `json:"rows,omitempty"`
	Options     []SelectOption `json:"options,omitempty"`
	Value       any            `json:"value,omitempty"`
}

type FormView struct {
	Entity string      `json:"entity"`
	Fields []FormField `json:"fields"`
}

// BuildForm renders the form view model for a single (possibly partially
// filled) record. Per form-schema field, in declaration order: visibility is
// resolved against the in-progress values, the widget family comes from the
// validator shape, and the required marker from the validator's optionality.
// Date fields are skipped by convention. A shape the widget mapping does not
// know degrades to a disabled placeholder instead of sinking the whole form.
func BuildForm(def *schema.Definition, values schema.Record) *FormView {
	fv := &FormView{Entity: def.Name()}
	for _, f := range def.FormSchema().Fields() {
		widget, skip := widgetFor(f.Validator())
		if skip {
			continue
		}
		if !f.VisibleIn(schema.ContextForm, values) {
			continue
		}
		if widget == widgetUnsupported {
			log.Printf("form %s: field %s has no widget for shape %s, rendering placeholder",
				def.Name(), f.Key(), f.Validator().Kind())
		}
		opts := f.Form()
		ff := FormField{
			Key:         f.Key(),
			Label:       opts.Label,
			Placeholder: opts.Placeholder,
			Widget:      widget,
			InputType:   inputType(opts, widget),
			Required:    opts.Required || !f.Validator().IsOptional(),
			Rows:        opts.Rows,
			Value:       values[f.Key()],
		}
		if f.Validator().Kind() == schema.KindEnum {
			for _, code := range f.Validator().Enum() {
				ff.Options = append(ff.Options, SelectOption{Code: code, Label: code})
			}
		}
		fv.Fields = append(fv.Fields, ff)
	}
	return fv
}

// Submit validates an in-progress form payload: structural checks on the
// visible form fields, then the entity's cross-field rules. All errors are
// aggregated; an empty result means the submission is accepted.
func Submit(def *schema.Definition, values schema.Record) []schema.FieldError {
	return def.ValidateCandidate(def.FormSchema(), schema.ContextForm, values)
}

// widgetUnsupported is the degraded widget for a validator shape the mapping
// has no entry for. The field still renders, read-only, so one bad field
// cannot take the rest of the form down with it.
const widgetUnsupported = "unsupported"

// widgetFor maps a validator shape to a widget family. Dates are skipped in
// forms by convention.
func widgetFor(v *schema.Validator) (widget string, skip bool) {
	switch v.Kind() {
	case schema.KindEnum:
		return "select", false
	case schema.KindString:
		return "text", false
	case schema.KindNumber:
		return "number", false
	case schema.KindBool:
		return "toggle", false
	case schema.KindDate:
		return "", true
	default:
		return widgetUnsupported, false
	}
}

func inputType(opts *schema.FormOptions, widget string) string {
	if opts.InputType != "" {
		return opts.InputType
	}
	switch widget {
	case "select":
		return "select"
	case "number":
		return "number"
	case widgetUnsupported:
		return "hidden"
	default:
		return "text"
	}
}
