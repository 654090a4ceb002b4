package schema

// ViewContext names one consumption purpose for a field.
type ViewContext string

const (
	ContextQuery ViewContext = "query"
	ContextForm  ViewContext = "form"
	ContextTable ViewContext = "table"
	ContextCard  ViewContext = "card"
)

// Visibility decides whether a field renders, given the sibling values of the
// record currently on screen. Two variants: Equals compares a sibling field
// against a literal, When runs an arbitrary predicate.
type Visibility struct {
	field     string
	literal   any
	predicate func(value any, values Record) bool
}

// Equals shows the field iff values[field] == literal. A missing sibling
// never equals a literal, so the dependent field stays hidden until the
// dependency is set.
func Equals(field string, literal any) *Visibility {
	return &Visibility{field: field, literal: literal}
}

// When shows the field iff the predicate holds for (values[field], values).
func When(field string, predicate func(value any, values Record) bool) *Visibility {
	return &Visibility{field: field, predicate: predicate}
}

// DependsOn names the sibling field the rule reads. Checked against the
// entity's field set at definition time.
func (r *Visibility) DependsOn() string { return r.field }

// Visible evaluates the rule against the current values. No rule means always
// visible. A panicking predicate fails closed: the field hides instead of
// aborting the render.
func (r *Visibility) Visible(values Record) (visible bool) {
	if r == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			visible = false
		}
	}()
	v, ok := values[r.field]
	if r.predicate != nil {
		return r.predicate(v, values)
	}
	if !ok {
		return false
	}
	return scalarEqual(v, r.literal)
}

// scalarEqual compares with numeric tolerance for the float64/int split that
// JSON decoding introduces.
func scalarEqual(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok2 := asFloat(b)
		return ok2 && fa == fb
	}
	if _, ok := asFloat(b); ok {
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
