package schema

import (
	"errors"
	"fmt"
)

// Per-view-context option records. Each context's options are a fixed struct;
// a field only appears in a view's derived schema when it carries that view's
// options.

type QueryOptions struct {
	Readonly bool
}

type FormOptions struct {
	Label       string
	Placeholder string
	InputType   string // text|email|number|select|textarea; empty = derived from the validator shape
	Required    bool
	Rows        int
	ShowWhen    *Visibility // per-context override of the field-level rule
}

type TableOptions struct {
	Label       string
	Width       int
	Sortable    bool
	Align       string // left|center|right
	DisplayType string // text|email|date
	ShowWhen    *Visibility
}

const (
	PositionHeader = "header"
	PositionBody   = "body"
	PositionFooter = "footer"
)

type CardOptions struct {
	Label           string
	Position        string // header|body|footer
	Size            string // sm|md|lg
	Style           string // primary|secondary|accent|muted
	HideFromPreview bool   // still available in the expanded view
	Icon            string
	ShowWhen        *Visibility
}

// Meta is shared, context-independent documentation for a field.
type Meta struct {
	Title       string
	Description string
	Examples    []any
}

// Field is a finalized, immutable field descriptor. The only producer is
// FieldBuilder.Build; there are no mutators, so a Field shared across views
// needs no locking.
type Field struct {
	key        string
	validator  *Validator
	meta       Meta
	query      *QueryOptions
	form       *FormOptions
	table      *TableOptions
	card       *CardOptions
	show       *Visibility
	skipInForm bool
	readonly   bool
}

func (f *Field) Key() string           { return f.key }
func (f *Field) Validator() *Validator { return f.validator }
func (f *Field) Meta() Meta            { return f.meta }
func (f *Field) Query() *QueryOptions  { return f.query }
func (f *Field) Form() *FormOptions    { return f.form }
func (f *Field) Table() *TableOptions  { return f.table }
func (f *Field) Card() *CardOptions    { return f.card }
func (f *Field) ShowWhen() *Visibility { return f.show }
func (f *Field) SkipInForm() bool      { return f.skipInForm }
func (f *Field) Readonly() bool        { return f.readonly }

// VisibleIn resolves the effective rule for a context: per-context override,
// then the field-level default, then always visible.
func (f *Field) VisibleIn(ctx ViewContext, values Record) bool {
	if o := f.overrideFor(ctx); o != nil {
		return o.Visible(values)
	}
	return f.show.Visible(values)
}

func (f *Field) overrideFor(ctx ViewContext) *Visibility {
	switch ctx {
	case ContextForm:
		if f.form != nil {
			return f.form.ShowWhen
		}
	case ContextTable:
		if f.table != nil {
			return f.table.ShowWhen
		}
	case ContextCard:
		if f.card != nil {
			return f.card.ShowWhen
		}
	}
	return nil
}

// visibilityRules collects every rule attached to the field, for the
// definition-time reference check.
func (f *Field) visibilityRules() []*Visibility {
	rules := []*Visibility{f.show}
	if f.form != nil {
		rules = append(rules, f.form.ShowWhen)
	}
	if f.table != nil {
		rules = append(rules, f.table.ShowWhen)
	}
	if f.card != nil {
		rules = append(rules, f.card.ShowWhen)
	}
	return rules
}

// FieldBuilder accumulates one field's configuration through a fluent chain
// ending in Build. After Build the builder is spent: any further chain call
// or a second Build reports ErrUseAfterBuild.
type FieldBuilder struct {
	field Field
	built bool
	err   error
}

// DefineField starts a field descriptor for the given key and validator.
func DefineField(key string, v *Validator) *FieldBuilder {
	b := &FieldBuilder{field: Field{key: key, validator: v}}
	if key == "" {
		b.err = errors.New("field key must not be empty")
	} else if v == nil {
		b.err = fmt.Errorf("field %s: validator must not be nil", key)
	}
	return b
}

func (b *FieldBuilder) mutable() bool {
	if b.built {
		if b.err == nil {
			b.err = fmt.Errorf("%w: %s", ErrUseAfterBuild, b.field.key)
		}
		return false
	}
	return true
}

func (b *FieldBuilder) Query(o QueryOptions) *FieldBuilder {
	if b.mutable() {
		opts := o
		b.field.query = &opts
		if o.Readonly {
			b.field.readonly = true
		}
	}
	return b
}

func (b *FieldBuilder) Form(o FormOptions) *FieldBuilder {
	if b.mutable() {
		opts := o
		b.field.form = &opts
	}
	return b
}

func (b *FieldBuilder) Table(o TableOptions) *FieldBuilder {
	if b.mutable() {
		opts := o
		b.field.table = &opts
	}
	return b
}

func (b *FieldBuilder) Card(o CardOptions) *FieldBuilder {
	if b.mutable() {
		opts := o
		if opts.Position == "" {
			opts.Position = PositionBody
		}
		b.field.card = &opts
	}
	return b
}

func (b *FieldBuilder) Meta(m Meta) *FieldBuilder {
	if b.mutable() {
		b.field.meta = m
	}
	return b
}

// ShowWhen sets the field-level visibility rule, applied in every view
// context unless a context's options override it.
func (b *FieldBuilder) ShowWhen(r *Visibility) *FieldBuilder {
	if b.mutable() {
		b.field.show = r
	}
	return b
}

func (b *FieldBuilder) SkipInForm() *FieldBuilder {
	if b.mutable() {
		b.field.skipInForm = true
	}
	return b
}

func (b *FieldBuilder) Readonly() *FieldBuilder {
	if b.mutable() {
		b.field.readonly = true
	}
	return b
}

// Build finalizes the descriptor. The returned Field is immutable; the
// builder refuses any further use.
func (b *FieldBuilder) Build() (*Field, error) {
	if b.built {
		return nil, fmt.Errorf("%w: %s", ErrUseAfterBuild, b.field.key)
	}
	b.built = true
	if b.err != nil {
		return nil, b.err
	}
	if c := b.field.card; c != nil {
		switch c.Position {
		case PositionHeader, PositionBody, PositionFooter:
		default:
			return nil, fmt.Errorf("field %s: invalid card position %q", b.field.key, c.Position)
		}
	}
	f := b.field
	return &f, nil
}
