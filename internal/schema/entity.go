package schema

import (
	"errors"
	"fmt"
	"time"
)

// CacheConfig is the entity's caching policy, consumed by the data-access
// layer.
type CacheConfig struct {
	StaleTime time.Duration // fresh window for cached list results
	GCTime    time.Duration // eligible for eviction after this much disuse
}

// Config assembles an entity definition. Field order is declaration order and
// drives form field order and table column order.
type Config struct {
	Name       string
	Transport  Transport
	Cache      CacheConfig
	Validation []Rule
	Fields     []*FieldBuilder
}

// Schema is one derived projection of an entity's fields. Derived once at
// definition time and never mutated, so it is safe to share across views.
type Schema struct {
	entity string
	fields []*Field
	byKey  map[string]*Field
}

func (s *Schema) Entity() string          { return s.entity }
func (s *Schema) Fields() []*Field        { return s.fields }
func (s *Schema) Field(key string) *Field { return s.byKey[key] }

// CardLayout groups the card-bearing fields by position, declaration order
// preserved within each section.
type CardLayout struct {
	Header []*Field
	Body   []*Field
	Footer []*Field
}

// Definition is the aggregated, sealed description of one entity: ordered
// field descriptors, cross-field rules, cache policy, transport, and the five
// derived artifacts. All referential integrity is checked here, before first
// render.
type Definition struct {
	name      string
	fields    []*Field
	byKey     map[string]*Field
	rules     []Rule
	cache     CacheConfig
	transport Transport

	base   *Schema
	form   *Schema
	update *Schema
	table  []*Field
	cards  *CardLayout
}

func (d *Definition) Name() string            { return d.name }
func (d *Definition) Fields() []*Field        { return d.fields }
func (d *Definition) Field(key string) *Field { return d.byKey[key] }
func (d *Definition) Rules() []Rule           { return d.rules }
func (d *Definition) Cache() CacheConfig      { return d.cache }
func (d *Definition) Transport() Transport    { return d.transport }

// The derived schemas. Computed once in DefineEntity; repeated calls return
// the same objects.
func (d *Definition) Base() *Schema         { return d.base }
func (d *Definition) FormSchema() *Schema   { return d.form }
func (d *Definition) UpdateSchema() *Schema { return d.update }
func (d *Definition) TableFields() []*Field { return d.table }
func (d *Definition) Cards() *CardLayout    { return d.cards }

// DefineEntity builds the field descriptors, checks key uniqueness and
// visibility references, and derives the base/form/update/table/card
// artifacts.
func DefineEntity(cfg Config) (*Definition, error) {
	if cfg.Name == "" {
		return nil, errors.New("entity name must not be empty")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("entity %s: transport must not be nil", cfg.Name)
	}

	d := &Definition{
		name:      cfg.Name,
		byKey:     make(map[string]*Field, len(cfg.Fields)),
		rules:     append([]Rule(nil), cfg.Validation...),
		cache:     cfg.Cache,
		transport: cfg.Transport,
	}

	for _, fb := range cfg.Fields {
		f, err := fb.Build()
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", cfg.Name, err)
		}
		if _, dup := d.byKey[f.key]; dup {
			return nil, fmt.Errorf("entity %s: %w: %s", cfg.Name, ErrDuplicateFieldKey, f.key)
		}
		d.fields = append(d.fields, f)
		d.byKey[f.key] = f
	}

	// Visibility references are checked once, here — a rule naming a missing
	// or self field is a definition bug, not a render-time condition.
	for _, f := range d.fields {
		for _, rule := range f.visibilityRules() {
			if rule == nil {
				continue
			}
			dep := rule.DependsOn()
			if dep == f.key {
				return nil, fmt.Errorf("entity %s: field %s: %w: rule depends on itself",
					cfg.Name, f.key, ErrDanglingVisibilityReference)
			}
			if _, ok := d.byKey[dep]; !ok {
				return nil, fmt.Errorf("entity %s: field %s: %w: %s",
					cfg.Name, f.key, ErrDanglingVisibilityReference, dep)
			}
		}
	}

	d.derive()
	return d, nil
}

func (d *Definition) derive() {
	d.base = d.project(func(*Field) bool { return true }, false)
	d.form = d.project(func(f *Field) bool { return f.form != nil && !f.skipInForm }, false)
	d.update = d.project(func(*Field) bool { return true }, true)

	for _, f := range d.fields {
		if f.table != nil {
			d.table = append(d.table, f)
		}
	}

	d.cards = &CardLayout{}
	for _, f := range d.fields {
		if f.card == nil {
			continue
		}
		switch f.card.Position {
		case PositionHeader:
			d.cards.Header = append(d.cards.Header, f)
		case PositionFooter:
			d.cards.Footer = append(d.cards.Footer, f)
		default:
			d.cards.Body = append(d.cards.Body, f)
		}
	}
}

func (d *Definition) project(keep func(*Field) bool, allOptional bool) *Schema {
	s := &Schema{entity: d.name, byKey: map[string]*Field{}}
	for _, f := range d.fields {
		if !keep(f) {
			continue
		}
		g := f
		if allOptional {
			c := *f
			c.validator = f.validator.asOptional()
			g = &c
		}
		s.fields = append(s.fields, g)
		s.byKey[g.key] = g
	}
	return s
}

// Validate runs structural validation of values against the schema and
// normalizes the checked values in place. Unknown keys are ignored.
func (s *Schema) Validate(values Record) []FieldError {
	var errs []FieldError

	// 1) required
	for _, f := range s.fields {
		if f.validator.IsOptional() || f.readonly {
			continue
		}
		if _, ok := values[f.key]; !ok {
			errs = append(errs, ferr(CodeRequired, f.key, "Field '"+f.key+"' is required"))
		}
	}

	// 2) per-field coercion + leaf checks
	for key, val := range values {
		f := s.byKey[key]
		if f == nil {
			continue
		}
		norm, err := f.validator.Validate(val)
		if err != nil {
			errs = append(errs, ferr(codeOf(err), key, "Field '"+key+"' "+err.Error()))
			continue
		}
		values[key] = norm
	}

	return errs
}

// ValidateCandidate is the full submission check for a candidate record:
// structural validation of the schema's fields that are visible in the given
// context, followed by the entity's cross-field rules. All errors are
// aggregated; an empty result means accepted.
func (d *Definition) ValidateCandidate(s *Schema, ctx ViewContext, values Record) []FieldError {
	visible := &Schema{entity: s.entity, byKey: map[string]*Field{}}
	for _, f := range s.fields {
		if !f.VisibleIn(ctx, values) {
			continue
		}
		visible.fields = append(visible.fields, f)
		visible.byKey[f.key] = f
	}
	errs := visible.Validate(values)
	errs = append(errs, ValidateRules(d.rules, values)...)
	return errs
}
