package schema

// Export converts a derived schema into a structural JSON-Schema-like
// document (draft 2020-12 keywords) for external tooling. The conversion is
// lossy: a validator shape with no structural representation falls back to
// the open schema {} instead of failing the whole export.
func Export(s *Schema) map[string]any {
	props := make(map[string]any, len(s.fields))
	var required []string

	for _, f := range s.fields {
		props[f.key] = exportField(f)
		if !f.validator.IsOptional() && !f.readonly {
			required = append(required, f.key)
		}
	}

	doc := map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"title":                s.entity,
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func exportField(f *Field) map[string]any {
	p := map[string]any{}
	switch f.validator.Kind() {
	case KindString:
		p["type"] = "string"
	case KindNumber:
		p["type"] = "number"
	case KindBool:
		p["type"] = "boolean"
	case KindDate:
		p["type"] = "string"
		p["format"] = "date"
	case KindEnum:
		enum := f.validator.Enum()
		vals := make([]any, len(enum))
		for i, e := range enum {
			vals[i] = e
		}
		p["type"] = "string"
		p["enum"] = vals
	default:
		// no structural representation — export as the open schema
		return p
	}
	if f.validator.IsNullable() {
		p["type"] = []any{p["type"], "null"}
	}
	if m := f.meta; m.Title != "" || m.Description != "" {
		if m.Title != "" {
			p["title"] = m.Title
		}
		if m.Description != "" {
			p["description"] = m.Description
		}
	}
	if len(f.meta.Examples) > 0 {
		p["examples"] = append([]any(nil), f.meta.Examples...)
	}
	return p
}
