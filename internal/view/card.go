package view

import "facet/internal/schema"

type CardField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value any    `json:"value,omitempty"`
	Size  string `json:"size,omitempty"`
	Style string `json:"style,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// Card is one record rendered for the card grid. Fields marked
// HideFromPreview land in Expanded instead of their section; Record carries
// the full record so a click can surface it to the caller without another
// fetch.
type Card struct {
	ID       string        `json:"id"`
	Header   []CardField   `json:"header,omitempty"`
	Body     []CardField   `json:"body,omitempty"`
	Footer   []CardField   `json:"footer,omitempty"`
	Expanded []CardField   `json:"expanded,omitempty"`
	Record   schema.Record `json:"record"`
}

type CardGridView struct {
	Entity string `json:"entity"`
	Cards  []Card `json:"cards"`
}

// BuildCards renders the card grid view model. Fields are grouped by their
// card position then declaration order; visibility is evaluated once per
// record. No validation happens here.
func BuildCards(def *schema.Definition, records []schema.Record) *CardGridView {
	gv := &CardGridView{Entity: def.Name()}
	layout := def.Cards()

	for _, rec := range records {
		card := Card{ID: recordID(rec), Record: rec}
		card.Header = cardSection(layout.Header, rec, &card)
		card.Body = cardSection(layout.Body, rec, &card)
		card.Footer = cardSection(layout.Footer, rec, &card)
		gv.Cards = append(gv.Cards, card)
	}
	return gv
}

func cardSection(fields []*schema.Field, rec schema.Record, card *Card) []CardField {
	var out []CardField
	for _, f := range fields {
		if !f.VisibleIn(schema.ContextCard, rec) {
			continue
		}
		o := f.Card()
		cf := CardField{
			Key:   f.Key(),
			Label: o.Label,
			Value: rec[f.Key()],
			Size:  o.Size,
			Style: o.Style,
			Icon:  o.Icon,
		}
		if o.HideFromPreview {
			card.Expanded = append(card.Expanded, cf)
			continue
		}
		out = append(out, cf)
	}
	return out
}
