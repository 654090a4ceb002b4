package view

import (
	"log"

	"facet/internal/schema"
)

type TableColumn struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Width       int    `json:"width,omitempty"`
	Sortable    bool   `json:"sortable,omitempty"`
	Align       string `json:"align,omitempty"`
	DisplayType string `json:"displayType,omitempty"`
}

// TableCell is one rendered cell. A column hidden for a particular row still
// produces a cell (Empty=true) so column alignment survives per-row
// visibility.
type TableCell struct {
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
	Empty bool   `json:"empty,omitempty"`
}

type TableRow struct {
	ID    string      `json:"id,omitempty"`
	Cells []TableCell `json:"cells"`
}

type TableView struct {
	Entity  string        `json:"entity"`
	Columns []TableColumn `json:"columns"`
	Rows    []TableRow    `json:"rows"`
	Sort    SortState     `json:"sort"`
}

// BuildTable renders the read-only table view model. Sorting is applied via
// the sort controller; visibility is re-evaluated per row, so two rows can
// show a different cell set based on their own data. A record whose keys do
// not overlap the schema is logged and rendered as an empty row rather than
// failing the view.
func BuildTable(def *schema.Definition, records []schema.Record, s SortState) *TableView {
	tv := &TableView{Entity: def.Name(), Sort: s}

	fields := def.TableFields()
	for _, f := range fields {
		o := f.Table()
		tv.Columns = append(tv.Columns, TableColumn{
			Key:         f.Key(),
			Label:       o.Label,
			Width:       o.Width,
			Sortable:    o.Sortable,
			Align:       o.Align,
			DisplayType: o.DisplayType,
		})
	}

	for _, rec := range SortRecords(records, s) {
		if !overlapsSchema(def, rec) {
			log.Printf("table %s: record %v does not match schema, rendering empty cells",
				def.Name(), rec["id"])
		}
		row := TableRow{ID: recordID(rec)}
		for _, f := range fields {
			if !f.VisibleIn(schema.ContextTable, rec) {
				row.Cells = append(row.Cells, TableCell{Key: f.Key(), Empty: true})
				continue
			}
			row.Cells = append(row.Cells, TableCell{Key: f.Key(), Value: rec[f.Key()]})
		}
		tv.Rows = append(tv.Rows, row)
	}
	return tv
}

func recordID(rec schema.Record) string {
	if s, ok := rec["id"].(string); ok {
		return s
	}
	return ""
}

func overlapsSchema(def *schema.Definition, rec schema.Record) bool {
	for _, f := range def.Fields() {
		if _, ok := rec[f.Key()]; ok {
			return true
		}
	}
	return false
}
