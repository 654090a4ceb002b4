package view

import (
	"fmt"
	"sort"
	"time"

	"facet/internal/schema"
)

// SortState is the table sort state machine. The zero value means "no sort,
// ascending". It is independent of any entity.
type SortState struct {
	Field string `json:"field,omitempty"`
	Desc  bool   `json:"desc"`
}

// Toggle is the column-header click transition: the same field flips
// direction, a new field resets to ascending.
func (s SortState) Toggle(field string) SortState {
	if s.Field == field {
		s.Desc = !s.Desc
		return s
	}
	return SortState{Field: field}
}

// SortRecords returns a stably sorted copy of records. Missing/nil values
// sort last regardless of direction; otherwise values compare in their
// natural order (numeric for numbers, chronological for times, lexicographic
// for everything else). Ties keep their original relative order so a re-sort
// after a data refresh is deterministic.
func SortRecords(records []schema.Record, s SortState) []schema.Record {
	out := append([]schema.Record(nil), records...)
	if s.Field == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return cmpByField(out[i], out[j], s.Field, s.Desc) < 0
	})
	return out
}

func cmpByField(a, b schema.Record, field string, desc bool) int {
	va, oka := a[field]
	vb, okb := b[field]

	na := !oka || va == nil
	nb := !okb || vb == nil
	if na && nb {
		return 0
	}
	// nulls last, ignoring direction
	if na {
		return +1
	}
	if nb {
		return -1
	}

	rel := compareValues(va, vb)
	if desc {
		rel = -rel
	}
	return rel
}

func compareValues(a, b any) int {
	if fa, ok := asNumber(a); ok {
		if fb, ok2 := asNumber(b); ok2 {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return +1
			}
			return 0
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok2 := b.(time.Time); ok2 {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return +1
			}
			return 0
		}
	}
	sa, sb := stringify(a), stringify(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return +1
	}
	return 0
}

func asNumber(v any) (float64, bool) {
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

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
