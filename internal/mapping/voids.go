package mapping

import (
	"sort"

	"ReportMapper/internal/coords"
	"ReportMapper/internal/period"
)

// VoidSet tracks columns excluded from the mapping (percentage columns,
// subtotals). The last period of a voided column is kept as a tombstone so
// that un-voiding restores it.
type VoidSet struct {
	voided     map[string]struct{}
	tombstones map[string]period.Definition
}

// NewVoidSet returns a set containing columns.
func NewVoidSet(columns ...string) *VoidSet {
	v := &VoidSet{
		voided:     make(map[string]struct{}),
		tombstones: make(map[string]period.Definition),
	}
	for _, c := range columns {
		v.voided[c] = struct{}{}
	}
	return v
}

// Contains is nil-safe.
func (v *VoidSet) Contains(column string) bool {
	if v == nil {
		return false
	}
	_, ok := v.voided[column]
	return ok
}

// Func adapts the set for period.Infer.
func (v *VoidSet) Func() func(string) bool {
	return v.Contains
}

// Len is the number of voided columns.
func (v *VoidSet) Len() int {
	if v == nil {
		return 0
	}
	return len(v.voided)
}

// Columns returns the voided columns in spreadsheet order.
func (v *VoidSet) Columns() []string {
	if v == nil {
		return []string{}
	}
	out := make([]string, 0, len(v.voided))
	for c := range v.voided {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return coords.CompareColumns(out[i], out[j]) < 0
	})
	return out
}

// Tombstone returns the period remembered for a voided column.
func (v *VoidSet) Tombstone(column string) (period.Definition, bool) {
	if v == nil {
		return period.Definition{}, false
	}
	def, ok := v.tombstones[column]
	return def, ok
}

// Clone copies membership and tombstones.
func (v *VoidSet) Clone() *VoidSet {
	out := NewVoidSet()
	if v == nil {
		return out
	}
	for c := range v.voided {
		out.voided[c] = struct{}{}
	}
	for c, def := range v.tombstones {
		out.tombstones[c] = def.Clone()
	}
	return out
}

// ToggleVoid flips column's membership and returns the updated mapping.
//
// Voiding removes the column's entry unconditionally and remembers it.
// Un-voiding restores the remembered period, or a fresh default (month 1 of
// fallbackYear) when there is none, at the column's position.
func ToggleVoid(m Mapping, v *VoidSet, column string, fallbackYear int) Mapping {
	if v.voided == nil {
		v.voided = make(map[string]struct{})
	}
	if v.tombstones == nil {
		v.tombstones = make(map[string]period.Definition)
	}

	if v.Contains(column) {
		delete(v.voided, column)
		if m.Has(column) {
			return m.Clone()
		}
		def, ok := v.tombstones[column]
		if !ok {
			def = period.Default(fallbackYear)
		}
		delete(v.tombstones, column)
		return m.Set(column, def)
	}

	v.voided[column] = struct{}{}
	if def, ok := m.Get(column); ok {
		v.tombstones[column] = def.Clone()
	}
	return m.Remove(column)
}

// WithMembers returns a set voiding exactly columns. Tombstones of columns
// that stay voided are carried over.
func (v *VoidSet) WithMembers(columns []string) *VoidSet {
	out := NewVoidSet(columns...)
	if v == nil {
		return out
	}
	for c, def := range v.tombstones {
		if out.Contains(c) {
			out.tombstones[c] = def.Clone()
		}
	}
	return out
}

// Exclude removes voided columns from m, remembering their periods when no
// tombstone exists yet. A column is never both voided and mapped.
func (v *VoidSet) Exclude(m Mapping) Mapping {
	if v.Len() == 0 {
		return m.Clone()
	}
	out := make(Mapping, 0, len(m))
	for _, cp := range m {
		if !v.Contains(cp.Column) {
			out = append(out, ColumnPeriod{Column: cp.Column, Period: cp.Period.Clone()})
			continue
		}
		if _, ok := v.tombstones[cp.Column]; !ok {
			v.tombstones[cp.Column] = cp.Period.Clone()
		}
	}
	return out
}
