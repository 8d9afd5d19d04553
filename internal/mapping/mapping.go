// Package mapping holds the ordered column -> period list for a configuration,
// the set of voided columns and the validator that runs after every edit.
package mapping

import (
	"sort"

	"ReportMapper/internal/coords"
	"ReportMapper/internal/period"
)

// ColumnPeriod pairs one spreadsheet column with its period.
type ColumnPeriod struct {
	Column string            `json:"column" yaml:"column"`
	Period period.Definition `json:"period" yaml:"period"`
}

// Mapping is ordered by spreadsheet column; columns are unique.
type Mapping []ColumnPeriod

// ChangeFunc receives the mapping after a mutation.
type ChangeFunc func(Mapping)

// FromAssignments converts inference output into a Mapping.
func FromAssignments(as []period.Assignment) Mapping {
	out := make(Mapping, 0, len(as))
	for _, a := range as {
		out = append(out, ColumnPeriod{Column: a.Column, Period: a.Period})
	}
	return out
}

// Clone deep-copies the mapping, including period pointer fields.
func (m Mapping) Clone() Mapping {
	if m == nil {
		return nil
	}
	out := make(Mapping, len(m))
	for i, cp := range m {
		out[i] = ColumnPeriod{Column: cp.Column, Period: cp.Period.Clone()}
	}
	return out
}

func (m Mapping) index(column string) int {
	for i, cp := range m {
		if cp.Column == column {
			return i
		}
	}
	return -1
}

// Get returns the period mapped to column.
func (m Mapping) Get(column string) (period.Definition, bool) {
	if i := m.index(column); i >= 0 {
		return m[i].Period, true
	}
	return period.Definition{}, false
}

// Has reports whether column is mapped.
func (m Mapping) Has(column string) bool {
	return m.index(column) >= 0
}

// Set inserts or replaces column's period, keeping spreadsheet order.
func (m Mapping) Set(column string, def period.Definition) Mapping {
	out := m.Clone()
	if i := out.index(column); i >= 0 {
		out[i].Period = def.Clone()
		return out
	}
	pos := sort.Search(len(out), func(i int) bool {
		return coords.CompareColumns(out[i].Column, column) > 0
	})
	out = append(out, ColumnPeriod{})
	copy(out[pos+1:], out[pos:])
	out[pos] = ColumnPeriod{Column: column, Period: def.Clone()}
	return out
}

// Remove drops column if present.
func (m Mapping) Remove(column string) Mapping {
	out := make(Mapping, 0, len(m))
	for _, cp := range m {
		if cp.Column == column {
			continue
		}
		out = append(out, ColumnPeriod{Column: cp.Column, Period: cp.Period.Clone()})
	}
	return out
}

// Columns lists the mapped columns in order.
func (m Mapping) Columns() []string {
	out := make([]string, 0, len(m))
	for _, cp := range m {
		out = append(out, cp.Column)
	}
	return out
}

// Labels lists the period labels in column order.
func (m Mapping) Labels() []string {
	out := make([]string, 0, len(m))
	for _, cp := range m {
		out = append(out, cp.Period.Label)
	}
	return out
}

// Normalized sorts by column and regenerates derived labels. Used on
// documents that arrive from outside (imports, the JSON text view).
func (m Mapping) Normalized() Mapping {
	out := m.Clone()
	for i := range out {
		out[i].Period = period.Relabel(out[i].Period)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return coords.CompareColumns(out[i].Column, out[j].Column) < 0
	})
	return out
}

// Reconcile fits a mapping to a (possibly new) column list: entries outside
// the range or voided are dropped, missing active columns get rollover
// defaults anchored at year.
func Reconcile(columns []string, m Mapping, voids *VoidSet, year int) Mapping {
	inRange := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		inRange[c] = struct{}{}
	}

	out := make(Mapping, 0, len(columns))
	for _, cp := range m {
		if _, ok := inRange[cp.Column]; !ok {
			continue
		}
		if voids.Contains(cp.Column) {
			continue
		}
		out = append(out, ColumnPeriod{Column: cp.Column, Period: cp.Period.Clone()})
	}

	var missing []string
	for _, c := range columns {
		if voids.Contains(c) || out.Has(c) {
			continue
		}
		missing = append(missing, c)
	}
	for _, a := range period.Rollover(missing, year) {
		out = out.Set(a.Column, a.Period)
	}
	return out.Normalized()
}
