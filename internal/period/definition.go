// Package period models reporting periods attached to spreadsheet columns
// and the heuristics that guess them.
package period

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Type tags a Definition.
type Type string

const (
	TypeMonth   Type = "month"
	TypeQuarter Type = "quarter"
	TypeYear    Type = "year"
	TypeCustom  Type = "custom"
)

// Valid reports whether t is a known period type.
func (t Type) Valid() bool {
	switch t {
	case TypeMonth, TypeQuarter, TypeYear, TypeCustom:
		return true
	}
	return false
}

// Field names one editable attribute of a Definition.
type Field string

const (
	FieldType        Field = "type"
	FieldYear        Field = "year"
	FieldMonth       Field = "month"
	FieldQuarter     Field = "quarter"
	FieldCustomValue Field = "customValue"
	FieldLabel       Field = "label"
)

var (
	ErrUnknownType  = errors.New("unknown period type")
	ErrUnknownField = errors.New("unknown period field")
	ErrNotNumeric   = errors.New("value must be a whole number")
	ErrLabelLocked  = errors.New("label is derived for month, quarter and year periods")
)

var monthAbbrev = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Definition is one column's period. Label is derived from the other fields
// unless Type is custom.
type Definition struct {
	Type        Type   `json:"type" yaml:"type"`
	Year        *int   `json:"year,omitempty" yaml:"year,omitempty"`
	Month       *int   `json:"month,omitempty" yaml:"month,omitempty"`
	Quarter     *int   `json:"quarter,omitempty" yaml:"quarter,omitempty"`
	CustomValue string `json:"customValue,omitempty" yaml:"customValue,omitempty"`
	Label       string `json:"label" yaml:"label"`
}

func intPtr(v int) *int { return &v }

// Month returns a monthly definition with its label set.
func Month(year, month int) Definition {
	return Relabel(Definition{Type: TypeMonth, Year: intPtr(year), Month: intPtr(month)})
}

// Quarter returns a quarterly definition with its label set.
func Quarter(year, quarter int) Definition {
	return Relabel(Definition{Type: TypeQuarter, Year: intPtr(year), Quarter: intPtr(quarter)})
}

// Year returns a yearly definition with its label set.
func Year(year int) Definition {
	return Relabel(Definition{Type: TypeYear, Year: intPtr(year)})
}

// Custom returns a free-form definition. The label is the value itself.
func Custom(value string) Definition {
	return Definition{Type: TypeCustom, CustomValue: value, Label: value}
}

// Default is what a column gets when nothing better is known.
func Default(year int) Definition {
	return Month(year, 1)
}

// GenerateLabel renders the human-readable label, e.g. "Aug 2025", "Q3 2025", "2025".
func GenerateLabel(d Definition) string {
	year := ""
	if d.Year != nil {
		year = strconv.Itoa(*d.Year)
	}

	switch d.Type {
	case TypeMonth:
		name := ""
		if d.Month != nil {
			if *d.Month >= 1 && *d.Month <= 12 {
				name = monthAbbrev[*d.Month-1]
			} else {
				name = "M" + strconv.Itoa(*d.Month)
			}
		}
		return joinNonEmpty(name, year)
	case TypeQuarter:
		name := ""
		if d.Quarter != nil {
			name = "Q" + strconv.Itoa(*d.Quarter)
		}
		return joinNonEmpty(name, year)
	case TypeYear:
		return year
	case TypeCustom:
		return d.CustomValue
	}
	return ""
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Relabel returns d with Label regenerated. Custom definitions keep an
// explicit label and fall back to their value when the label is blank.
func Relabel(d Definition) Definition {
	if d.Type == TypeCustom {
		if strings.TrimSpace(d.Label) == "" {
			d.Label = d.CustomValue
		}
		return d
	}
	d.Label = GenerateLabel(d)
	return d
}

// Clone copies the pointer fields so edits never alias.
func (d Definition) Clone() Definition {
	out := d
	if d.Year != nil {
		out.Year = intPtr(*d.Year)
	}
	if d.Month != nil {
		out.Month = intPtr(*d.Month)
	}
	if d.Quarter != nil {
		out.Quarter = intPtr(*d.Quarter)
	}
	return out
}

// YearValue returns the year and whether it is set.
func (d Definition) YearValue() (int, bool) {
	if d.Year == nil {
		return 0, false
	}
	return *d.Year, true
}

// WithField applies one edit and regenerates the label. An empty numeric
// value clears the field.
func (d Definition) WithField(field Field, value string) (Definition, error) {
	out := d.Clone()
	value = strings.TrimSpace(value)

	switch field {
	case FieldType:
		t := Type(strings.ToLower(value))
		if !t.Valid() {
			return d, fmt.Errorf("%w: %q", ErrUnknownType, value)
		}
		out = retype(out, t)
	case FieldYear, FieldMonth, FieldQuarter:
		var n *int
		if value != "" {
			v, err := strconv.Atoi(value)
			if err != nil {
				return d, fmt.Errorf("%s: %w", field, ErrNotNumeric)
			}
			n = intPtr(v)
		}
		switch field {
		case FieldYear:
			out.Year = n
		case FieldMonth:
			out.Month = n
		case FieldQuarter:
			out.Quarter = n
		}
	case FieldCustomValue:
		followsValue := out.Label == "" || out.Label == out.CustomValue
		out.CustomValue = value
		if out.Type == TypeCustom && followsValue {
			out.Label = value
		}
	case FieldLabel:
		if out.Type != TypeCustom {
			return d, ErrLabelLocked
		}
		out.Label = value
	default:
		return d, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	return Relabel(out), nil
}

// retype switches type, dropping fields the new type does not use.
func retype(d Definition, t Type) Definition {
	if d.Type == t {
		return d
	}
	previous := GenerateLabel(d)
	d.Type = t
	switch t {
	case TypeMonth:
		d.Quarter = nil
		d.CustomValue = ""
		if d.Month == nil {
			d.Month = intPtr(1)
		}
	case TypeQuarter:
		d.Month = nil
		d.CustomValue = ""
		if d.Quarter == nil {
			d.Quarter = intPtr(1)
		}
	case TypeYear:
		d.Month = nil
		d.Quarter = nil
		d.CustomValue = ""
	case TypeCustom:
		d.Month = nil
		d.Quarter = nil
		d.CustomValue = previous
		d.Label = previous
	}
	return d
}
