package workbook

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ReportMapper/internal/configdoc"
	"ReportMapper/internal/mapping"
	"ReportMapper/internal/period"
)

var (
	ErrNoStructure = errors.New("configuration has no structure")
	ErrNoPeriods   = errors.New("configuration maps no period columns")
	ErrBlankCell   = errors.New("cell is blank")
	ErrNotAmount   = errors.New("cell is not an amount")
)

// Value is one resolved cell. Metric is set for data rows; Section, Category
// and Subcategory for category rows.
type Value struct {
	Metric      string            `json:"metric,omitempty"`
	Section     string            `json:"section,omitempty"`
	Category    string            `json:"category,omitempty"`
	Subcategory string            `json:"subcategory,omitempty"`
	Row         int               `json:"row"`
	Column      string            `json:"column"`
	Period      period.Definition `json:"period"`
	Amount      decimal.Decimal   `json:"amount"`
	Raw         string            `json:"raw"`
}

// CellIssue is a mapped cell whose text is not an amount. Issues do not stop
// resolution.
type CellIssue struct {
	Cell   string `json:"cell"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

type Result struct {
	Sheet  string      `json:"sheet"`
	Values []Value     `json:"values"`
	Issues []CellIssue `json:"issues"`
}

// rowTarget is one configured row to read across the period columns.
type rowTarget struct {
	metric, section, category, subcategory string
	row                                    int
}

// Resolve applies cfg to sheet. Every data row and category row is read in
// every mapped, non-voided column; blank cells are skipped.
func Resolve(cfg *configdoc.Configuration, sheet *Sheet) (*Result, error) {
	if cfg == nil || cfg.Structure == nil {
		return nil, ErrNoStructure
	}
	columns := activeMapping(cfg.Structure)
	if len(columns) == 0 {
		return nil, ErrNoPeriods
	}

	res := &Result{Sheet: sheet.Name, Values: []Value{}, Issues: []CellIssue{}}
	for _, t := range rowTargets(cfg.Structure) {
		for _, cp := range columns {
			raw := sheet.Cell(cp.Column, t.row)
			amount, err := ParseAmount(raw)
			if errors.Is(err, ErrBlankCell) {
				continue
			}
			if err != nil {
				res.Issues = append(res.Issues, CellIssue{
					Cell:   fmt.Sprintf("%s%d", cp.Column, t.row),
					Raw:    raw,
					Reason: err.Error(),
				})
				continue
			}
			res.Values = append(res.Values, Value{
				Metric:      t.metric,
				Section:     t.section,
				Category:    t.category,
				Subcategory: t.subcategory,
				Row:         t.row,
				Column:      cp.Column,
				Period:      cp.Period.Clone(),
				Amount:      amount,
				Raw:         raw,
			})
		}
	}
	return res, nil
}

func activeMapping(s *configdoc.Structure) mapping.Mapping {
	voids := mapping.NewVoidSet(s.VoidedColumns...)
	return voids.Exclude(s.PeriodMapping.Normalized())
}

// rowTargets lists data rows first, then categories, each in name order so
// results are stable.
func rowTargets(s *configdoc.Structure) []rowTarget {
	var out []rowTarget
	for _, metric := range sortedKeys(s.DataRows) {
		if row := s.DataRows[metric]; row > 0 {
			out = append(out, rowTarget{metric: metric, row: row})
		}
	}
	for _, section := range sortedKeys(s.Categories) {
		cats := s.Categories[section]
		for _, name := range sortedKeys(cats) {
			cat := cats[name]
			if cat.Row != nil && *cat.Row > 0 {
				out = append(out, rowTarget{section: section, category: name, row: *cat.Row})
			}
			for _, sub := range sortedKeys(cat.Subcategories) {
				if row := cat.Subcategories[sub]; row > 0 {
					out = append(out, rowTarget{section: section, category: name, subcategory: sub, row: row})
				}
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var amountReplacer = strings.NewReplacer(
	",", "", " ", "", "\u00a0", "",
	"$", "", "€", "", "£", "", "₹", "", "¥", "",
)

// ParseAmount reads a financial cell: thousands separators and currency
// symbols are ignored, "(123)" is negative and a lone dash is zero.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrBlankCell
	}
	switch s {
	case "-", "–", "—":
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = amountReplacer.Replace(s)
	if strings.HasPrefix(s, "-") && negative {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotAmount, raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// Totals sums values per period label for one metric or category. An empty
// subcategory selects the category row itself.
func (r *Result) Totals(metric, section, category, subcategory string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, v := range r.Values {
		if v.Metric != metric || v.Section != section || v.Category != category || v.Subcategory != subcategory {
			continue
		}
		out[v.Period.Label] = out[v.Period.Label].Add(v.Amount)
	}
	return out
}
