package mapping

import (
	"fmt"
	"sort"
	"strings"

	"ReportMapper/internal/coords"
	"ReportMapper/internal/period"
)

// ValidateFunc receives the outcome of Validate.
type ValidateFunc func(isValid bool, errors []string)

// ValidationResult is advisory: callers decide whether to block a save.
type ValidationResult struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

// Validate checks every rule and reports every failure; no rule
// short-circuits another.
func Validate(m Mapping) ValidationResult {
	errs := make([]string, 0)
	errs = append(errs, duplicateColumns(m)...)
	errs = append(errs, duplicateLabels(m)...)

	for _, cp := range m {
		p := cp.Period
		if p.Year == nil {
			errs = append(errs, fmt.Sprintf("Column %s: Year is required", cp.Column))
		}
		switch p.Type {
		case period.TypeMonth:
			if p.Month == nil || *p.Month < 1 || *p.Month > 12 {
				errs = append(errs, fmt.Sprintf("Column %s: Month must be between 1 and 12", cp.Column))
			}
		case period.TypeQuarter:
			if p.Quarter == nil || *p.Quarter < 1 || *p.Quarter > 4 {
				errs = append(errs, fmt.Sprintf("Column %s: Quarter must be between 1 and 4", cp.Column))
			}
		case period.TypeCustom:
			if strings.TrimSpace(p.CustomValue) == "" {
				errs = append(errs, fmt.Sprintf("Column %s: Custom value is required", cp.Column))
			}
		case period.TypeYear:
		default:
			errs = append(errs, fmt.Sprintf("Column %s: Unknown period type %q", cp.Column, p.Type))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// duplicateLabels reports each shared label once, naming every column using it.
func duplicateLabels(m Mapping) []string {
	byLabel := make(map[string][]string)
	order := make([]string, 0)
	for _, cp := range m {
		label := period.Relabel(cp.Period).Label
		if _, seen := byLabel[label]; !seen {
			order = append(order, label)
		}
		byLabel[label] = append(byLabel[label], cp.Column)
	}

	var out []string
	for _, label := range order {
		cols := byLabel[label]
		if len(cols) < 2 {
			continue
		}
		out = append(out, fmt.Sprintf("Duplicate period label %q in columns %s", label, strings.Join(cols, ", ")))
	}
	return out
}

func duplicateColumns(m Mapping) []string {
	counts := make(map[string]int)
	for _, cp := range m {
		counts[cp.Column]++
	}
	var dup []string
	for c, n := range counts {
		if n > 1 {
			dup = append(dup, c)
		}
	}
	sort.Slice(dup, func(i, j int) bool { return coords.CompareColumns(dup[i], dup[j]) < 0 })

	out := make([]string, 0, len(dup))
	for _, c := range dup {
		out = append(out, fmt.Sprintf("Column %s: mapped more than once", c))
	}
	return out
}
