package period

import (
	"regexp"
	"strconv"
	"strings"
)

// Assignment pairs a column with a guessed period.
type Assignment struct {
	Column string
	Period Definition
}

func activeColumns(columns []string, voided func(string) bool) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if voided != nil && voided(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Infer guesses periods for the non-voided columns ("smart auto-detect").
//
//	12 active columns -> months 1..12 of year
//	4                 -> Q1..Q4 of year
//	1, 2 or 3         -> consecutive years starting at year
//	anything else     -> month (i%12)+1 of year+i/12
func Infer(columns []string, voided func(string) bool, year int) []Assignment {
	active := activeColumns(columns, voided)
	out := make([]Assignment, 0, len(active))

	switch n := len(active); {
	case n == 12:
		for i, c := range active {
			out = append(out, Assignment{Column: c, Period: Month(year, i+1)})
		}
	case n == 4:
		for i, c := range active {
			out = append(out, Assignment{Column: c, Period: Quarter(year, i+1)})
		}
	case n >= 1 && n <= 3:
		for i, c := range active {
			out = append(out, Assignment{Column: c, Period: Year(year + i)})
		}
	default:
		out = rollover(active, year)
	}
	return out
}

// Rollover is the initialization heuristic: monthly with year rollover
// regardless of the column count.
func Rollover(columns []string, year int) []Assignment {
	return rollover(columns, year)
}

func rollover(columns []string, year int) []Assignment {
	out := make([]Assignment, 0, len(columns))
	for i, c := range columns {
		out = append(out, Assignment{Column: c, Period: Month(year+i/12, i%12+1)})
	}
	return out
}

var (
	monthNameYearRe = regexp.MustCompile(`(?i)^([a-z]{3,9})\.?[\s\-/']*(\d{2}|\d{4})$`)
	yearMonthRe     = regexp.MustCompile(`^(\d{4})[\-/.](\d{1,2})$`)
	monthYearRe     = regexp.MustCompile(`^(\d{1,2})[\-/.](\d{4})$`)
	quarterYearRe   = regexp.MustCompile(`(?i)^q([1-4])[\s\-/']*(?:fy)?(\d{2}|\d{4})$`)
	yearQuarterRe   = regexp.MustCompile(`(?i)^(\d{4})[\s\-/]*q([1-4])$`)
	yearOnlyRe      = regexp.MustCompile(`(?i)^(?:fy|cy)?\s*(\d{4})$`)
)

var monthNames = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

func expandYear(s string) int {
	y, _ := strconv.Atoi(s)
	if len(s) == 2 {
		y += 2000
	}
	return y
}

// ParseLabel recognizes common header spellings of a period:
// "Aug 2025", "August-25", "2025-08", "08/2025", "Q3 2025", "2025 Q3", "FY2025", "2025".
func ParseLabel(text string) (Definition, bool) {
	s := strings.Join(strings.Fields(text), " ")
	if s == "" {
		return Definition{}, false
	}

	if m := monthNameYearRe.FindStringSubmatch(s); m != nil {
		if month, ok := monthNames[strings.ToLower(m[1])]; ok {
			return Month(expandYear(m[2]), month), true
		}
	}
	if m := yearMonthRe.FindStringSubmatch(s); m != nil {
		if month, _ := strconv.Atoi(m[2]); month >= 1 && month <= 12 {
			return Month(expandYear(m[1]), month), true
		}
	}
	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		if month, _ := strconv.Atoi(m[1]); month >= 1 && month <= 12 {
			return Month(expandYear(m[2]), month), true
		}
	}
	if m := quarterYearRe.FindStringSubmatch(s); m != nil {
		q, _ := strconv.Atoi(m[1])
		return Quarter(expandYear(m[2]), q), true
	}
	if m := yearQuarterRe.FindStringSubmatch(s); m != nil {
		q, _ := strconv.Atoi(m[2])
		return Quarter(expandYear(m[1]), q), true
	}
	if m := yearOnlyRe.FindStringSubmatch(s); m != nil {
		return Year(expandYear(m[1])), true
	}
	return Definition{}, false
}

// DetectFromHeaders reads each active column's header text. If any active
// column cannot be read as a period the whole set falls back to Infer.
func DetectFromHeaders(headers map[string]string, columns []string, voided func(string) bool, year int) []Assignment {
	active := activeColumns(columns, voided)
	out := make([]Assignment, 0, len(active))
	for _, c := range active {
		def, ok := ParseLabel(headers[c])
		if !ok {
			return Infer(columns, voided, year)
		}
		out = append(out, Assignment{Column: c, Period: def})
	}
	return out
}
