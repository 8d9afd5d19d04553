// Package coords parses spreadsheet A1 ranges into ordered column identifiers.
//
// Column identifiers are bijective base-26 numerals (A=1, Z=26, AA=27 ... XFD=16384).
// All enumeration goes through integers, so ranges spanning Z -> AA behave.
package coords

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrEmptyRange        = errors.New("range is empty")
	ErrMalformedRange    = errors.New("range must look like B3:M3")
	ErrColumnOutOfBounds = errors.New("column is outside the sheet bounds")
	ErrReversedRange     = errors.New("start column is after end column")
	ErrInvalidRow        = errors.New("row must be 1 or greater")
)

// RangeError carries the offending input alongside the sentinel reason.
type RangeError struct {
	Input  string
	Reason error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("parse range %q: %v", e.Input, e.Reason)
}

func (e *RangeError) Unwrap() error {
	return e.Reason
}

var rangePattern = regexp.MustCompile(`^\$?([A-Za-z]+)\$?([0-9]+):\$?([A-Za-z]+)\$?([0-9]+)$`)

// Range is a parsed A1 range. StartRow/EndRow are captured but not compared.
type Range struct {
	StartColumn string
	EndColumn   string
	StartRow    int
	EndRow      int
}

// ColumnToIndex converts a column identifier to its 1-based index.
func ColumnToIndex(col string) (int, error) {
	col = strings.TrimSpace(col)
	if col == "" {
		return 0, ErrEmptyRange
	}
	idx, err := excelize.ColumnNameToNumber(col)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrColumnOutOfBounds, col)
	}
	return idx, nil
}

// IndexToColumn converts a 1-based index back to a column identifier.
func IndexToColumn(idx int) (string, error) {
	name, err := excelize.ColumnNumberToName(idx)
	if err != nil {
		return "", fmt.Errorf("%w: %d", ErrColumnOutOfBounds, idx)
	}
	return name, nil
}

// ParseRange parses strings like "B3:M3" or "$B$3:$M$3".
func ParseRange(s string) (Range, error) {
	input := strings.TrimSpace(s)
	if input == "" {
		return Range{}, &RangeError{Input: s, Reason: ErrEmptyRange}
	}

	m := rangePattern.FindStringSubmatch(input)
	if m == nil {
		return Range{}, &RangeError{Input: s, Reason: ErrMalformedRange}
	}

	startIdx, err := ColumnToIndex(m[1])
	if err != nil {
		return Range{}, &RangeError{Input: s, Reason: ErrColumnOutOfBounds}
	}
	endIdx, err := ColumnToIndex(m[3])
	if err != nil {
		return Range{}, &RangeError{Input: s, Reason: ErrColumnOutOfBounds}
	}
	if startIdx > endIdx {
		return Range{}, &RangeError{Input: s, Reason: ErrReversedRange}
	}

	startRow, _ := strconv.Atoi(m[2])
	endRow, _ := strconv.Atoi(m[4])
	if startRow < 1 || endRow < 1 {
		return Range{}, &RangeError{Input: s, Reason: ErrInvalidRow}
	}

	// canonical upper-case names
	startCol, _ := IndexToColumn(startIdx)
	endCol, _ := IndexToColumn(endIdx)

	return Range{
		StartColumn: startCol,
		EndColumn:   endCol,
		StartRow:    startRow,
		EndRow:      endRow,
	}, nil
}

// Columns enumerates the identifiers from start to end inclusive.
func (r Range) Columns() []string {
	startIdx, err := ColumnToIndex(r.StartColumn)
	if err != nil {
		return nil
	}
	endIdx, err := ColumnToIndex(r.EndColumn)
	if err != nil || endIdx < startIdx {
		return nil
	}

	out := make([]string, 0, endIdx-startIdx+1)
	for i := startIdx; i <= endIdx; i++ {
		name, err := IndexToColumn(i)
		if err != nil {
			break
		}
		out = append(out, name)
	}
	return out
}

// Len is the number of columns in the range.
func (r Range) Len() int {
	startIdx, err1 := ColumnToIndex(r.StartColumn)
	endIdx, err2 := ColumnToIndex(r.EndColumn)
	if err1 != nil || err2 != nil || endIdx < startIdx {
		return 0
	}
	return endIdx - startIdx + 1
}

// SpansRows reports whether the start and end rows differ. Only the column
// span is used for period mapping; the row values are kept for callers.
func (r Range) SpansRows() bool {
	return r.StartRow != r.EndRow
}

func (r Range) String() string {
	return fmt.Sprintf("%s%d:%s%d", r.StartColumn, r.StartRow, r.EndColumn, r.EndRow)
}

// Columns parses s and returns its ordered column identifiers.
func Columns(s string) ([]string, error) {
	r, err := ParseRange(s)
	if err != nil {
		return nil, err
	}
	return r.Columns(), nil
}

// ColumnsOrEmpty is for callers that only need "nothing to map" on bad input.
func ColumnsOrEmpty(s string) []string {
	cols, err := Columns(s)
	if err != nil {
		return []string{}
	}
	return cols
}

// CompareColumns orders identifiers the way a spreadsheet does (B < Z < AA).
// Unparseable identifiers sort after valid ones, then lexically.
func CompareColumns(a, b string) int {
	ai, aerr := ColumnToIndex(a)
	bi, berr := ColumnToIndex(b)
	switch {
	case aerr != nil && berr != nil:
		return strings.Compare(a, b)
	case aerr != nil:
		return 1
	case berr != nil:
		return -1
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	}
	return 0
}
