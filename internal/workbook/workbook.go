// Package workbook reads uploaded spreadsheets into plain string grids and
// applies a saved configuration to them.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"ReportMapper/internal/coords"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported workbook format")
	ErrNoSheets          = errors.New("workbook has no sheets")
	ErrSheetNotFound     = errors.New("sheet not found")
)

// Sheet is one worksheet as displayed text. Rows are 0-based here; Cell takes
// spreadsheet (1-based) row numbers.
type Sheet struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

type Workbook struct {
	Sheets []Sheet `json:"sheets"`
}

// Open reads a workbook from disk, choosing the reader by extension.
func Open(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return OpenReader(f, filepath.Ext(path))
}

// OpenReader reads a workbook from r. ext is a file extension such as
// ".xlsx" or ".xls".
func OpenReader(r io.Reader, ext string) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "xlsx", "xlsm", "xltx":
		return readXLSX(data)
	case "xls":
		return readXLS(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

func readXLSX(data []byte) (*Workbook, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer xl.Close()

	wb := &Workbook{}
	for _, name := range xl.GetSheetList() {
		rows, err := xl.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Rows: rows})
	}
	if len(wb.Sheets) == 0 {
		return nil, ErrNoSheets
	}
	return wb, nil
}

// readXLS goes through a temp file because the legacy reader only opens
// paths.
func readXLS(data []byte) (*Workbook, error) {
	tmpFile, err := os.CreateTemp("", "periodmap-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	if _, err := tmpFile.Write(data); err != nil {
		return nil, err
	}
	tmpFile.Close()

	book, err := xls.OpenFile(tmpFile.Name())
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}

	wb := &Workbook{}
	for i := 0; i < book.GetNumberSheets(); i++ {
		sheet, err := book.GetSheet(i)
		if err != nil || sheet == nil {
			continue
		}
		var rows [][]string
		for _, xlsRow := range sheet.GetRows() {
			var rowData []string
			for _, col := range xlsRow.GetCols() {
				rowData = append(rowData, col.GetString())
			}
			rows = append(rows, rowData)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: sheet.GetName(), Rows: rows})
	}
	if len(wb.Sheets) == 0 {
		return nil, ErrNoSheets
	}
	return wb, nil
}

// Sheet finds a sheet by name, case-insensitively. An empty name is the
// first sheet.
func (w *Workbook) Sheet(name string) (*Sheet, error) {
	if len(w.Sheets) == 0 {
		return nil, ErrNoSheets
	}
	if strings.TrimSpace(name) == "" {
		return &w.Sheets[0], nil
	}
	for i := range w.Sheets {
		if strings.EqualFold(w.Sheets[i].Name, strings.TrimSpace(name)) {
			return &w.Sheets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

// Cell returns the trimmed text at column/row, or "" outside the grid.
func (s *Sheet) Cell(column string, row int) string {
	if row < 1 || row > len(s.Rows) {
		return ""
	}
	idx, err := coords.ColumnToIndex(column)
	if err != nil {
		return ""
	}
	cells := s.Rows[row-1]
	if idx > len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx-1])
}

// HeaderLabels reads each column's cell on rng's own start row. The periods
// range is the header row, so these are the labels period detection reads.
func HeaderLabels(s *Sheet, rng coords.Range) map[string]string {
	out := make(map[string]string, rng.Len())
	for _, c := range rng.Columns() {
		out[c] = s.Cell(c, rng.StartRow)
	}
	return out
}
