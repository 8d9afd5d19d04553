package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const quarterly = `
name: Quarterly
type: pnl
structure:
  sheetName: P&L
  periodsRange: B3:E3
  voidedColumns: [D]
  periodMapping:
    - {column: B, period: {type: quarter, year: 2025, quarter: 1}}
    - {column: C, period: {type: quarter, year: 2025, quarter: 2}}
    - {column: E, period: {type: quarter, year: 2025, quarter: 3}}
  dataRows:
    revenue: 5
`

func TestColumns(t *testing.T) {
	out, err := run(t, "columns", "Y3:AB3")
	require.NoError(t, err)
	assert.Equal(t, "Y Z AA AB\n", out)

	_, err = run(t, "columns", "B3")
	assert.Error(t, err)
}

func TestInfer(t *testing.T) {
	out, err := run(t, "infer", "B3:M3", "--void", "f", "--year", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "Jan 2024"`)
	assert.Contains(t, out, `"label": "Nov 2024"`)
	assert.NotContains(t, out, `"column": "F"`)

	out, err = run(t, "infer", "B3:E3")
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "Q4 2025"`)
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", writeFile(t, "q.yaml", quarterly))
	require.NoError(t, err)
	assert.Contains(t, out, `"isValid": true`)

	dup := strings.Replace(quarterly, "quarter: 2}", "quarter: 1}", 1)
	out, err = run(t, "validate", writeFile(t, "dup.yaml", dup))
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, `"isValid": false`)
}

func TestFmt(t *testing.T) {
	path := writeFile(t, "q.hjson", `{
  # hand edited
  name: Quarterly
  type: pnl
  structure: { periodsRange: "B3:C3" },
}`)
	out, err := run(t, "fmt", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"periodsRange": "B3:C3"`)
	assert.Contains(t, out, `"version": 1`)

	out, err = run(t, "fmt", path, "--to", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "periodsRange:")
	assert.Contains(t, out, "B3:C3")

	_, err = run(t, "fmt", path, "--to", "toml")
	assert.Error(t, err)
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "P&L"))
	for ref, v := range map[string]interface{}{
		"B3": "Q1 2025", "C3": "Q2 2025", "D3": "notes", "E3": "Q3 2025",
		"B5": 100, "C5": "(25)", "D5": "ignored", "E5": "1,250.5",
	} {
		require.NoError(t, f.SetCellValue("P&L", ref, v))
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestDetect(t *testing.T) {
	book := writeWorkbook(t)
	out, err := run(t, "detect", book, "--range", "B3:E3", "--void", "D")
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "Q3 2025"`)
	assert.NotContains(t, out, `"column": "D"`)

	_, err = run(t, "detect", book)
	assert.Error(t, err, "--range is required")
}

func TestResolve(t *testing.T) {
	book := writeWorkbook(t)
	cfg := writeFile(t, "q.yaml", quarterly)

	out, err := run(t, "resolve", book, "--config", cfg, "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "CELL")
	assert.Contains(t, out, "C5")
	assert.Contains(t, out, "-25.00")
	assert.Contains(t, out, "1250.50")
	assert.NotContains(t, out, "ignored")

	out, err = run(t, "resolve", book, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `"sheet": "P&L"`)

	_, err = run(t, "resolve", book, "--config", cfg, "--format", "csv")
	assert.Error(t, err)
}
