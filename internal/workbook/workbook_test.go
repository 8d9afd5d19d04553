package workbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ReportMapper/internal/configdoc"
	"ReportMapper/internal/coords"
	"ReportMapper/internal/mapping"
	"ReportMapper/internal/period"
)

// writeFixture builds a small P&L:
//
//	row 3: headers  Jan 2025 | Feb 2025 | % growth | Mar 2025
//	row 5: Revenue
//	row 6: Online
//	row 9: Net income
func writeFixture(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "P&L"
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	cells := map[string]interface{}{
		"A3": "Line", "B3": "Jan 2025", "C3": "Feb 2025", "D3": "% growth", "E3": "Mar 2025",
		"A5": "Revenue", "B5": 1000, "C5": "1,200", "D5": "20%", "E5": "(50)",
		"A6": "Online", "B6": 400, "C6": "", "D6": "n/a", "E6": "-",
		"A9": "Net income", "B9": "$300.50", "C9": "abc", "E9": 75,
	}
	for ref, v := range cells {
		require.NoError(t, f.SetCellValue(sheet, ref, v))
	}
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "A1", "prepared by finance"))

	path := filepath.Join(t.TempDir(), "acme.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func fixtureConfig() *configdoc.Configuration {
	row := func(n int) *int { return &n }
	return configdoc.MergeAll(configdoc.New(configdoc.KindPnL, "Acme", time.Now()),
		configdoc.SetSheetName("P&L"),
		configdoc.SetPeriodsRange("B3:E3"),
		configdoc.SetVoidedColumns([]string{"D"}),
		configdoc.SetPeriodMapping(mapping.Mapping{
			{Column: "B", Period: period.Month(2025, 1)},
			{Column: "C", Period: period.Month(2025, 2)},
			{Column: "E", Period: period.Month(2025, 3)},
		}),
		configdoc.SetDataRows(map[string]int{"netIncome": 9}),
		configdoc.SetCategories("revenue", configdoc.Section{
			"Sales": {Row: row(5), Subcategories: map[string]int{"Online": 6}},
		}),
	)
}

func TestOpenXLSX(t *testing.T) {
	wb, err := Open(writeFixture(t))
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 2)

	s, err := wb.Sheet("p&l")
	require.NoError(t, err)
	assert.Equal(t, "Jan 2025", s.Cell("B", 3))
	assert.Equal(t, "1000", s.Cell("b", 5))
	assert.Equal(t, "", s.Cell("Z", 5))
	assert.Equal(t, "", s.Cell("B", 500))
	assert.Equal(t, "", s.Cell("B", 0))

	first, err := wb.Sheet("")
	require.NoError(t, err)
	assert.Equal(t, "P&L", first.Name)

	_, err = wb.Sheet("Balance sheet")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestOpenReaderRejectsUnknownFormats(t *testing.T) {
	_, err := OpenReader(strings.NewReader("a,b,c"), ".csv")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = OpenReader(strings.NewReader("not a workbook"), ".xlsx")
	assert.Error(t, err)

	_, err = OpenReader(strings.NewReader("not a workbook"), "xls")
	assert.Error(t, err)
}

func TestOpenXLS(t *testing.T) {
	wb, err := Open(filepath.Join("testdata", "legacy.xls"))
	require.NoError(t, err)

	first, err := wb.Sheet("Test sheet 1")
	require.NoError(t, err)
	assert.Equal(t, "Test1", first.Cell("A", 1))
	assert.Equal(t, "Ipsum", first.Cell("C", 1))
	assert.Equal(t, "Avocado", first.Cell("A", 2))

	second, err := wb.Sheet("Test sheet 2")
	require.NoError(t, err)
	assert.Equal(t, "Test2", second.Cell("A", 1))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHeaderLabels(t *testing.T) {
	wb, err := Open(writeFixture(t))
	require.NoError(t, err)
	s, _ := wb.Sheet("P&L")
	rng, err := coords.ParseRange("B3:E3")
	require.NoError(t, err)

	headers := HeaderLabels(s, rng)
	assert.Equal(t, map[string]string{"B": "Jan 2025", "C": "Feb 2025", "D": "% growth", "E": "Mar 2025"}, headers)

	as := period.DetectFromHeaders(headers, rng.Columns(), mapping.NewVoidSet("D").Func(), 2025)
	assert.Equal(t, []string{"Jan 2025", "Feb 2025", "Mar 2025"}, mapping.FromAssignments(as).Labels())
}

func TestResolve(t *testing.T) {
	wb, err := Open(writeFixture(t))
	require.NoError(t, err)
	s, _ := wb.Sheet("P&L")

	res, err := Resolve(fixtureConfig(), s)
	require.NoError(t, err)
	assert.Equal(t, "P&L", res.Sheet)

	for _, v := range res.Values {
		assert.NotEqual(t, "D", v.Column, "voided column resolved")
	}

	net := res.Totals("netIncome", "", "", "")
	assert.True(t, decimal.RequireFromString("300.50").Equal(net["Jan 2025"]))
	assert.True(t, decimal.NewFromInt(75).Equal(net["Mar 2025"]))
	assert.NotContains(t, net, "Feb 2025")

	sales := res.Totals("", "revenue", "Sales", "")
	assert.True(t, decimal.NewFromInt(1000).Equal(sales["Jan 2025"]))
	assert.True(t, decimal.NewFromInt(1200).Equal(sales["Feb 2025"]))
	assert.True(t, decimal.NewFromInt(-50).Equal(sales["Mar 2025"]))

	online := res.Totals("", "revenue", "Sales", "Online")
	assert.True(t, decimal.NewFromInt(400).Equal(online["Jan 2025"]))
	assert.True(t, decimal.Zero.Equal(online["Mar 2025"]))
	assert.NotContains(t, online, "Feb 2025")

	require.Len(t, res.Issues, 1)
	assert.Equal(t, "C9", res.Issues[0].Cell)
	assert.Equal(t, "abc", res.Issues[0].Raw)
}

func TestResolveNeedsPeriods(t *testing.T) {
	s := &Sheet{Name: "empty"}
	_, err := Resolve(nil, s)
	assert.ErrorIs(t, err, ErrNoStructure)

	_, err = Resolve(configdoc.New(configdoc.KindPnL, "x", time.Now()), s)
	assert.ErrorIs(t, err, ErrNoPeriods)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		err  error
	}{
		{"1234", "1234", nil},
		{" 1,234.50 ", "1234.5", nil},
		{"$1,000", "1000", nil},
		{"€ 12", "12", nil},
		{"(1,500)", "-1500", nil},
		{"-42", "-42", nil},
		{"-", "0", nil},
		{"—", "0", nil},
		{"1.5e3", "1500", nil},
		{"", "", ErrBlankCell},
		{"   ", "", ErrBlankCell},
		{"12%", "", ErrNotAmount},
		{"(-5)", "", ErrNotAmount},
		{"n/a", "", ErrNotAmount},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}
