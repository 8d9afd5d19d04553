package configdoc

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReportMapper/internal/mapping"
	"ReportMapper/internal/period"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func row(n int) *int { return &n }

func sample(t *testing.T) *Configuration {
	t.Helper()
	c := New(KindPnL, "Acme P&L", fixedNow)
	c = MergeAll(c,
		SetPeriodsRange("B3:E3"),
		SetPeriodMapping(mapping.Mapping{
			{Column: "B", Period: period.Quarter(2025, 1)},
			{Column: "C", Period: period.Quarter(2025, 2)},
		}),
		SetCategories("revenue", Section{
			"Product sales": {Row: row(5), Subcategories: map[string]int{"Online": 6, "Retail": 7}},
		}),
		SetDataRows(map[string]int{"netIncome": 40}),
	)
	return c
}

func TestNewInitializesSections(t *testing.T) {
	c := New(KindCashflow, "Cash", fixedNow)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 1, c.Version)
	assert.True(t, c.IsActive)
	require.NotNil(t, c.Structure)
	assert.Contains(t, c.Structure.Categories, "inflows")
	assert.Contains(t, c.Structure.Categories, "outflows")
	assert.Equal(t, "2025-03-14T09:30:00Z", c.CreatedAt)
}

func TestMergeLeavesCurrentUntouched(t *testing.T) {
	c := sample(t)
	before := Clone(c)

	next := Merge(c, SetName("Renamed"))
	assert.Equal(t, "Renamed", next.Name)
	assert.Equal(t, "Acme P&L", c.Name)
	assert.Empty(t, cmp.Diff(before, c))
}

func TestMergeDisjointSubtreesDoNotInterfere(t *testing.T) {
	c := sample(t)
	revenueBefore := Clone(c).Structure.Categories["revenue"]
	mappingBefore := c.Structure.PeriodMapping.Clone()

	afterMapping := Merge(c, SetPeriodMapping(mapping.Mapping{
		{Column: "B", Period: period.Year(2030)},
	}))
	assert.Empty(t, cmp.Diff(revenueBefore, afterMapping.Structure.Categories["revenue"]))

	afterRevenue := Merge(c, SetCategories("revenue", Section{"Services": {Row: row(9)}}))
	assert.Empty(t, cmp.Diff(mappingBefore, afterRevenue.Structure.PeriodMapping))
	assert.Contains(t, afterRevenue.Structure.Categories["revenue"], "Services")
	assert.NotContains(t, afterRevenue.Structure.Categories["revenue"], "Product sales")
}

func TestMergeDoesNotAliasUpdateValues(t *testing.T) {
	c := sample(t)
	section := Section{"Fees": {Row: row(11), Subcategories: map[string]int{"Late": 12}}}

	next := Merge(c, SetCategories("revenue", section))
	*section["Fees"].Row = 99
	section["Fees"].Subcategories["Late"] = 100

	got := next.Structure.Categories["revenue"]["Fees"]
	assert.Equal(t, 11, *got.Row)
	assert.Equal(t, 12, got.Subcategories["Late"])
}

func TestCloneIsDeep(t *testing.T) {
	c := sample(t)
	cp := Clone(c)

	*cp.Structure.Categories["revenue"]["Product sales"].Row = 500
	*cp.Structure.PeriodMapping[0].Period.Year = 1999
	cp.Structure.DataRows["netIncome"] = 1

	assert.Equal(t, 5, *c.Structure.Categories["revenue"]["Product sales"].Row)
	assert.Equal(t, 2025, *c.Structure.PeriodMapping[0].Period.Year)
	assert.Equal(t, 40, c.Structure.DataRows["netIncome"])
	assert.Nil(t, Clone(nil))
}

func TestMergeInitializesMissingSubtrees(t *testing.T) {
	next := Merge(&Configuration{Type: KindCashflow}, SetCategories("inflows", Section{"Receipts": {Row: row(4)}}))
	require.NotNil(t, next.Structure)
	assert.NotNil(t, next.Structure.DataRows)
	assert.Contains(t, next.Structure.Categories, "outflows")
	assert.Contains(t, next.Structure.Categories["inflows"], "Receipts")

	fromNil := Merge(nil, SetName("x"))
	assert.Equal(t, "x", fromNil.Name)
	require.NotNil(t, fromNil.Structure)

	custom := Merge(&Configuration{Type: KindPnL}, SetCategories("ebitdaAdjustments", nil))
	assert.NotNil(t, custom.Structure.Categories["ebitdaAdjustments"])
}

func TestMergeUnknownTargetIsNoop(t *testing.T) {
	c := sample(t)
	next := Merge(c, Update{Target: "colour"})
	assert.Empty(t, cmp.Diff(c, next))
}

func TestNextVersionAndDeactivate(t *testing.T) {
	c := sample(t)
	later := fixedNow.Add(time.Hour)

	saved := NextVersion(c, later)
	assert.Equal(t, c.Version+1, saved.Version)
	assert.Equal(t, "2025-03-14T10:30:00Z", saved.UpdatedAt)

	retired := Deactivate(saved, later)
	assert.False(t, retired.IsActive)
	assert.True(t, saved.IsActive)
	assert.Equal(t, saved.Version, retired.Version)
}

func TestTextRoundTrip(t *testing.T) {
	c := sample(t)
	text, err := Text(c)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "{\n  \"id\""))

	back, err := ParseText(text)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(c, back))
}

func TestParseTextAcceptsHjson(t *testing.T) {
	text := `{
  # hand edited
  name: Lenient
  type: cashflow
  structure: {
    periodsRange: B3:D3
    periodMapping: [
      { column: "C", period: { type: "year", year: 2026, label: "wrong" } },
      { column: "B", period: { type: "year", year: 2025 } },
    ]
  }
}`
	c, err := ParseText(text)
	require.NoError(t, err)
	assert.Equal(t, "Lenient", c.Name)
	assert.Equal(t, KindCashflow, c.Type)
	assert.NotEmpty(t, c.ID)
	assert.True(t, c.IsActive)
	assert.Equal(t, []string{"B", "C"}, c.Structure.PeriodMapping.Columns())
	assert.Equal(t, []string{"2025", "2026"}, c.Structure.PeriodMapping.Labels())
	assert.Contains(t, c.Structure.Categories, "outflows")
}

func TestParseTextReportsPosition(t *testing.T) {
	_, err := ParseText("{\n  \"name\": \"x\",\n  \"type\": ]\n}")
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
	assert.Greater(t, pe.Column, 1)

	_, err = ParseText("   ")
	require.True(t, errors.As(err, &pe))
}

func TestImportYAML(t *testing.T) {
	doc := `
id: cfg-1
name: From YAML
type: pnl
version: 3
isActive: true
structure:
  periodsRange: B3:C3
  periodMapping:
    - column: B
      period: {type: month, year: 2025, month: 8}
  dataRows:
    grossProfit: 20
`
	c, err := Import(strings.NewReader(doc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "cfg-1", c.ID)
	assert.Equal(t, 3, c.Version)
	assert.Equal(t, []string{"Aug 2025"}, c.Structure.PeriodMapping.Labels())
	assert.Equal(t, 20, c.Structure.DataRows["grossProfit"])
	assert.Contains(t, c.Structure.Categories, "revenue")

	_, err = Import(strings.NewReader(doc), "toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("layout.YML"))
	assert.Equal(t, FormatHJSON, DetectFormat("layout.hjson"))
	assert.Equal(t, FormatJSON, DetectFormat("layout.json"))
	assert.Equal(t, FormatJSON, DetectFormat("layout"))
}
