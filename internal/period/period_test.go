package period

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cols(s ...string) []string { return s }

func labels(as []Assignment) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Period.Label)
	}
	return out
}

func TestGenerateLabel(t *testing.T) {
	assert.Equal(t, "Aug 2025", GenerateLabel(Month(2025, 8)))
	assert.Equal(t, "Q3 2025", GenerateLabel(Quarter(2025, 3)))
	assert.Equal(t, "2025", GenerateLabel(Year(2025)))
	assert.Equal(t, "Budget FY", GenerateLabel(Custom("Budget FY")))
	assert.Equal(t, "Aug", GenerateLabel(Definition{Type: TypeMonth, Month: intPtr(8)}))
	assert.Equal(t, "", GenerateLabel(Definition{Type: "weekly"}))
}

func TestGenerateLabelIsDeterministicAndFieldSensitive(t *testing.T) {
	base := Month(2025, 8)
	assert.Equal(t, GenerateLabel(base), GenerateLabel(base))

	assert.NotEqual(t, GenerateLabel(base), GenerateLabel(Month(2026, 8)))
	assert.NotEqual(t, GenerateLabel(base), GenerateLabel(Month(2025, 9)))
	assert.NotEqual(t, GenerateLabel(Quarter(2025, 1)), GenerateLabel(Quarter(2025, 2)))
	assert.NotEqual(t, GenerateLabel(Quarter(2025, 1)), GenerateLabel(Quarter(2024, 1)))
	assert.NotEqual(t, GenerateLabel(Year(2025)), GenerateLabel(Year(2024)))
}

func TestWithFieldRegeneratesLabel(t *testing.T) {
	d := Month(2025, 1)

	d, err := d.WithField(FieldMonth, "8")
	require.NoError(t, err)
	assert.Equal(t, "Aug 2025", d.Label)

	d, err = d.WithField(FieldYear, "2026")
	require.NoError(t, err)
	assert.Equal(t, "Aug 2026", d.Label)

	_, err = d.WithField(FieldLabel, "whatever")
	assert.ErrorIs(t, err, ErrLabelLocked)

	_, err = d.WithField(FieldYear, "twenty")
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = d.WithField("colour", "red")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestWithFieldDoesNotAlias(t *testing.T) {
	d := Month(2025, 3)
	edited, err := d.WithField(FieldYear, "2030")
	require.NoError(t, err)
	assert.Equal(t, 2025, *d.Year)
	assert.Equal(t, 2030, *edited.Year)
}

func TestWithFieldChangingType(t *testing.T) {
	d := Month(2025, 5)

	q, err := d.WithField(FieldType, "quarter")
	require.NoError(t, err)
	assert.Nil(t, q.Month)
	require.NotNil(t, q.Quarter)
	assert.Equal(t, "Q1 2025", q.Label)

	y, err := q.WithField(FieldType, "year")
	require.NoError(t, err)
	assert.Nil(t, y.Quarter)
	assert.Equal(t, "2025", y.Label)

	c, err := d.WithField(FieldType, "custom")
	require.NoError(t, err)
	assert.Equal(t, "May 2025", c.CustomValue)
	assert.Equal(t, "May 2025", c.Label)

	_, err = d.WithField(FieldType, "weekly")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestCustomLabelEntry(t *testing.T) {
	c := Custom("YTD")

	c, err := c.WithField(FieldCustomValue, "YTD Actual")
	require.NoError(t, err)
	assert.Equal(t, "YTD Actual", c.Label)

	c, err = c.WithField(FieldLabel, "Year to date")
	require.NoError(t, err)
	assert.Equal(t, "Year to date", c.Label)

	// an explicit label is kept when the value changes again
	c, err = c.WithField(FieldCustomValue, "YTD")
	require.NoError(t, err)
	assert.Equal(t, "Year to date", c.Label)
	assert.Equal(t, "YTD", c.CustomValue)
}

func TestInferTwelveColumnsIsMonthly(t *testing.T) {
	got := Infer(cols("B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M"), nil, 2025)
	require.Len(t, got, 12)
	for i, a := range got {
		assert.Equal(t, TypeMonth, a.Period.Type)
		assert.Equal(t, i+1, *a.Period.Month)
		assert.Equal(t, 2025, *a.Period.Year)
	}
	assert.Equal(t, []string{
		"Jan 2025", "Feb 2025", "Mar 2025", "Apr 2025", "May 2025", "Jun 2025",
		"Jul 2025", "Aug 2025", "Sep 2025", "Oct 2025", "Nov 2025", "Dec 2025",
	}, labels(got))
}

func TestInferFourColumnsIsQuarterly(t *testing.T) {
	got := Infer(cols("C", "D", "E", "F"), nil, 2024)
	assert.Equal(t, []string{"Q1 2024", "Q2 2024", "Q3 2024", "Q4 2024"}, labels(got))
}

func TestInferFewColumnsIsYearly(t *testing.T) {
	for n := 1; n <= 3; n++ {
		in := cols("B", "C", "D")[:n]
		got := Infer(in, nil, 2025)
		require.Len(t, got, n)
		for i, a := range got {
			assert.Equal(t, TypeYear, a.Period.Type)
			assert.Equal(t, 2025+i, *a.Period.Year)
		}
	}
}

func TestInferOtherCountsRollOver(t *testing.T) {
	in := make([]string, 0, 14)
	for c := 'B'; c < 'B'+14; c++ {
		in = append(in, string(c))
	}
	got := Infer(in, nil, 2025)
	require.Len(t, got, 14)
	assert.Equal(t, "Dec 2025", got[11].Period.Label)
	assert.Equal(t, "Jan 2026", got[12].Period.Label)
	assert.Equal(t, "Feb 2026", got[13].Period.Label)
}

func TestInferSkipsVoidedColumns(t *testing.T) {
	all := cols("B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M")
	voided := func(c string) bool { return c == "F" }

	got := Infer(all, voided, 2025)
	require.Len(t, got, 11)
	for _, a := range got {
		assert.NotEqual(t, "F", a.Column)
	}
	assert.Equal(t, "Jan 2025", got[0].Period.Label)
	assert.Equal(t, "Nov 2025", got[10].Period.Label)
	assert.Equal(t, "M", got[10].Column)
}

func TestRolloverIgnoresCount(t *testing.T) {
	got := Rollover(cols("B", "C", "D", "E"), 2025)
	assert.Equal(t, []string{"Jan 2025", "Feb 2025", "Mar 2025", "Apr 2025"}, labels(got))
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Aug 2025", "Aug 2025", true},
		{"august 2025", "Aug 2025", true},
		{"Sept-25", "Sep 2025", true},
		{"2025-08", "Aug 2025", true},
		{"08/2025", "Aug 2025", true},
		{"Q3 2025", "Q3 2025", true},
		{"q4-FY25", "Q4 2025", true},
		{"2025 Q2", "Q2 2025", true},
		{"FY2025", "2025", true},
		{" 2024 ", "2024", true},
		{"Total", "", false},
		{"% of revenue", "", false},
		{"2025-13", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseLabel(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got.Label, tt.in)
		}
	}
}

func TestDetectFromHeaders(t *testing.T) {
	headers := map[string]string{"B": "Q1 2025", "C": "Q2 2025", "D": "Total"}

	got := DetectFromHeaders(headers, cols("B", "C", "D"), func(c string) bool { return c == "D" }, 2030)
	assert.Equal(t, []string{"Q1 2025", "Q2 2025"}, labels(got))

	// an unreadable active header falls back to count-based inference
	got = DetectFromHeaders(headers, cols("B", "C", "D"), nil, 2030)
	assert.Equal(t, []string{"2030", "2031", "2032"}, labels(got))
}
