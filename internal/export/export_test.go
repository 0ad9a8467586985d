package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"vin_appraisal/internal/results"
	"vin_appraisal/internal/tabular"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func sample() []results.Result {
	return []results.Result{
		{
			VIN: "1HGCM82633A004352", Year: "2019", Make: "Honda", Model: "Accord",
			Trim: "EX", SignalTrim: "EX-L", Odometer: "45000", ListPrice: "18900",
			ExportValueCAD: "21500", Profit: "2600", Status: results.StatusProfit,
		},
		{
			VIN: "2T1BURHE0JC034567", Trim: "LE", Odometer: "0", Status: results.StatusNoData,
			Error: `Could not extract "export" value`,
		},
	}
}

func TestStructured_Totals(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 5, 3, 0, time.UTC)
	report := Structured(sample(), now)

	assert.Equal(t, "2026-10-14T09:05:03Z", report.GeneratedAt)
	assert.Equal(t, results.Metrics{Processed: 2, Success: 1, Errors: 1}, report.Summary)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "EX-L", report.Results[0].Trim)
	assert.Equal(t, "LE", report.Results[1].Trim)
}

func TestStructured_Empty(t *testing.T) {
	data, err := JSON(nil, time.Unix(0, 0))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{}, raw["results"])
	summary := raw["summary"].(map[string]any)
	assert.Equal(t, 0.0, summary["total_processed"])
}

func TestJSON_FieldOrder(t *testing.T) {
	data, err := JSON(sample()[:1], time.Unix(0, 0))
	require.NoError(t, err)

	text := string(data)
	last := -1
	for _, key := range []string{`"vin"`, `"year"`, `"make"`, `"model"`, `"trim"`, `"kilometers"`,
		`"list_price"`, `"export_value_cad"`, `"profit"`, `"status"`, `"listing_url"`, `"carfax_link"`, `"error"`} {
		idx := strings.Index(text, key)
		require.Greater(t, idx, last, key)
		last = idx
	}
}

func TestFlat_QuotedAndParsable(t *testing.T) {
	data, err := CSV(sample())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], `"VIN","Year"`))
	assert.Contains(t, lines[2], `"Could not extract ""export"" value"`)

	records := tabular.Parse(string(data))
	require.Len(t, records, 2)
	assert.Equal(t, "1HGCM82633A004352", records[0]["vin"])
	assert.Equal(t, "21500", records[0]["export value (cad)"])
}

func TestFlat_EmptyHasHeader(t *testing.T) {
	rows := Flat(nil)
	require.Len(t, rows, 1)
	assert.Equal(t, Columns, rows[0])
}

func TestFormatsAgreeOnClassification(t *testing.T) {
	rs := sample()
	report := Structured(rs, time.Now())
	rows := Flat(rs)

	exportCol := -1
	for i, c := range Columns {
		if c == "Export Value (CAD)" {
			exportCol = i
		}
	}
	require.GreaterOrEqual(t, exportCol, 0)

	success := 0
	for _, row := range rows[1:] {
		if strings.TrimSpace(row[exportCol]) != "" {
			success++
		}
	}
	assert.Equal(t, report.Summary.Success, success)
}

func TestExport_Idempotent(t *testing.T) {
	rs := sample()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	a, err := JSON(rs, now)
	require.NoError(t, err)
	b, err := JSON(rs, now)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := CSV(rs)
	require.NoError(t, err)
	d, err := CSV(rs)
	require.NoError(t, err)
	assert.Equal(t, c, d)
}

func TestFileName(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 5, 3, 987654321, time.FixedZone("EDT", -4*3600))

	name := FileName("vin_appraisal", "json", now)
	assert.Equal(t, "vin_appraisal_2026-10-14T13-05-03.json", name)

	stem := strings.TrimSuffix(FileName("x", ".csv", now), ".csv")
	assert.NotContains(t, stem, ":")
	assert.NotContains(t, stem, ".")
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "$12,345", Currency(12345))
	assert.Equal(t, "-$1,500", Currency(-1500.2))
	assert.Equal(t, "$0", Currency(0))
	assert.Equal(t, "$1,000,000", Currency(999999.6))
}

func TestXLSX_RoundTrip(t *testing.T) {
	data, err := XLSX(sample())
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "VIN", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "1HGCM82633A004352", sheet.Rows[1].Cells[0].String())

	profit, err := sheet.Rows[1].Cells[8].Float()
	require.NoError(t, err)
	assert.Equal(t, 2600.0, profit)
	assert.Equal(t, results.StatusNoData, sheet.Rows[2].Cells[9].String())
}
