package results

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_DecodesMixedTypes(t *testing.T) {
	payload := `{
		"vin": "1HGCM82633A004352",
		"odometer": 45000,
		"list_price": 18900.5,
		"export_value_cad": "21,500",
		"profit": null,
		"make": "Honda",
		"status": "PROFIT",
		"error": null
	}`

	var r Result
	require.NoError(t, json.Unmarshal([]byte(payload), &r))
	assert.Equal(t, Text("45000"), r.Odometer)
	assert.Equal(t, Text("18900.5"), r.ListPrice)
	assert.Equal(t, Text("21,500"), r.ExportValueCAD)
	assert.Equal(t, Text(""), r.Profit)
	assert.Equal(t, StatusProfit, r.Status)
	assert.True(t, Succeeded(r))
}

func TestText_RejectsObjects(t *testing.T) {
	var r Result
	err := json.Unmarshal([]byte(`{"odometer": {"km": 1}}`), &r)
	assert.Error(t, err)
}

func TestText_Float(t *testing.T) {
	v, ok := Text("$21,500.25").Float()
	assert.True(t, ok)
	assert.Equal(t, 21500.25, v)

	_, ok = Text("").Float()
	assert.False(t, ok)
	_, ok = Text("n/a").Float()
	assert.False(t, ok)
}

func TestTally(t *testing.T) {
	rs := []Result{
		{VIN: "A", ExportValueCAD: "100"},
		{VIN: "B", Status: StatusNoData},
		{VIN: "C", ExportValueCAD: "  "},
		{VIN: "D", ExportValueCAD: "0"},
	}

	assert.Equal(t, Metrics{Processed: 4, Success: 2, Errors: 2}, Tally(rs))
	assert.Equal(t, Metrics{}, Tally(nil))
}
