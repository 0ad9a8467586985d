package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Status tags reported by the valuation worker.
const (
	StatusPending        = "PENDING"
	StatusProfit         = "PROFIT"
	StatusLoss           = "LOSS"
	StatusNoPrice        = "NO PRICE"
	StatusSuccess        = "SUCCESS"
	StatusNoData         = "NO DATA"
	StatusError          = "ERROR"
	StatusSessionExpired = "SESSION_EXPIRED"
)

// Result is one appraisal outcome echoed back by the worker.
type Result struct {
	VIN            string `json:"vin"`
	Odometer       Text   `json:"odometer"`
	Trim           Text   `json:"trim"`
	SignalTrim     Text   `json:"signal_trim"`
	ListPrice      Text   `json:"list_price"`
	ListingURL     Text   `json:"listing_url"`
	CarfaxLink     Text   `json:"carfax_link"`
	Make           Text   `json:"make"`
	Model          Text   `json:"model"`
	Year           Text   `json:"year"`
	MarketGuideUSD Text   `json:"market_guide_usd"`
	ExportValueCAD Text   `json:"export_value_cad"`
	Profit         Text   `json:"profit"`
	Status         string `json:"status"`
	Error          Text   `json:"error"`
}

// Succeeded reports whether the worker produced a valuation for r.
// Export totals and live metrics both classify through this function.
func Succeeded(r Result) bool {
	return strings.TrimSpace(string(r.ExportValueCAD)) != ""
}

// Metrics are the processed/success/error totals over a collection.
type Metrics struct {
	Processed int `json:"total_processed"`
	Success   int `json:"success_count"`
	Errors    int `json:"error_count"`
}

// Tally classifies every result with Succeeded.
func Tally(rs []Result) Metrics {
	m := Metrics{Processed: len(rs)}
	for _, r := range rs {
		if Succeeded(r) {
			m.Success++
		}
	}
	m.Errors = m.Processed - m.Success
	return m
}

// Text decodes a JSON string, number, bool or null into its text form.
// Null decodes to "". Numbers keep their literal digits.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*t = Text(data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("failed to decode text field: %w", err)
		}
		*t = Text(n.String())
	}
	return nil
}

// Float parses the text as a number. ok is false when it is empty or not numeric.
func (t Text) Float() (value float64, ok bool) {
	s := strings.ReplaceAll(strings.TrimSpace(string(t)), ",", "")
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// String returns the text.
func (t Text) String() string {
	return string(t)
}
