package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"vin_appraisal/internal/results"
	"vin_appraisal/internal/tabular"
)

// Columns is the fixed export column order shared by both formats.
var Columns = []string{
	"VIN",
	"Year",
	"Make",
	"Model",
	"Trim",
	"Kilometers",
	"List Price",
	"Export Value (CAD)",
	"Profit",
	"Status",
	"Listing URL",
	"Carfax Link",
	"Error",
}

// Entry is one normalized result. Field order matches Columns.
type Entry struct {
	VIN            string `json:"vin"`
	Year           string `json:"year"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	Trim           string `json:"trim"`
	Kilometers     string `json:"kilometers"`
	ListPrice      string `json:"list_price"`
	ExportValueCAD string `json:"export_value_cad"`
	Profit         string `json:"profit"`
	Status         string `json:"status"`
	ListingURL     string `json:"listing_url"`
	CarfaxLink     string `json:"carfax_link"`
	Error          string `json:"error"`
}

// Report is the structured export document.
type Report struct {
	GeneratedAt string          `json:"generated_at"`
	Summary     results.Metrics `json:"summary"`
	Results     []Entry         `json:"results"`
}

// Normalize projects a result onto the export schema.
// The worker-reported trim is preferred over the sheet trim.
func Normalize(r results.Result) Entry {
	trim := r.SignalTrim.String()
	if strings.TrimSpace(trim) == "" {
		trim = r.Trim.String()
	}

	return Entry{
		VIN:            r.VIN,
		Year:           r.Year.String(),
		Make:           r.Make.String(),
		Model:          r.Model.String(),
		Trim:           trim,
		Kilometers:     r.Odometer.String(),
		ListPrice:      r.ListPrice.String(),
		ExportValueCAD: r.ExportValueCAD.String(),
		Profit:         r.Profit.String(),
		Status:         r.Status,
		ListingURL:     r.ListingURL.String(),
		CarfaxLink:     r.CarfaxLink.String(),
		Error:          r.Error.String(),
	}
}

func (e Entry) row() []string {
	return []string{
		e.VIN, e.Year, e.Make, e.Model, e.Trim, e.Kilometers, e.ListPrice,
		e.ExportValueCAD, e.Profit, e.Status, e.ListingURL, e.CarfaxLink, e.Error,
	}
}

// Structured builds the report for rs. An empty collection gives an empty report.
func Structured(rs []results.Result, now time.Time) Report {
	entries := make([]Entry, 0, len(rs))
	for _, r := range rs {
		entries = append(entries, Normalize(r))
	}

	return Report{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Summary:     results.Tally(rs),
		Results:     entries,
	}
}

// Flat returns the header row followed by one row per result.
func Flat(rs []results.Result) [][]string {
	rows := make([][]string, 0, len(rs)+1)
	rows = append(rows, append([]string(nil), Columns...))
	for _, r := range rs {
		rows = append(rows, Normalize(r).row())
	}
	return rows
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write json export: %w", err)
	}
	return nil
}

// WriteCSV writes rows with every value quoted.
func WriteCSV(w io.Writer, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, tabular.Format(rows[0], rows[1:])); err != nil {
		return fmt.Errorf("failed to write csv export: %w", err)
	}
	return nil
}

// JSON renders the structured export to bytes.
func JSON(rs []results.Result, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Structured(rs, now)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CSV renders the flat export to bytes.
func CSV(rs []results.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Flat(rs)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName builds prefix_<timestamp><ext> from now in UTC, truncated to seconds,
// with ':' and '.' replaced so the name is safe on every filesystem.
func FileName(prefix, ext string, now time.Time) string {
	stamp := now.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return prefix + "_" + stamp + ext
}
