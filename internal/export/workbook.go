package export

import (
	"bytes"
	"fmt"
	"io"

	"vin_appraisal/internal/results"

	"github.com/tealeg/xlsx/v2"
)

// SheetName is the worksheet that holds the flat export.
const SheetName = "Appraisals"

// numericColumns are written as numbers when their text parses as one.
var numericColumns = map[string]bool{
	"Kilometers":         true,
	"List Price":         true,
	"Export Value (CAD)": true,
	"Profit":             true,
}

// WriteXLSX writes rows as a single-sheet workbook. The first row is the header.
func WriteXLSX(w io.Writer, rows [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create worksheet: %w", err)
	}

	var header []string
	for i, values := range rows {
		if i == 0 {
			header = values
		}
		row := sheet.AddRow()
		for j, value := range values {
			cell := row.AddCell()
			if i > 0 && j < len(header) && numericColumns[header[j]] {
				if n, ok := results.Text(value).Float(); ok {
					cell.SetFloat(n)
					continue
				}
			}
			cell.SetString(value)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx export: %w", err)
	}
	return nil
}

// XLSX renders the flat export as a workbook.
func XLSX(rs []results.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, Flat(rs)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
