package sheets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vin_appraisal/internal/tabular"

	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx/v2"
)

// FileSource reads a local CSV or XLSX file. XLSX workbooks are rendered
// as delimited text from their first sheet, or from SheetName when set.
type FileSource struct {
	SheetName string
}

// Fetch returns the delimited text of the file at path.
func (s FileSource) Fetch(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return s.readWorkbook(path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet file: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", ErrEmptySheet
		}
		log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Read sheet file")
		return string(data), nil
	}
}

func (s FileSource) readWorkbook(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}

	sheet, err := s.pickSheet(f)
	if err != nil {
		return "", err
	}

	var rows [][]string
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cellText(cell.String())
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return "", ErrEmptySheet
	}

	log.Debug().Str("path", path).Str("sheet", sheet.Name).Int("rows", len(rows)).Msg("Read workbook")
	return tabular.Format(rows[0], rows[1:]), nil
}

func (s FileSource) pickSheet(f *xlsx.File) (*xlsx.Sheet, error) {
	if s.SheetName != "" {
		sheet, ok := f.Sheet[s.SheetName]
		if !ok {
			return nil, fmt.Errorf("sheet %q not found in workbook", s.SheetName)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, ErrEmptySheet
	}
	return f.Sheets[0], nil
}
