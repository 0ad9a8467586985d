package tabular

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Record is one parsed row keyed by lower-cased header name.
type Record map[string]string

// Get returns the value for a field, looked up case-insensitively. Missing fields are "".
func (r Record) Get(field string) string {
	return r[strings.ToLower(strings.TrimSpace(field))]
}

// Parse turns comma-delimited text into records. The first line is the header.
// Fewer than two lines yields no records. Irregular rows never cause an error:
// short rows are padded with "" and surplus cells are dropped.
func Parse(text string) []Record {
	lines := splitLines(text)
	if len(lines) < 2 {
		log.Debug().Int("lines", len(lines)).Msg("Not enough lines to parse")
		return []Record{}
	}

	headers := normalizeHeaders(SplitLine(lines[0]))
	records := make([]Record, 0, len(lines)-1)

	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		cells := SplitLine(line)
		if len(cells) != len(headers) {
			log.Debug().
				Int("line", i+2).
				Int("cells", len(cells)).
				Int("headers", len(headers)).
				Msg("Row width differs from header")
		}

		record := make(Record, len(headers))
		for pos, name := range headers {
			value := ""
			if pos < len(cells) {
				value = cells[pos]
			}
			record[name] = value
		}
		records = append(records, record)
	}

	log.Debug().
		Int("columns", len(headers)).
		Int("records", len(records)).
		Msg("Parsed tabular text")
	return records
}

// Headers returns the normalized header names of text in column order.
// Duplicates are reported once, at the position of their first occurrence.
func Headers(text string) []string {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, name := range normalizeHeaders(SplitLine(lines[0])) {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// SplitLine tokenizes a single line. A '"' toggles quoted mode, '""' inside
// quotes is a literal quote, and an unquoted ',' ends the field.
func SplitLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"' && inQuotes && i+1 < len(runes) && runes[i+1] == '"':
			current.WriteRune('"')
			i++
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	return append(fields, current.String())
}

// normalizeHeaders trims and lower-cases header cells.
func normalizeHeaders(cells []string) []string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		out[i] = strings.ToLower(strings.TrimSpace(cell))
	}
	return out
}

// splitLines splits on '\n' and drops one trailing '\r' per line. Only
// trailing breaks are trimmed so a leading blank line stays row 0.
func splitLines(text string) []string {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
