package tabular

import "strings"

// Format renders header and rows as comma-delimited text with every value quoted.
// Lines end in '\n'. Values must not contain line breaks to survive a Parse.
func Format(header []string, rows [][]string) string {
	var sb strings.Builder
	writeLine(&sb, header)
	for _, row := range rows {
		writeLine(&sb, row)
	}
	return sb.String()
}

// Quote wraps a value in double quotes, doubling any quote inside it.
func Quote(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func writeLine(sb *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(Quote(cell))
	}
	sb.WriteByte('\n')
}
