package jobs

import (
	"strconv"
	"strings"
)

// ParsePrice keeps only digits, '.' and '-' from text and parses the rest.
// Anything that does not parse, including "", is 0.
func ParsePrice(text string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, text)
	if cleaned == "" {
		return 0
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}
