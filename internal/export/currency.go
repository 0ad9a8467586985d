package export

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency renders whole dollars with thousands separators: $12,345 or -$12,345.
func Currency(amount float64) string {
	if amount < 0 {
		return "-" + printer.Sprintf("$%d", int64(math.Round(math.Abs(amount))))
	}
	return printer.Sprintf("$%d", int64(math.Round(amount)))
}
