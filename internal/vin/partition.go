package vin

import (
	"strings"

	"vin_appraisal/internal/tabular"

	"github.com/rs/zerolog/log"
)

// MinLength is the shortest identifier accepted for export valuation.
const MinLength = 17

// Normalize trims and upper-cases an identifier.
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// Eligible reports whether value, once normalized, is at least MinLength long
// and starts with one of the prefixes. An empty set accepts nothing.
func Eligible(value string, prefixes *PrefixSet) bool {
	v := Normalize(value)
	if len(v) < MinLength {
		return false
	}
	return prefixes.MatchesAny(v)
}

// Partition splits records into accepted and rejected slices, both in input order.
// The identifier is read from field; records without it are rejected.
func Partition(records []tabular.Record, field string, prefixes *PrefixSet) (accepted, rejected []tabular.Record) {
	accepted = make([]tabular.Record, 0, len(records))
	rejected = make([]tabular.Record, 0)

	for _, record := range records {
		if Eligible(record.Get(field), prefixes) {
			accepted = append(accepted, record)
		} else {
			rejected = append(rejected, record)
		}
	}

	log.Debug().
		Str("field", field).
		Str("prefixes", prefixes.String()).
		Int("accepted", len(accepted)).
		Int("rejected", len(rejected)).
		Msg("Partitioned records")
	return accepted, rejected
}
