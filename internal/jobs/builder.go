package jobs

import (
	"fmt"
	"strings"

	"vin_appraisal/internal/tabular"
	"vin_appraisal/internal/vin"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// Build projects accepted records into a submission batch.
func Build(accepted []tabular.Record, columns ColumnMap, creds Credentials, opts Options) Batch {
	columns = columns.WithDefaults()
	rows := make([]Descriptor, 0, len(accepted))

	for _, record := range accepted {
		rows = append(rows, describe(record, columns))
	}

	log.Debug().
		Int("rows", len(rows)).
		Bool("headless", opts.Headless).
		Msg("Built job batch")

	return Batch{
		Credentials: creds,
		Options:     opts,
		ValidRows:   rows,
	}
}

// Validate checks a batch before it is submitted.
func Validate(batch Batch) error {
	if err := validate.Struct(batch); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}
	return nil
}

func describe(record tabular.Record, columns ColumnMap) Descriptor {
	mileage := strings.TrimSpace(record.Get(columns.Mileage))
	if mileage == "" {
		mileage = "0"
	}
	price := record.Get(columns.Price)

	return Descriptor{
		VIN:        vin.Normalize(record.Get(columns.VIN)),
		Odometer:   mileage,
		Trim:       strings.TrimSpace(record.Get(columns.Trim)),
		Price:      price,
		ListPrice:  ParsePrice(price),
		ListingURL: strings.TrimSpace(record.Get(columns.ListingURL)),
		CarfaxLink: firstOf(record, carfaxColumns),
		Make:       firstOf(record, makeColumns),
		Model:      firstOf(record, modelColumns),
		Year:       strings.TrimSpace(record.Get(columns.Year)),
	}
}

func firstOf(record tabular.Record, names []string) string {
	for _, name := range names {
		if v := strings.TrimSpace(record.Get(name)); v != "" {
			return v
		}
	}
	return ""
}
