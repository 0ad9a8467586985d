package jobs

// ColumnMap names the source columns read for each job field.
type ColumnMap struct {
	VIN        string `json:"vin"`
	Mileage    string `json:"mileage"`
	Trim       string `json:"trim"`
	Price      string `json:"price"`
	ListingURL string `json:"listing_url"`
	Year       string `json:"year"`
}

// DefaultColumns returns the column names used when nothing is configured.
func DefaultColumns() ColumnMap {
	return ColumnMap{
		VIN:        "vin",
		Mileage:    "kilometers",
		Trim:       "trim",
		Price:      "price",
		ListingURL: "listing_url",
		Year:       "year",
	}
}

// WithDefaults fills blank entries from DefaultColumns.
func (c ColumnMap) WithDefaults() ColumnMap {
	d := DefaultColumns()
	if c.VIN == "" {
		c.VIN = d.VIN
	}
	if c.Mileage == "" {
		c.Mileage = d.Mileage
	}
	if c.Trim == "" {
		c.Trim = d.Trim
	}
	if c.Price == "" {
		c.Price = d.Price
	}
	if c.ListingURL == "" {
		c.ListingURL = d.ListingURL
	}
	if c.Year == "" {
		c.Year = d.Year
	}
	return c
}

// Columns read on every row regardless of the mapping. The first non-empty alias wins.
var (
	carfaxColumns = []string{"carfax_link", "carfax link", "carfax"}
	makeColumns   = []string{"make"}
	modelColumns  = []string{"model"}
)

// Descriptor is the per-vehicle payload sent to the valuation worker.
type Descriptor struct {
	VIN        string  `json:"vin" validate:"required,min=17"`
	Odometer   string  `json:"odometer"`
	Trim       string  `json:"trim"`
	Price      string  `json:"price"`
	ListPrice  float64 `json:"list_price"`
	ListingURL string  `json:"listing_url"`
	CarfaxLink string  `json:"carfax_link"`
	Make       string  `json:"make"`
	Model      string  `json:"model"`
	Year       string  `json:"year"`
}

// Credentials authenticate the worker against the valuation site. Both may
// be blank when the worker reads its own.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Complete reports whether both fields are set.
func (c Credentials) Complete() bool {
	return c.Email != "" && c.Password != ""
}

// Options carry run-mode switches.
type Options struct {
	Headless bool `json:"headless"`
}

// Batch is the JSON body of a submission.
type Batch struct {
	Credentials
	Options
	ValidRows []Descriptor `json:"valid_rows" validate:"required,min=1,dive"`
}
