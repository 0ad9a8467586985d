package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	WorkerURL string `validate:"required,url"`

	SignalEmail    string
	SignalPassword string

	VINPrefixes string `validate:"required"`
	VINColumn   string `validate:"required"`

	SheetsExportURL string `validate:"required,url"`
	SheetsAPIKey    string
	SheetsRange     string

	NtfyEnabled  bool
	NtfyURL      string `validate:"required,url"`
	NtfyTopic    string `validate:"required_if=NtfyEnabled true"`
	NtfyPriority string `validate:"omitempty,oneof=min low default high urgent 1 2 3 4 5"`

	ServerAddr   string `validate:"required"`
	ExportPrefix string `validate:"required,excludesall=/\\:"`
}

var validate = validator.New()

// Load reads the configuration from the environment. Call SetupEnvironment
// from internal/app first so a .env file is already applied.
func Load() (*Config, error) {
	cfg := &Config{
		WorkerURL:       GetEnvWithDefault("WORKER_URL", "http://localhost:8000"),
		SignalEmail:     os.Getenv("SIGNAL_EMAIL"),
		SignalPassword:  os.Getenv("SIGNAL_PASSWORD"),
		VINPrefixes:     GetEnvWithDefault("VIN_PREFIXES", "1,2,3,4,5"),
		VINColumn:       GetEnvWithDefault("VIN_COLUMN", "vin"),
		SheetsExportURL: GetEnvWithDefault("SHEETS_EXPORT_URL", "https://docs.google.com"),
		SheetsAPIKey:    os.Getenv("SHEETS_API_KEY"),
		SheetsRange:     os.Getenv("SHEETS_RANGE"),
		NtfyEnabled:     GetEnvWithDefault("NTFY_ENABLED", "false") == "true",
		NtfyURL:         GetEnvWithDefault("NTFY_URL", "https://ntfy.sh"),
		NtfyTopic:       GetEnvWithDefault("NTFY_TOPIC", "vin-appraisal"),
		NtfyPriority:    os.Getenv("NTFY_PRIORITY"),
		ServerAddr:      GetEnvWithDefault("SERVER_ADDR", ":8080"),
		ExportPrefix:    GetEnvWithDefault("EXPORT_PREFIX", "vin_appraisal"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("worker_url", cfg.WorkerURL).
		Str("vin_prefixes", cfg.VINPrefixes).
		Str("vin_column", cfg.VINColumn).
		Bool("sheets_api", cfg.SheetsAPIKey != "").
		Bool("ntfy_enabled", cfg.NtfyEnabled).
		Msg("Loaded configuration")

	return cfg, nil
}

// Validate checks field formats and the fields required by enabled features.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var problems []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// HasCredentials reports whether both valuation-site credentials are set.
func (c *Config) HasCredentials() bool {
	return c.SignalEmail != "" && c.SignalPassword != ""
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
