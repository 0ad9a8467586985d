package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"vin_appraisal/internal/config"
	"vin_appraisal/internal/notifications"
	"vin_appraisal/internal/session"
	"vin_appraisal/internal/sheets"
	"vin_appraisal/internal/vin"
	"vin_appraisal/internal/worker"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	zerolog.SetGlobalLevel(parseLevel(os.Getenv("LOGLEVEL"), os.Getenv("ENV") == "production"))

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

func parseLevel(raw string, production bool) zerolog.Level {
	levelStr := strings.ToLower(strings.TrimSpace(raw))
	switch levelStr {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled":
		return zerolog.Disabled
	case "":
		if production {
			return zerolog.WarnLevel
		}
		return zerolog.InfoLevel
	default:
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
		return zerolog.InfoLevel
	}
}

// Clients are the collaborators a session is built from.
type Clients struct {
	Source   session.Source
	Worker   *worker.Client
	Notifier *notifications.Client
}

// InitializeClients creates the sheet source, the worker client and the notification client.
func InitializeClients(ctx context.Context, cfg *config.Config) (*Clients, error) {
	log.Debug().Msg("Initializing clients")

	remote, err := remoteSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	clients := &Clients{
		Source:   NewSource(remote, sheets.FileSource{SheetName: workbookSheet(cfg.SheetsRange)}),
		Worker:   worker.NewClient(cfg.WorkerURL),
		Notifier: InitializeNotificationClient(cfg),
	}

	log.Debug().Str("worker_url", cfg.WorkerURL).Msg("Clients initialized successfully")
	return clients, nil
}

func remoteSource(ctx context.Context, cfg *config.Config) (session.Source, error) {
	if cfg.SheetsAPIKey == "" {
		log.Debug().Str("base_url", cfg.SheetsExportURL).Msg("Using sheet export endpoint")
		return sheets.NewExportClient(cfg.SheetsExportURL), nil
	}

	client, err := sheets.NewAPIClient(ctx, cfg.SheetsAPIKey, cfg.SheetsRange)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	log.Debug().Msg("Using Sheets API")
	return client, nil
}

// workbookSheet takes the sheet name out of an A1 range such as "Listings!A1:ZZ".
func workbookSheet(readRange string) string {
	name, _, found := strings.Cut(readRange, "!")
	if !found {
		return ""
	}
	return strings.Trim(name, "'")
}

// InitializeNotificationClient creates and returns the notification client
func InitializeNotificationClient(cfg *config.Config) *notifications.Client {
	log.Debug().
		Bool("enabled", cfg.NtfyEnabled).
		Str("base_url", cfg.NtfyURL).
		Str("topic", cfg.NtfyTopic).
		Msg("Initializing notification client")

	client := notifications.NewClient(cfg.NtfyURL, cfg.NtfyTopic, cfg.NtfyEnabled, cfg.NtfyPriority,
		config.DefaultResilienceConfig.Notify)

	if cfg.NtfyEnabled {
		log.Info().Str("topic", cfg.NtfyTopic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}

	return client
}

// NewSession builds a session from the configuration defaults.
func NewSession(cfg *config.Config, clients *Clients) *session.Session {
	return session.New(clients.Source, clients.Worker, session.Options{
		Prefixes:        vin.ParsePrefixes(cfg.VINPrefixes).Values(),
		IdentifierField: cfg.VINColumn,
		ExportPrefix:    cfg.ExportPrefix,
		Notifier:        clients.Notifier,
	})
}
