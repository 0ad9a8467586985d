package main

import (
	"fmt"
	"os"

	"vin_appraisal/internal/app"
	"vin_appraisal/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// appConfig is loaded before any subcommand runs.
var appConfig *config.Config

var workerURL string

var rootCmd = &cobra.Command{
	Use:   "vin-appraisal",
	Short: "Bulk VIN appraisal front-end",
	Long: `Loads vehicle listings from a spreadsheet, keeps the rows whose VIN starts with an
allowed prefix, sends them to the valuation worker and collects the streamed results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		app.SetupEnvironment()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("worker") {
			cfg.WorkerURL = workerURL
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		appConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workerURL, "worker", "", "Valuation worker base URL (defaults to WORKER_URL)")
}

func main() {
	log.Debug().Msg("Starting application")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
