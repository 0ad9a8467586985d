package main

import (
	"fmt"

	"vin_appraisal/internal/worker"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Ask the valuation worker whether it is processing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := worker.NewClient(appConfig.WorkerURL)
		busy, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}

		state := "idle"
		if busy {
			state = "processing"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Worker at %s is %s\n", appConfig.WorkerURL, state)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
