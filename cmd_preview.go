package main

import (
	"fmt"
	"strings"

	"vin_appraisal/internal/app"
	"vin_appraisal/internal/session"

	"github.com/spf13/cobra"
)

var (
	previewSheet     string
	previewPrefixes  string
	previewVINColumn string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Load a sheet and show which rows would be submitted",
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().StringVarP(&previewSheet, "sheet", "s", "", "Sheet URL or path to a CSV/XLSX file")
	previewCmd.Flags().StringVar(&previewPrefixes, "prefixes", "", "Comma separated VIN prefixes (defaults to VIN_PREFIXES)")
	previewCmd.Flags().StringVar(&previewVINColumn, "vin-column", "", "Column holding the VIN (defaults to VIN_COLUMN)")
	_ = previewCmd.MarkFlagRequired("sheet")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	clients, err := app.InitializeClients(ctx, appConfig)
	if err != nil {
		return err
	}
	sess := app.NewSession(appConfig, clients)
	applySelection(sess, previewPrefixes, previewVINColumn)

	if err := sess.Load(ctx, previewSheet); err != nil {
		return err
	}

	snap := sess.Snapshot()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rows:     %d\n", snap.TotalRows)
	fmt.Fprintf(out, "Eligible: %d\n", len(snap.Eligible))
	fmt.Fprintf(out, "Rejected: %d\n", len(snap.Rejected))
	fmt.Fprintf(out, "Prefixes: %s\n", strings.Join(snap.Prefixes, ","))
	fmt.Fprintf(out, "Columns:  %s\n", strings.Join(snap.Headers, ", "))
	for _, v := range snap.Rejected {
		if v == "" {
			v = "(blank)"
		}
		fmt.Fprintf(out, "  rejected %s\n", v)
	}
	return nil
}

// applySelection overrides the configured prefixes and identifier column when set.
func applySelection(sess *session.Session, prefixes, vinColumn string) {
	if strings.TrimSpace(prefixes) != "" {
		sess.SetPrefixes(strings.Split(prefixes, ","))
	}
	if strings.TrimSpace(vinColumn) != "" {
		sess.SetIdentifierField(vinColumn)
	}
}
