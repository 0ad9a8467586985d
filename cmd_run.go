package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"vin_appraisal/internal/app"
	"vin_appraisal/internal/jobs"
	"vin_appraisal/internal/session"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	runSheet     string
	runPrefixes  string
	runVINColumn string
	runColumns   jobs.ColumnMap
	runEmail     string
	runPassword  string
	runHeadful   bool
	runOutDir    string
	runXLSX      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit the eligible rows of a sheet and collect the valuations",
	Long: `Loads the sheet, submits every eligible row to the valuation worker and prints the
streamed progress. Ctrl-C stops the run. Whatever results arrived are exported to --out.`,
	RunE: runAppraisal,
}

func init() {
	runCmd.Flags().StringVarP(&runSheet, "sheet", "s", "", "Sheet URL or path to a CSV/XLSX file")
	runCmd.Flags().StringVar(&runPrefixes, "prefixes", "", "Comma separated VIN prefixes (defaults to VIN_PREFIXES)")
	runCmd.Flags().StringVar(&runVINColumn, "vin-column", "", "Column holding the VIN (defaults to VIN_COLUMN)")
	runCmd.Flags().StringVar(&runColumns.Mileage, "mileage-column", "", "Column holding the odometer reading")
	runCmd.Flags().StringVar(&runColumns.Trim, "trim-column", "", "Column holding the trim")
	runCmd.Flags().StringVar(&runColumns.Price, "price-column", "", "Column holding the asking price")
	runCmd.Flags().StringVar(&runColumns.ListingURL, "listing-column", "", "Column holding the listing link")
	runCmd.Flags().StringVar(&runColumns.Year, "year-column", "", "Column holding the model year")
	runCmd.Flags().StringVar(&runEmail, "email", "", "Valuation site email (defaults to SIGNAL_EMAIL)")
	runCmd.Flags().StringVar(&runPassword, "password", "", "Valuation site password (defaults to SIGNAL_PASSWORD)")
	runCmd.Flags().BoolVar(&runHeadful, "headful", false, "Show the worker's browser window")
	runCmd.Flags().StringVarP(&runOutDir, "out", "o", ".", "Directory the exports are written to")
	runCmd.Flags().BoolVar(&runXLSX, "xlsx", false, "Also write an XLSX workbook")
	_ = runCmd.MarkFlagRequired("sheet")
	rootCmd.AddCommand(runCmd)
}

func runAppraisal(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	clients, err := app.InitializeClients(ctx, appConfig)
	if err != nil {
		return err
	}
	sess := app.NewSession(appConfig, clients)

	if err := sess.Load(ctx, runSheet); err != nil {
		return err
	}
	applySelection(sess, runPrefixes, runVINColumn)
	if runVINColumn == "" {
		runColumns.VIN = sess.Snapshot().IdentifierField
	} else {
		runColumns.VIN = runVINColumn
	}
	sess.SetColumns(runColumns)

	creds := jobs.Credentials{Email: runEmail, Password: runPassword}
	if creds.Email == "" {
		creds.Email = appConfig.SignalEmail
	}
	if creds.Password == "" {
		creds.Password = appConfig.SignalPassword
	}
	if !creds.Complete() {
		log.Warn().Msg("No valuation credentials given; the worker must supply its own")
	}

	run, err := sess.Start(ctx, session.RunConfig{
		Credentials: creds,
		Options:     jobs.Options{Headless: !runHeadful},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Run %s started with %d vehicles\n", run.ID, len(sess.Snapshot().Eligible))

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cursor := 0
	stopped := follow(sigCtx, out, sess, run, &cursor)
	if stopped {
		sess.Stop(ctx)
		signalStop(ctx, clients.Worker, stopSignalTimeout)
		// give the consumer a moment to release the stream
		select {
		case <-run.Done():
		case <-time.After(2 * time.Second):
		}
	}
	printLogs(out, sess.Snapshot().Logs, &cursor)

	if err := writeExports(out, sess, runOutDir, runXLSX, time.Now()); err != nil {
		return err
	}

	if !stopped {
		if err := run.Wait(); err != nil {
			return fmt.Errorf("appraisal run failed: %w", err)
		}
	}
	return nil
}

// stopSignalTimeout bounds the synchronous stop request sent before exiting.
const stopSignalTimeout = 3 * time.Second

type stopSignaler interface {
	SignalStop(ctx context.Context) error
}

// signalStop delivers the stop request before the process exits. The
// session's own stop is fire-and-forget and would be lost on return.
func signalStop(ctx context.Context, w stopSignaler, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := w.SignalStop(ctx); err != nil {
		log.Warn().Err(err).Msg("Worker did not acknowledge the stop request")
	}
}

// follow prints progress until the run ends or ctx is cancelled. It reports
// whether ctx ended first. cursor is the index of the next log entry to print.
func follow(ctx context.Context, out io.Writer, sess *session.Session, run *session.Run, cursor *int) bool {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	lastProgress := -1.0
	for {
		select {
		case <-run.Done():
			return false
		case <-ctx.Done():
			return true
		case <-ticker.C:
			snap := sess.Snapshot()
			printLogs(out, snap.Logs, cursor)
			if snap.Progress != lastProgress {
				lastProgress = snap.Progress
				fmt.Fprintf(out, "Progress: %3.0f%%  %s\n", snap.Progress*100, snap.Message)
			}
		}
	}
}

func printLogs(out io.Writer, logs []session.LogEntry, cursor *int) {
	if *cursor > len(logs) {
		*cursor = 0
	}
	for _, entry := range logs[*cursor:] {
		fmt.Fprintf(out, "%s [%s] %s\n", entry.Time.Format("15:04:05"), strings.ToUpper(entry.Level), entry.Message)
	}
	*cursor = len(logs)
}

func writeExports(out io.Writer, sess *session.Session, dir string, withXLSX bool, now time.Time) error {
	renderers := []func(time.Time) (session.File, error){sess.ExportJSON, sess.ExportCSV}
	if withXLSX {
		renderers = append(renderers, sess.ExportXLSX)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	for _, render := range renderers {
		file, err := render(now)
		if errors.Is(err, session.ErrNoResults) {
			fmt.Fprintln(out, "No results to export")
			return nil
		}
		if err != nil {
			return err
		}

		path := filepath.Join(dir, file.Name)
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		log.Debug().Str("path", path).Int("bytes", len(file.Data)).Msg("Wrote export")
		fmt.Fprintf(out, "Wrote %s\n", path)
	}

	m := sess.Metrics()
	fmt.Fprintf(out, "Processed %d, valued %d, without value %d\n", m.Processed, m.Success, m.Errors)
	return nil
}
