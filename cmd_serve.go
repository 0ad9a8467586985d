package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vin_appraisal/internal/app"
	"vin_appraisal/internal/jobs"
	"vin_appraisal/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session HTTP API",
	Long:  `Start an HTTP server that exposes one appraisal session as a JSON API.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to SERVER_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr := serveAddr
	if addr == "" {
		addr = appConfig.ServerAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := app.InitializeClients(ctx, appConfig)
	if err != nil {
		return err
	}
	sess := app.NewSession(appConfig, clients)
	if !appConfig.HasCredentials() {
		log.Warn().Msg("SIGNAL_EMAIL/SIGNAL_PASSWORD not set; requests must carry credentials or the worker must supply its own")
	}
	srv := server.New(sess, server.WithDefaultCredentials(jobs.Credentials{
		Email:    appConfig.SignalEmail,
		Password: appConfig.SignalPassword,
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		sess.Stop(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
