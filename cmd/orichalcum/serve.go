package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/orichalcum/internal/cli"
	"github.com/aretw0/orichalcum/internal/presentation/tui"
	httpAdapter "github.com/aretw0/orichalcum/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Exposes signature parsing, graph validation, recorded traces and metrics as a JSON API over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tel, err := cli.NewTelemetry(cfg)
		if err != nil {
			return err
		}
		defer tel.Close()

		opts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
		if tel.Memory != nil {
			opts = append(opts, httpAdapter.WithTraces(tel.Memory))
		}
		if tel.Registry != nil {
			opts = append(opts, httpAdapter.WithGatherer(tel.Registry))
		}

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           httpAdapter.NewHandler(opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if cli.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, cli.Profile(os.Stdout))
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting server", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("shutting down", "signal", fmt.Sprint(ctx.Signal()))

			// Give outstanding requests a deadline for completion.
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(sctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
