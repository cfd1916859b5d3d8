package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Cyclone1070/butterfi/internal/gateway"
	"github.com/Cyclone1070/butterfi/internal/knowledge"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownGrace = 15 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if addr != "" {
				cfg.Server.Addr = addr
			}

			deps, err := buildDependencies(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			handler := gateway.NewHandler(deps.Service, gateway.Options{
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Logger:         logger.Named("http"),
			})
			return serve(cmd.Context(), gateway.NewServer(cfg.Server, handler, logger), logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *gateway.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func newIngestCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <protocols.json>",
		Short: "Replace the knowledge index with the protocol records of a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			records, err := knowledge.LoadRecords(f)
			if err != nil {
				return err
			}

			client, err := dialGemini(cmd.Context())
			if err != nil {
				return err
			}
			index, err := openIndex(cfg, client, logger)
			if err != nil {
				return err
			}
			defer index.Close()

			n, err := ingest(cmd.Context(), index, records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents into %q\n", n, index.Namespace())
			return nil
		},
	}
}

type ingester interface {
	Ingest(ctx context.Context, records []knowledge.Record) (int, error)
}

func ingest(ctx context.Context, ix ingester, records []knowledge.Record) (int, error) {
	if len(records) == 0 {
		return 0, errors.New("no records to ingest")
	}
	return ix.Ingest(ctx, records)
}
