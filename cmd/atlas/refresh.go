package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/bassista/atlas/internal/app"
	"github.com/bassista/atlas/internal/config"
	"github.com/bassista/atlas/internal/logger"
	"github.com/spf13/cobra"
)

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the feed once and update the local cache",
		Long: `Fetches the remote snapshot once and replaces both cached collections.
A collection whose fetch fails is served from the cache when it holds data.
The command fails only when neither collection could be served.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runRefresh(ctx, opts.cfg, cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the resulting snapshot as JSON")
	return cmd
}

func runRefresh(ctx context.Context, cfg *config.Config, out io.Writer, asJSON bool) error {
	a, err := app.Build(cfg)
	if err != nil {
		return fmt.Errorf("cannot init app: %w", err)
	}
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(ctx, cfg.Server.RequestTimeout)
	defer cancel()

	snap, err := a.Repo.RefreshAll(ctx)
	if err != nil && snap.Partners == nil && snap.DeliveryStations == nil {
		return err
	}
	if err != nil {
		logger.WithComponent("refresh").WithError(err).Warn("Refresh completed with errors")
	}

	if asJSON {
		return writeJSON(out, snap)
	}
	fmt.Fprintf(out, "partners: %d\n", len(snap.Partners))
	fmt.Fprintf(out, "delivery stations: %d\n", len(snap.DeliveryStations))
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

