package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bassista/atlas/internal/app"
	"github.com/bassista/atlas/internal/config"
	"github.com/bassista/atlas/internal/model"
	"github.com/spf13/cobra"
)

func newFeaturesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Print the cached partners as a GeoJSON FeatureCollection",
		Long:  "Reads the local cache only. Run refresh first to populate it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeatures(cmd.Context(), opts.cfg, cmd.OutOrStdout())
		},
	}
}

func runFeatures(ctx context.Context, cfg *config.Config, out io.Writer) error {
	a, err := app.Build(cfg)
	if err != nil {
		return fmt.Errorf("cannot init app: %w", err)
	}
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := a.Repo.ObserveFeatures(ctx)
	if err != nil {
		return err
	}
	features, ok := <-stream
	if !ok {
		return errors.New("feature stream closed before the first emission")
	}
	return writeJSON(out, model.NewFeatureCollection(features))
}
