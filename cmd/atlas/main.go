package main

import (
	"os"

	"github.com/bassista/atlas/internal/config"
	"github.com/bassista/atlas/internal/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "atlas",
		Short: "Partner and delivery station sync service",
		Long: `atlas keeps a local cache of map partners and delivery stations in sync
with a remote snapshot feed, serves the cache over HTTP and falls back to it
when the feed is unreachable.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			level := cfg.Misc.LogLevel
			if opts.logLevel != "" {
				level = opts.logLevel
			}
			if err := logger.SetLevel(level); err != nil {
				logger.WithComponent("main").Warnf("invalid log level '%s', keeping '%s': %v", level, logger.Logger.GetLevel(), err)
			}
			// serve logs to stdout; one-shot commands keep stdout for their output
			if cmd.Name() != "serve" {
				logger.Logger.SetOutput(cmd.ErrOrStderr())
			}
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "directory containing config.yaml (default $ATLAS_CONFIG_PATH or ./config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override misc.log_level")

	root.AddCommand(newServeCmd(opts), newRefreshCmd(opts), newFeaturesCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
