package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/caretaker/internal/api"
	"github.com/zulandar/caretaker/internal/generate"
	"github.com/zulandar/caretaker/internal/notify"
	"github.com/zulandar/caretaker/internal/scheduler"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			if port == 0 {
				port = cfg.API.Port
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return api.Start(ctx, api.StartOpts{
				DB:          gormDB,
				Port:        port,
				DefaultTime: cfg.Generation.DefaultTime,
				Log:         log.WithField("component", "api"),
				Out:         cmd.OutOrStdout(),
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}

func newDaemonCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Generate work items on the configured cron schedule",
		Long: `Runs until interrupted, generating today's work items (in the configured
timezone) whenever generation.cron fires. Each run is summarized to the
configured Slack and Discord webhooks. A failed run is logged and retried at
the next tick.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			n, err := notify.FromConfig(cfg.Notify)
			if err != nil {
				return err
			}
			log = log.WithField("component", "scheduler")
			d := scheduler.New(generate.New(gormDB, cfg.Generation.DefaultTime, log), n, cfg.Site, cfg.Location(), log)

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return d.Run(ctx, cfg.Generation.Cron, cfg.Generation.RunOnStart)
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}
