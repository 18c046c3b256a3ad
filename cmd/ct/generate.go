package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/caretaker/internal/generate"
	"github.com/zulandar/caretaker/internal/notify"
	"github.com/zulandar/caretaker/internal/scheduler"
)

func newGenerateCmd() *cobra.Command {
	var (
		configPath string
		date       string
		quiet      bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate work items for a date",
		Long: `Materializes every active template due on the date into per-user work
items and links them along the template hierarchy. Safe to repeat: items
that already exist are left untouched. Defaults to today in the configured
timezone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			var n notify.Notifier = notify.Nop{}
			if !quiet {
				if n, err = notify.FromConfig(cfg.Notify); err != nil {
					return err
				}
			}
			d := scheduler.New(generate.New(gormDB, cfg.Generation.DefaultTime, log), n, cfg.Site, cfg.Location(), log)
			if date == "" {
				date = d.Today()
			}

			res, err := d.RunOnce(cmd.Context(), date)
			if res != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s for %s: %d templates, %d occurrences, %s created, %d existing, %d linked\n",
					res.RunID, res.Date, res.Templates, res.Occurrences, okColor.Sprint(res.Created), res.Existing, res.Linked)
			}
			return err
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&date, "date", "", "date to generate (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "do not send chat notifications")
	return cmd
}
