package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/caretaker/internal/audit"
	"github.com/zulandar/caretaker/internal/report"
)

func newReportCmd() *cobra.Command {
	var (
		configPath string
		outPath    string
	)
	cmd := &cobra.Command{
		Use:   "report DATE",
		Short: "Export a day's work items to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := args[0]
			if outPath == "" {
				outPath = fmt.Sprintf("caretaker-%s.xlsx", date)
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			if err := report.ExportDay(gormDB, date, f); err != nil {
				f.Close()
				os.Remove(outPath)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default caretaker-DATE.xlsx)")
	return cmd
}

func newAuditCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "audit ENTITY ID",
		Short: "Show the audit trail of an entity",
		Long:  "ENTITY is one of task_template, task_group, asset or user_task.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1], "entity id")
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			entries, err := audit.List(gormDB, args[0], id)
			if err != nil {
				return err
			}
			t := newTable("ID", "AT", "ACTION", "ACTOR", "NOTE")
			for _, e := range entries {
				t.add(fmt.Sprint(e.ID), e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, fmt.Sprint(e.ActorID), e.Note)
			}
			t.render(cmd.OutOrStdout())
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}
