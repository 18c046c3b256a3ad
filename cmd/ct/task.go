package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/zulandar/caretaker/internal/models"
	"github.com/zulandar/caretaker/internal/usertask"
	"gorm.io/gorm"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with generated work items",
	}
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskStartCmd())
	cmd.AddCommand(newTaskCompleteCmd())
	cmd.AddCommand(newTaskEvidenceCmd())
	cmd.AddCommand(newTaskValidateCmd())
	cmd.AddCommand(newTaskNoteCmd())
	cmd.AddCommand(newTaskDeleteCmd())
	return cmd
}

// taskAction wires the shared plumbing of the per-item commands: config,
// id parsing and --as actor resolution.
type taskAction struct {
	configPath string
	as         uint
}

func (a *taskAction) flags(cmd *cobra.Command) {
	addConfigFlag(cmd, &a.configPath)
	cmd.Flags().UintVar(&a.as, "as", 0, "acting user id (required)")
}

func (a *taskAction) machine(cmd *cobra.Command, rawID string) (*usertask.Machine, *gorm.DB, uint, error) {
	id, err := parseID(rawID, "user task id")
	if err != nil {
		return nil, nil, 0, err
	}
	cfg, gormDB, err := connectFromConfig(a.configPath)
	if err != nil {
		return nil, nil, 0, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, 0, err
	}
	return usertask.New(gormDB, log), gormDB, id, nil
}

func newTaskListCmd() *cobra.Command {
	var (
		configPath string
		filters    usertask.ListFilters
		status     string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				st, err := usertask.ParseStatus(status)
				if err != nil {
					return err
				}
				filters.Status = &st
			}
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			list, err := usertask.New(gormDB, log).List(cmd.Context(), filters)
			if err != nil {
				return err
			}
			t := newTable("ID", "CODE", "DATE", "TIME", "TEMPLATE", "USER", "PARENT", "STATUS")
			for _, ut := range list {
				name := ""
				if ut.Task != nil {
					name = ut.Task.Name
				}
				t.add(fmt.Sprint(ut.ID), ut.Code, ut.ScheduledDate, ut.Time, name, fmt.Sprint(ut.UserID),
					optionalID(ut.ParentUserTaskID), ut.Status.String())
			}
			t.render(cmd.OutOrStdout())
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&filters.Date, "date", "", "scheduled date (YYYY-MM-DD)")
	cmd.Flags().UintVar(&filters.UserID, "user", 0, "assignee user id")
	cmd.Flags().UintVar(&filters.TaskID, "template", 0, "template id")
	cmd.Flags().StringVar(&status, "status", "", "pending, inprogress or completed")
	return cmd
}

func printUserTask(w io.Writer, ut *models.UserTask) {
	name := ""
	if ut.Task != nil {
		name = ut.Task.Name
	}
	fmt.Fprintf(w, "%s %s (%s)\n", headerColor.Sprintf("Work item %d:", ut.ID), name, ut.Code)
	fmt.Fprintf(w, "  Status:    %s\n", colorStatus(ut.Status.String(), ut.Status.String()))
	fmt.Fprintf(w, "  When:      %s %s\n", ut.ScheduledDate, ut.Time)
	fmt.Fprintf(w, "  Assignee:  %d\n", ut.UserID)
	fmt.Fprintf(w, "  Parent:    %s\n", optionalID(ut.ParentUserTaskID))
	if ut.StartAt != nil {
		fmt.Fprintf(w, "  Started:   %s\n", ut.StartAt.Format("2006-01-02 15:04"))
	}
	if ut.CompletedAt != nil {
		fmt.Fprintf(w, "  Completed: %s\n", ut.CompletedAt.Format("2006-01-02 15:04"))
	}
	if ut.ValidatedAt != nil {
		fmt.Fprintf(w, "  Validated: %s by %s\n", ut.ValidatedAt.Format("2006-01-02 15:04"), optionalID(ut.ValidatedBy))
	}
	for _, e := range ut.Evidence {
		fmt.Fprintf(w, "  Evidence:  [%s] %s\n", e.Kind, e.URL)
	}
	if ut.Notes != "" {
		fmt.Fprintf(w, "  Notes:\n%s\n", ut.Notes)
	}
}

func newTaskShowCmd() *cobra.Command {
	var a taskAction
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, id, err := a.machine(cmd, args[0])
			if err != nil {
				return err
			}
			ut, err := m.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printUserTask(cmd.OutOrStdout(), ut)
			return nil
		},
	}
	addConfigFlag(cmd, &a.configPath)
	return cmd
}

func newTaskStartCmd() *cobra.Command {
	var a taskAction
	cmd := &cobra.Command{
		Use:   "start ID",
		Short: "Start a pending work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, gormDB, id, err := a.machine(cmd, args[0])
			if err != nil {
				return err
			}
			actor, err := actorFor(gormDB, a.as)
			if err != nil {
				return err
			}
			if _, err := m.Start(cmd.Context(), id, actor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Work item %d started\n", id)
			return nil
		},
	}
	a.flags(cmd)
	return cmd
}

func newTaskCompleteCmd() *cobra.Command {
	var (
		a        taskAction
		in       usertask.CompleteInput
		evidence []string
	)
	cmd := &cobra.Command{
		Use:   "complete ID",
		Short: "Complete an in-progress work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, gormDB, id, err := a.machine(cmd, args[0])
			if err != nil {
				return err
			}
			actor, err := actorFor(gormDB, a.as)
			if err != nil {
				return err
			}
			for _, url := range evidence {
				in.Evidence = append(in.Evidence, usertask.EvidenceInput{URL: url})
			}
			if _, err := m.Complete(cmd.Context(), id, actor, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Work item %d %s\n", id, okColor.Sprint("completed"))
			return nil
		},
	}
	a.flags(cmd)
	cmd.Flags().StringArrayVar(&evidence, "evidence", nil, "photo evidence URL (repeatable)")
	cmd.Flags().StringVar(&in.ScanCode, "scan", "", "scanned code")
	cmd.Flags().StringVar(&in.Note, "note", "", "completion note")
	return cmd
}

func newTaskEvidenceCmd() *cobra.Command {
	var (
		a        taskAction
		in       usertask.EvidenceInput
		lat, lng float64
	)
	cmd := &cobra.Command{
		Use:   "evidence ID URL",
		Short: "Attach evidence to a work item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, gormDB, id, err := a.machine(cmd, args[0])
			if err != nil {
				return err
			}
			actor, err := actorFor(gormDB, a.as)
			if err != nil {
				return err
			}
			in.URL = args[1]
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				in.Latitude, in.Longitude = &lat, &lng
			}
			e, err := m.AttachEvidence(cmd.Context(), id, actor, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Attached %s evidence %d to work item %d\n", e.Kind, e.ID, id)
			return nil
		},
	}
	a.flags(cmd)
	cmd.Flags().StringVar(&in.Kind, "kind", "", "photo, scan, geo or file (default photo)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude for geo evidence")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude for geo evidence")
	return cmd
}

func newTaskValidateCmd() *cobra.Command {
	var (
		a    taskAction
		note string
	)
	cmd := &cobra.Command{
		Use:   "validate ID",
		Short: "Sign off a completed work item (supervisor)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, gormDB, id, err := a.machine(cmd, args[0])
			if err != nil {
				return err
			}
			actor, err := actorFor(gormDB, a.as)
			if err != nil {
				return err
			}
			if _, err := m.Validate(cmd.Context(), id, actor, note); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Work item %d validated\n", id)
			return nil
		},
	}
	a.flags(cmd)
	cmd.Flags().StringVar(&note, "note", "", "validation note")
	return cmd
}

func newTaskNoteCmd() *cobra.Command {
	var a taskAction
	cmd := &cobra.Command{
		Use:   "note ID TEXT",
		Short: "Append a note to a work item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, gormDB, id, err := a.machine(cmd, args[0])
			if err != nil {
				return err
			}
			actor, err := actorFor(gormDB, a.as)
			if err != nil {
				return err
			}
			if _, err := m.Annotate(cmd.Context(), id, actor, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note added to work item %d\n", id)
			return nil
		},
	}
	a.flags(cmd)
	return cmd
}

func newTaskDeleteCmd() *cobra.Command {
	var a taskAction
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a work item (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, gormDB, id, err := a.machine(cmd, args[0])
			if err != nil {
				return err
			}
			actor, err := actorFor(gormDB, a.as)
			if err != nil {
				return err
			}
			if err := m.Delete(cmd.Context(), id, actor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Work item %d deleted\n", id)
			return nil
		},
	}
	a.flags(cmd)
	return cmd
}
