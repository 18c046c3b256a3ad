package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/caretaker/internal/models"
	"github.com/zulandar/caretaker/internal/task"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"tmpl"},
		Short:   "Manage recurring task templates",
	}
	cmd.AddCommand(newTemplateAddCmd())
	cmd.AddCommand(newTemplateListCmd())
	cmd.AddCommand(newTemplateShowCmd())
	cmd.AddCommand(newTemplateSetCmd())
	cmd.AddCommand(newTemplateToggleCmd("enable", true))
	cmd.AddCommand(newTemplateToggleCmd("disable", false))
	cmd.AddCommand(newTemplateLinkCmd())
	cmd.AddCommand(newTemplateUnlinkCmd())
	cmd.AddCommand(newScheduleAddCmd())
	cmd.AddCommand(newScheduleRemoveCmd())
	return cmd
}

// parseSchedule reads "DAY HH:MM", e.g. "mon 07:00" or "all 06:00".
func parseSchedule(s string) (task.ScheduleOpts, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return task.ScheduleOpts{}, fmt.Errorf("schedule %q must be \"DAY HH:MM\"", s)
	}
	return task.ScheduleOpts{Day: fields[0], Time: fields[1]}, nil
}

func newTemplateAddCmd() *cobra.Command {
	var (
		configPath string
		opts       task.CreateOpts
		schedules  []string
		unitID     uint
		groupID    uint
		as         uint
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task template",
		Example: `  ct template add --name "Gate Check" --asset 1 --role 2 \
      --schedule "mon 07:00" --schedule "mon 19:00" --requires-scan --scan-code GATE-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range schedules {
				so, err := parseSchedule(s)
				if err != nil {
					return err
				}
				opts.Schedules = append(opts.Schedules, so)
			}
			if unitID != 0 {
				opts.UnitID = &unitID
			}
			if groupID != 0 {
				opts.TaskGroupID = &groupID
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			t, err := task.Create(gormDB, as, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created template %d (%s) with %d schedules\n", t.ID, t.Name, len(t.Schedules))
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	f := cmd.Flags()
	f.StringVar(&opts.Name, "name", "", "template name (required)")
	f.StringVar(&opts.Description, "description", "", "instructions for staff")
	f.IntVar(&opts.DurationMinutes, "duration", 0, "expected duration in minutes")
	f.UintVar(&opts.AssetID, "asset", 0, "asset id (required)")
	f.UintVar(&opts.RoleID, "role", 0, "role id whose holders receive the work (required)")
	f.UintVar(&unitID, "unit", 0, "unit id within the asset")
	f.UintVar(&groupID, "group", 0, "task group id")
	f.StringArrayVar(&schedules, "schedule", nil, "recurrence point \"DAY HH:MM\" (repeatable; DAY is mon..sun or all)")
	f.BoolVar(&opts.AppliesAllTimeSlots, "all-slots", false, "recur every day at the group start or default time")
	f.StringVar(&opts.CompletionOrder, "order", models.OrderIndependent, "completion order: independent, parent_first or children_first")
	f.BoolVar(&opts.IsMainTask, "main", false, "mark as a main task")
	f.BoolVar(&opts.RequiresValidation, "requires-validation", false, "completion needs evidence and supervisor sign-off")
	f.BoolVar(&opts.RequiresScan, "requires-scan", false, "completion needs a scan or other evidence")
	f.StringVar(&opts.ScanCode, "scan-code", "", "expected scan code")
	f.BoolVar(&opts.Inactive, "inactive", false, "create disabled")
	f.UintVar(&as, "as", 0, "acting user id recorded in the audit log")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newTemplateListCmd() *cobra.Command {
	var (
		configPath string
		filters    task.ListFilters
		activeOnly bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List task templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if activeOnly {
				filters.Active = &activeOnly
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			list, err := task.List(gormDB, filters)
			if err != nil {
				return err
			}
			t := newTable("ID", "NAME", "ASSET", "ROLE", "GROUP", "ORDER", "STATUS")
			for _, tmpl := range list {
				t.add(fmt.Sprint(tmpl.ID), tmpl.Name, fmt.Sprint(tmpl.AssetID), fmt.Sprint(tmpl.RoleID),
					optionalID(tmpl.TaskGroupID), tmpl.CompletionOrder, activeLabel(tmpl.Active))
			}
			t.render(cmd.OutOrStdout())
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&filters.AssetID, "asset", 0, "filter by asset id")
	cmd.Flags().UintVar(&filters.RoleID, "role", 0, "filter by role id")
	cmd.Flags().UintVar(&filters.GroupID, "group", 0, "filter by task group id")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active templates")
	return cmd
}

func newTemplateShowCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a template with its schedules and hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "template id")
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			tmpl, err := task.Get(gormDB, id)
			if err != nil {
				return err
			}
			parents, err := task.ListParents(gormDB, id)
			if err != nil {
				return err
			}
			children, err := task.ListChildren(gormDB, id)
			if err != nil {
				return err
			}
			printTemplate(cmd.OutOrStdout(), tmpl, parents, children)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func printTemplate(w io.Writer, t *models.TaskTemplate, parents, children []models.TaskTemplate) {
	fmt.Fprintf(w, "%s %s\n", headerColor.Sprintf("Template %d:", t.ID), t.Name)
	fmt.Fprintf(w, "  Status:      %s\n", colorStatus(activeLabel(t.Active), activeLabel(t.Active)))
	fmt.Fprintf(w, "  Asset/Role:  %d / %d\n", t.AssetID, t.RoleID)
	fmt.Fprintf(w, "  Unit:        %s\n", optionalID(t.UnitID))
	if t.Group != nil {
		fmt.Fprintf(w, "  Group:       %s (%s-%s)\n", t.Group.Name, t.Group.StartTime, t.Group.EndTime)
	}
	fmt.Fprintf(w, "  Order:       %s\n", t.CompletionOrder)
	fmt.Fprintf(w, "  Duration:    %d min\n", t.DurationMinutes)
	if t.RequiresValidation {
		fmt.Fprintln(w, "  Requires:    evidence + validation")
	}
	if t.RequiresScan {
		fmt.Fprintf(w, "  Requires:    scan %s\n", t.ScanCode)
	}
	if t.Description != "" {
		fmt.Fprintf(w, "  Description: %s\n", t.Description)
	}
	if t.AppliesAllTimeSlots {
		fmt.Fprintln(w, "  Schedule:    every day (all slots)")
	}
	for _, s := range t.Schedules {
		fmt.Fprintf(w, "  Schedule:    [%d] %s %s\n", s.ID, s.DayOfWeek, s.Time)
	}
	for _, p := range parents {
		fmt.Fprintf(w, "  Parent:      %d %s\n", p.ID, p.Name)
	}
	for _, c := range children {
		fmt.Fprintf(w, "  Child:       %d %s\n", c.ID, c.Name)
	}
}

// parseUpdate turns key=value pairs into typed column updates.
func parseUpdate(pairs []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("update %q must be key=value", p)
		}
		switch {
		case v == "null":
			out[k] = nil
		case v == "true" || v == "false":
			out[k] = v == "true"
		default:
			if n, err := strconv.Atoi(v); err == nil {
				out[k] = n
			} else {
				out[k] = v
			}
		}
	}
	return out, nil
}

func newTemplateSetCmd() *cobra.Command {
	var (
		configPath string
		as         uint
	)
	cmd := &cobra.Command{
		Use:     "set ID key=value...",
		Short:   "Update template fields",
		Example: "  ct template set 4 duration_minutes=20 completion_order=parent_first",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "template id")
			if err != nil {
				return err
			}
			updates, err := parseUpdate(args[1:])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := task.Update(gormDB, as, id, updates); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated template %d\n", id)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&as, "as", 0, "acting user id recorded in the audit log")
	return cmd
}

func newTemplateToggleCmd(verb string, active bool) *cobra.Command {
	var (
		configPath string
		as         uint
	)
	cmd := &cobra.Command{
		Use:   verb + " ID",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "template id")
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := task.SetActive(gormDB, as, id, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template %d is now %s\n", id, activeLabel(active))
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&as, "as", 0, "acting user id recorded in the audit log")
	return cmd
}

func newTemplateLinkCmd() *cobra.Command {
	var (
		configPath string
		as         uint
	)
	cmd := &cobra.Command{
		Use:   "link CHILD_ID PARENT_ID",
		Short: "Make a template a child of another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			child, err := parseID(args[0], "child id")
			if err != nil {
				return err
			}
			parent, err := parseID(args[1], "parent id")
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := task.AddParent(gormDB, as, child, parent); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template %d is now a child of %d\n", child, parent)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&as, "as", 0, "acting user id recorded in the audit log")
	return cmd
}

func newTemplateUnlinkCmd() *cobra.Command {
	var (
		configPath string
		as         uint
	)
	cmd := &cobra.Command{
		Use:   "unlink CHILD_ID PARENT_ID",
		Short: "Remove a parent link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			child, err := parseID(args[0], "child id")
			if err != nil {
				return err
			}
			parent, err := parseID(args[1], "parent id")
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := task.RemoveParent(gormDB, as, child, parent); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template %d is no longer a child of %d\n", child, parent)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&as, "as", 0, "acting user id recorded in the audit log")
	return cmd
}

func newScheduleAddCmd() *cobra.Command {
	var (
		configPath string
		as         uint
	)
	cmd := &cobra.Command{
		Use:   "schedule-add ID DAY HH:MM",
		Short: "Add a weekly recurrence point",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "template id")
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			s, err := task.AddSchedule(gormDB, as, id, args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added schedule %d (%s %s) to template %d\n", s.ID, s.DayOfWeek, s.Time, id)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&as, "as", 0, "acting user id recorded in the audit log")
	return cmd
}

func newScheduleRemoveCmd() *cobra.Command {
	var (
		configPath string
		as         uint
	)
	cmd := &cobra.Command{
		Use:   "schedule-rm ID SCHEDULE_ID",
		Short: "Remove a weekly recurrence point",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "template id")
			if err != nil {
				return err
			}
			scheduleID, err := parseID(args[1], "schedule id")
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := task.RemoveSchedule(gormDB, as, id, scheduleID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed schedule %d from template %d\n", scheduleID, id)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&as, "as", 0, "acting user id recorded in the audit log")
	return cmd
}
