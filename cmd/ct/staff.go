package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/caretaker/internal/role"
	"github.com/zulandar/caretaker/internal/task"
)

func newAssetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage assets and their units",
	}
	cmd.AddCommand(newAssetAddCmd())
	cmd.AddCommand(newAssetListCmd())
	cmd.AddCommand(newUnitAddCmd())
	return cmd
}

func newAssetAddCmd() *cobra.Command {
	var (
		configPath string
		address    string
		as         uint
	)
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			a, err := task.CreateAsset(gormDB, as, args[0], address)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created asset %d (%s)\n", a.ID, a.Name)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&address, "address", "", "street address")
	cmd.Flags().UintVar(&as, "as", 0, "acting user id recorded in the audit log")
	return cmd
}

func newAssetListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			assets, err := task.ListAssets(gormDB)
			if err != nil {
				return err
			}
			t := newTable("ID", "NAME", "ADDRESS", "UNITS")
			for _, a := range assets {
				units := make([]string, len(a.Units))
				for i, u := range a.Units {
					units[i] = fmt.Sprintf("%d:%s", u.ID, u.Name)
				}
				t.add(fmt.Sprint(a.ID), a.Name, a.Address, strings.Join(units, ", "))
			}
			t.render(cmd.OutOrStdout())
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newUnitAddCmd() *cobra.Command {
	var (
		configPath string
		floor      string
		as         uint
	)
	cmd := &cobra.Command{
		Use:   "unit-add ASSET_ID NAME",
		Short: "Add a unit (room, floor section) to an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := parseID(args[0], "asset id")
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			u, err := task.CreateUnit(gormDB, as, assetID, args[1], floor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created unit %d (%s) in asset %d\n", u.ID, u.Name, assetID)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&floor, "floor", "", "floor label")
	cmd.Flags().UintVar(&as, "as", 0, "acting user id recorded in the audit log")
	return cmd
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff and their role assignments",
	}
	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserAssignCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "add NAME EMAIL",
		Short: "Create a staff member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			u, err := role.CreateUser(gormDB, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %d (%s <%s>)\n", u.ID, u.Name, u.Email)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newUserListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List staff",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			users, err := role.ListUsers(gormDB)
			if err != nil {
				return err
			}
			t := newTable("ID", "NAME", "EMAIL", "STATUS")
			for _, u := range users {
				t.add(fmt.Sprint(u.ID), u.Name, u.Email, activeLabel(u.Active))
			}
			t.render(cmd.OutOrStdout())
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newUserAssignCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "assign USER_ID ASSET_ID ROLE",
		Short: "Give a user a role at an asset",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			assetID, err := parseID(args[1], "asset id")
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := role.Assign(gormDB, userID, assetID, args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d is %s at asset %d\n", userID, args[2], assetID)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage task groups (shift windows)",
	}
	cmd.AddCommand(newGroupAddCmd())
	cmd.AddCommand(newGroupListCmd())
	cmd.AddCommand(newGroupToggleCmd("enable", true))
	cmd.AddCommand(newGroupToggleCmd("disable", false))
	return cmd
}

func newGroupAddCmd() *cobra.Command {
	var (
		configPath string
		as         uint
	)
	cmd := &cobra.Command{
		Use:   "add NAME START END",
		Short: "Create a task group, e.g. add morning 06:00 14:00",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			g, err := task.CreateGroup(gormDB, as, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created group %d (%s %s-%s)\n", g.ID, g.Name, g.StartTime, g.EndTime)
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&as, "as", 0, "acting user id recorded in the audit log")
	return cmd
}

func newGroupListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List task groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			groups, err := task.ListGroups(gormDB)
			if err != nil {
				return err
			}
			t := newTable("ID", "NAME", "START", "END", "STATUS")
			for _, g := range groups {
				t.add(fmt.Sprint(g.ID), g.Name, g.StartTime, g.EndTime, activeLabel(g.IsActive))
			}
			t.render(cmd.OutOrStdout())
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newGroupToggleCmd(verb string, active bool) *cobra.Command {
	var (
		configPath string
		as         uint
	)
	cmd := &cobra.Command{
		Use:   verb + " ID",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a task group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "group id")
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := task.SetGroupActive(gormDB, as, id, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Group %d is now %s\n", id, activeLabel(active))
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&as, "as", 0, "acting user id recorded in the audit log")
	return cmd
}
