package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fspec-dev/fspec/internal/config"
	"github.com/fspec-dev/fspec/internal/store"
	"github.com/fspec-dev/fspec/internal/style"
	"github.com/fspec-dev/fspec/internal/workunit"
)

var (
	createType        string
	createDescription string
	createParent      string
	listStatus        string
	deleteCascade     bool
)

var createCmd = &cobra.Command{
	Use:     "create <title>",
	GroupID: GroupWork,
	Short:   "Create a work unit in the backlog",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(func(cfg *config.Config, doc *store.Document) error {
			ut := workunit.UnitType(createType)
			if !ut.IsValid() {
				return workunit.Invalid(
					fmt.Sprintf("Unknown type %q", createType),
					"Valid types: story, bug, task")
			}
			now := store.Clock()
			u := &workunit.WorkUnit{
				ID:          doc.NextID(cfg.Prefix),
				Title:       args[0],
				Description: createDescription,
				Type:        ut,
				Status:      workunit.StatusBacklog,
				CreatedAt:   now,
				UpdatedAt:   now,
				StateHistory: []workunit.StateHistoryEntry{
					{State: workunit.StatusBacklog, Timestamp: now},
				},
			}
			if err := doc.Insert(u); err != nil {
				return err
			}
			if createParent != "" {
				if err := doc.SetParent(u.ID, createParent); err != nil {
					return err
				}
			}
			fmt.Println(style.OK("Created " + u.ID))
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: GroupWork,
	Short:   "Show a work unit",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReadOnly(func(cfg *config.Config, doc *store.Document) error {
			u, err := doc.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s  %s\n", style.OK(u.ID), u.Title)
			fmt.Printf("  type: %s  status: %s\n", u.Type, u.Status)
			if u.Status == workunit.StatusBlocked {
				fmt.Println(style.Warning("  blocked: " + u.BlockedReason))
			}
			if u.Estimate != nil {
				fmt.Printf("  estimate: %d\n", *u.Estimate)
			}
			if u.Parent != "" {
				fmt.Printf("  parent: %s\n", u.Parent)
			}
			if len(u.Children) > 0 {
				fmt.Printf("  children: %v\n", u.Children)
			}
			if len(u.LinkedFeatures) > 0 {
				fmt.Printf("  linked features: %v\n", u.LinkedFeatures)
			}
			for _, kind := range workunit.AllCollectionKinds {
				c := u.Collection(kind)
				if len(c.Items) > 0 {
					fmt.Printf("  %ss: %s\n", kind, c.Summary())
				}
			}
			for _, h := range u.StateHistory {
				line := fmt.Sprintf("  %s  %s", h.Timestamp.Format("2006-01-02 15:04"), h.State)
				if h.Reason != "" {
					line += "  (" + h.Reason + ")"
				}
				fmt.Println(style.Dim(line))
			}
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: GroupWork,
	Short:   "List work units grouped by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReadOnly(func(cfg *config.Config, doc *store.Document) error {
			statuses := workunit.AllStatuses
			if listStatus != "" {
				statuses = []workunit.Status{workunit.Status(listStatus)}
			}
			for _, status := range statuses {
				ids := doc.States[status]
				if len(ids) == 0 {
					continue
				}
				fmt.Println(style.OK(string(status)))
				for _, id := range ids {
					if u, ok := doc.WorkUnits[id]; ok {
						fmt.Printf("  %s  %s\n", id, u.Title)
					}
				}
			}
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	GroupID: GroupWork,
	Short:   "Delete a work unit",
	Long: `Delete a work unit from the document.

A unit with children or outbound blocks relationships is refused unless
--cascade is given, which deletes the whole child subtree and severs the
blocks edges.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(func(cfg *config.Config, doc *store.Document) error {
			deleted, err := doc.Delete(args[0], deleteCascade)
			if err != nil {
				return err
			}
			sort.Strings(deleted)
			for _, id := range deleted {
				fmt.Println(style.OK("Deleted " + id))
			}
			return nil
		})
	},
}

var estimateCmd = &cobra.Command{
	Use:     "estimate <id> <points>",
	GroupID: GroupWork,
	Short:   "Assign a story-point estimate",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(func(cfg *config.Config, doc *store.Document) error {
			u, err := doc.Get(args[0])
			if err != nil {
				return err
			}
			points, err := strconv.Atoi(args[1])
			if err != nil || points < 0 {
				return workunit.Invalid(
					fmt.Sprintf("Invalid estimate %q", args[1]),
					"Pass a non-negative integer number of points")
			}
			u.Estimate = &points
			touch(u)
			fmt.Println(style.OK(fmt.Sprintf("%s estimated at %d point(s)", u.ID, points)))
			return nil
		})
	},
}

func init() {
	createCmd.Flags().StringVarP(&createType, "type", "t", "story", "Unit type: story, bug, or task")
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "Description")
	createCmd.Flags().StringVar(&createParent, "parent", "", "Parent work-unit id")
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Only show one status")
	deleteCmd.Flags().BoolVar(&deleteCascade, "cascade", false, "Delete children and sever blocks edges too")
	rootCmd.AddCommand(createCmd, showCmd, listCmd, deleteCmd, estimateCmd)
}
