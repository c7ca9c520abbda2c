package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fspec-dev/fspec/internal/checkpoint"
	"github.com/fspec-dev/fspec/internal/config"
	"github.com/fspec-dev/fspec/internal/store"
	"github.com/fspec-dev/fspec/internal/style"
	"github.com/fspec-dev/fspec/internal/workunit"
)

var compactForce bool

var compactCmd = &cobra.Command{
	Use:     "compact <id>",
	GroupID: GroupMaintenance,
	Short:   "Permanently drop soft-deleted collection items",
	Long: `Compact all four collections of a work unit: soft-deleted items are
discarded for good and the survivors are renumbered 0..n-1 in creation
order.

Compaction invalidates every item id recorded before it ran. It happens
automatically when a story or bug completes; running it manually during an
earlier phase is destructive and requires --force.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(func(cfg *config.Config, doc *store.Document) error {
			u, err := doc.Get(args[0])
			if err != nil {
				return err
			}
			if u.Status != workunit.StatusDone && !compactForce {
				return workunit.Invalid(
					fmt.Sprintf("Compaction during %q is destructive: deleted items are gone for good and all item ids are renumbered", u.Status),
					"Pass --force to compact anyway, or let the done transition compact automatically")
			}
			if u.Status != workunit.StatusDone {
				fmt.Println(style.Warning(fmt.Sprintf("Warning: compacting during %q — deleted items cannot be recovered afterwards", u.Status)))
			}
			dropped := u.CompactAll()
			touch(u)
			fmt.Println(style.OK(fmt.Sprintf("Compacted %s: %d deleted item(s) dropped", u.ID, dropped)))
			return nil
		})
	},
}

var (
	backlogTop      bool
	backlogBottom   bool
	backlogBefore   string
	backlogAfter    string
	backlogPosition int
)

var backlogCmd = &cobra.Command{
	Use:     "backlog",
	GroupID: GroupMaintenance,
	Short:   "Backlog ordering",
}

var backlogMoveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Reorder a work unit within the backlog",
	Long: `Reorder a backlog work unit. Exactly one placement flag applies:
--top, --bottom, --before=<id>, --after=<id>, or --position=<n> (1-based).

Only members of the backlog can be reordered; sibling ids must themselves
be in the backlog.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(func(cfg *config.Config, doc *store.Document) error {
			err := doc.Reorder(args[0], store.Placement{
				Top:      backlogTop,
				Bottom:   backlogBottom,
				Before:   backlogBefore,
				After:    backlogAfter,
				Position: backlogPosition,
			})
			if err != nil {
				return err
			}
			fmt.Println(style.OK("Backlog reordered"))
			return nil
		})
	},
}

var repairCmd = &cobra.Command{
	Use:     "repair",
	GroupID: GroupMaintenance,
	Short:   "Fix state-index inconsistencies",
	Long: `Check every work unit's status field against the per-status id lists
and move any id into the list matching its unit's own status. The status
field is authoritative; each move is reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(func(cfg *config.Config, doc *store.Document) error {
			moves := doc.Repair()
			if len(moves) == 0 {
				fmt.Println(style.OK("State index is consistent"))
				return nil
			}
			for _, m := range moves {
				fmt.Println(style.Warning("Repaired " + m.String()))
			}
			return nil
		})
	},
}

var checkpointsCmd = &cobra.Command{
	Use:     "checkpoints <id>",
	GroupID: GroupMaintenance,
	Short:   "List checkpoints captured for a work unit",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := checkpoint.NewGitService(rootDir)
		cps, err := svc.List(args[0])
		if err != nil {
			return err
		}
		if len(cps) == 0 {
			fmt.Println(style.Dim("No checkpoints"))
			return nil
		}
		for _, cp := range cps {
			fmt.Printf("%s  %s  %s\n", cp.Name, cp.Commit[:min(12, len(cp.Commit))], style.Dim(cp.CreatedAt.Format("2006-01-02 15:04")))
		}
		return nil
	},
}

var (
	linkUnset bool
)

var linkCmd = &cobra.Command{
	Use:     "link <id> <feature-file>...",
	GroupID: GroupMaintenance,
	Short:   "Manage a unit's explicit specification-file links",
	Long: `Add feature files to a unit's explicit linkedFeatures list. An explicit
list always overrides tag-based auto-discovery; --clear empties the list so
discovery applies again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(func(cfg *config.Config, doc *store.Document) error {
			u, err := doc.Get(args[0])
			if err != nil {
				return err
			}
			if linkUnset {
				u.LinkedFeatures = nil
				touch(u)
				fmt.Println(style.OK("Cleared links; tag discovery applies"))
				return nil
			}
			if len(args) < 2 {
				return workunit.Invalid("No feature files given",
					"Pass one or more feature paths, or --clear to reset")
			}
			u.LinkedFeatures = append(u.LinkedFeatures, args[1:]...)
			touch(u)
			fmt.Println(style.OK(fmt.Sprintf("%s now links %d feature file(s)", u.ID, len(u.LinkedFeatures))))
			return nil
		})
	},
}

var parentCmd = &cobra.Command{
	Use:     "parent <child-id> <parent-id>",
	GroupID: GroupWork,
	Short:   "Re-parent a work unit (\"\" detaches)",
	Long: `Set a unit's parent, keeping parent/child back-references consistent.
Nesting deeper than three levels and circular assignments are rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(func(cfg *config.Config, doc *store.Document) error {
			if err := doc.SetParent(args[0], args[1]); err != nil {
				return err
			}
			touch0, err := doc.Get(args[0])
			if err == nil {
				touch(touch0)
			}
			fmt.Println(style.OK("Hierarchy updated"))
			return nil
		})
	},
}

func init() {
	compactCmd.Flags().BoolVar(&compactForce, "force", false, "Allow destructive compaction outside 'done'")
	backlogMoveCmd.Flags().BoolVar(&backlogTop, "top", false, "Move to the top")
	backlogMoveCmd.Flags().BoolVar(&backlogBottom, "bottom", false, "Move to the bottom")
	backlogMoveCmd.Flags().StringVar(&backlogBefore, "before", "", "Move before this sibling")
	backlogMoveCmd.Flags().StringVar(&backlogAfter, "after", "", "Move after this sibling")
	backlogMoveCmd.Flags().IntVar(&backlogPosition, "position", 0, "Absolute 1-based position")
	linkCmd.Flags().BoolVar(&linkUnset, "clear", false, "Clear the explicit link list")
	backlogCmd.AddCommand(backlogMoveCmd)
	rootCmd.AddCommand(compactCmd, backlogCmd, repairCmd, checkpointsCmd, linkCmd, parentCmd)
}
