package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fspec-dev/fspec/internal/checkpoint"
	"github.com/fspec-dev/fspec/internal/config"
	"github.com/fspec-dev/fspec/internal/coverage"
	"github.com/fspec-dev/fspec/internal/feature"
	"github.com/fspec-dev/fspec/internal/logging"
	"github.com/fspec-dev/fspec/internal/store"
	"github.com/fspec-dev/fspec/internal/style"
	"github.com/fspec-dev/fspec/internal/transition"
	"github.com/fspec-dev/fspec/internal/workunit"
)

var updateStatusCmd = &cobra.Command{
	Use:     "update-status <id> <status>",
	GroupID: GroupWork,
	Short:   "Move a work unit to a new lifecycle status",
	Long: `Move a work unit through the ACDD lifecycle.

Forward progress is strictly sequential:

  backlog -> specifying -> testing -> implementing -> validating -> done

Guards run before anything is written:
  - testing requires at least one scenario tagged @<id>
  - implementing requires each linked feature file to map to exactly one
    test file (task units are exempt)
  - done requires every child done, then compacts the unit's collections
    and checks full scenario coverage; a failure aborts the whole move

Backward moves between the working states, and out of done, are always
allowed. 'blocked' is reachable from any state with --blocked-reason, and
is exited by naming the destination explicitly. Moving back to backlog is
never allowed.

When the origin is not backlog and the working tree is dirty, a checkpoint
named <id>-auto-<from> is captured first; checkpoint failures never block
the move.`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdateStatus,
}

var (
	statusReason        string
	statusBlockedReason string
)

func init() {
	updateStatusCmd.Flags().StringVar(&statusReason, "reason", "", "Reason recorded in the state history")
	updateStatusCmd.Flags().StringVar(&statusBlockedReason, "blocked-reason", "", "Why the unit is blocked (required for 'blocked')")
	rootCmd.AddCommand(updateStatusCmd)
}

// newEngine wires the transition engine to the real collaborators.
func newEngine(cfg *config.Config, doc *store.Document) *transition.Engine {
	return &transition.Engine{
		Doc:         doc,
		Validator:   newValidator(cfg),
		Checkpoints: checkpoint.NewGitService(rootDir),
		Log:         logging.New("transition"),
	}
}

func newValidator(cfg *config.Config) *coverage.Validator {
	return &coverage.Validator{
		Specs:       feature.DirReader{},
		Coverage:    coverage.FileReader{Suffix: cfg.CoverageSuffix},
		FeaturesDir: joinRoot(cfg.FeaturesDir),
	}
}

func runUpdateStatus(cmd *cobra.Command, args []string) error {
	id, target := args[0], workunit.Status(args[1])

	return withDocument(func(cfg *config.Config, doc *store.Document) error {
		engine := newEngine(cfg, doc)
		res, err := engine.Move(id, target, transition.Options{
			Reason:        statusReason,
			BlockedReason: statusBlockedReason,
		})
		if err != nil {
			return err
		}

		fmt.Println(style.OK(fmt.Sprintf("%s → %s", id, res.NewStatus)))
		for _, w := range res.Warnings {
			fmt.Println(style.Warning("Warning: " + w))
		}
		if res.CheckpointCreated {
			fmt.Println(style.Dim("Checkpoint created: " + res.CheckpointName))
		}
		if res.SystemReminder != "" {
			fmt.Println(style.Reminder(res.SystemReminder))
		}
		return nil
	})
}
