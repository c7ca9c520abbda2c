package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fspec-dev/fspec/internal/config"
	"github.com/fspec-dev/fspec/internal/stable"
	"github.com/fspec-dev/fspec/internal/store"
	"github.com/fspec-dev/fspec/internal/style"
	"github.com/fspec-dev/fspec/internal/workunit"
)

// The four collection commands share one implementation; only the kind
// differs. Items are always addressed by their stable id, never by list
// position: ids stay valid across deletes so that independent invocations
// can keep referencing what they saw.

func init() {
	rootCmd.AddCommand(
		newCollectionCmd("rule", workunit.KindRule),
		newCollectionCmd("example", workunit.KindExample),
		newCollectionCmd("question", workunit.KindQuestion),
		newCollectionCmd("note", workunit.KindArchitectureNote),
	)
}

func newCollectionCmd(name string, kind workunit.CollectionKind) *cobra.Command {
	label := kind.Label()

	parent := &cobra.Command{
		Use:     name,
		GroupID: GroupCollections,
		Short:   fmt.Sprintf("Manage a work unit's %ss", kind),
	}

	parent.AddCommand(&cobra.Command{
		Use:   "add <unit-id> <text>",
		Short: fmt.Sprintf("Add a %s", kind),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDocument(func(cfg *config.Config, doc *store.Document) error {
				u, err := doc.Get(args[0])
				if err != nil {
					return err
				}
				id := u.Collection(kind).Add(args[1])
				touch(u)
				fmt.Println(style.OK(fmt.Sprintf("%s %d added to %s", label, id, u.ID)))
				return nil
			})
		},
	})

	parent.AddCommand(&cobra.Command{
		Use:   "remove <unit-id> <item-id>",
		Short: fmt.Sprintf("Soft-delete a %s by id", kind),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDocument(func(cfg *config.Config, doc *store.Document) error {
				u, err := doc.Get(args[0])
				if err != nil {
					return err
				}
				ids, err := stable.ParseIDList(args[1])
				if err != nil {
					return err
				}
				for _, itemID := range ids {
					res, err := u.Collection(kind).Remove(label, itemID)
					if err != nil {
						return err
					}
					if res.AlreadyDeleted {
						fmt.Println(style.Dim(fmt.Sprintf("%s %d already deleted", label, itemID)))
					} else {
						fmt.Println(style.OK(fmt.Sprintf("%s %d deleted", label, itemID)))
					}
				}
				touch(u)
				return nil
			})
		},
	})

	parent.AddCommand(&cobra.Command{
		Use:   "restore <unit-id> <item-id[,item-id...]>",
		Short: fmt.Sprintf("Restore soft-deleted %ss", kind),
		Long: fmt.Sprintf(`Restore one or more soft-deleted %ss by id.

The bulk form validates every id before touching any: one unknown id fails
the whole call with no state change. Restoring an already-active id is a
no-op success.`, kind),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDocument(func(cfg *config.Config, doc *store.Document) error {
				u, err := doc.Get(args[0])
				if err != nil {
					return err
				}
				ids, err := stable.ParseIDList(args[1])
				if err != nil {
					return err
				}
				res, err := u.Collection(kind).Restore(label, ids...)
				if err != nil {
					return err
				}
				touch(u)
				for _, id := range res.AlreadyActive {
					fmt.Println(style.Dim(fmt.Sprintf("%s %d already active", label, id)))
				}
				fmt.Println(style.OK(fmt.Sprintf("Restored %d item(s)", res.RestoredCount)))
				return nil
			})
		},
	})

	listDeleted := false
	listCmd := &cobra.Command{
		Use:   "list <unit-id>",
		Short: fmt.Sprintf("List a unit's %ss", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReadOnly(func(cfg *config.Config, doc *store.Document) error {
				u, err := doc.Get(args[0])
				if err != nil {
					return err
				}
				c := u.Collection(kind)
				for _, it := range c.Items {
					switch {
					case !it.Deleted:
						fmt.Printf("  [%d] %s\n", it.ID, it.Text)
					case listDeleted:
						fmt.Println(style.Dim(fmt.Sprintf("  [%d] %s (deleted)", it.ID, it.Text)))
					}
				}
				fmt.Println(style.Dim(c.Summary()))
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&listDeleted, "deleted", false, "Include soft-deleted items")
	parent.AddCommand(listCmd)

	return parent
}
