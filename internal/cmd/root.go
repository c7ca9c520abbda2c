// Package cmd implements the fspec command tree.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fspec-dev/fspec/internal/config"
	"github.com/fspec-dev/fspec/internal/logging"
	"github.com/fspec-dev/fspec/internal/store"
	"github.com/fspec-dev/fspec/internal/style"
	"github.com/fspec-dev/fspec/internal/workunit"
)

// Command groups, in help order.
const (
	GroupWork        = "work"
	GroupCollections = "collections"
	GroupMaintenance = "maintenance"
)

var (
	rootDir  string
	jsonLogs bool
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "fspec",
	Short: "Specification-driven work tracking with the ACDD lifecycle",
	Long: `fspec tracks work units (stories, bugs, tasks) through a fixed
methodology lifecycle and refuses to let implementation run ahead of
specifications and tests.

The lifecycle is strict in the forward direction:

  backlog -> specifying -> testing -> implementing -> validating -> done

Moving forward requires the previous phase's artifacts to exist: tagged
scenarios before testing, a 1:1 test-file mapping before implementing, and
full scenario coverage before done. Backward moves are free so mistakes can
be fixed; 'blocked' is reachable from anywhere with a reason.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		format := "text"
		if jsonLogs {
			format = "json"
		}
		logging.Init(level, format)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "C", ".", "Project root directory")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: GroupWork, Title: "Work unit commands:"},
		&cobra.Group{ID: GroupCollections, Title: "Collection commands:"},
		&cobra.Group{ID: GroupMaintenance, Title: "Maintenance commands:"},
	)
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		renderError(err)
		return 1
	}
	return 0
}

// renderError prints the error with any remediation suggestions attached.
func renderError(err error) {
	fmt.Fprintln(os.Stderr, style.Error("Error: "+err.Error()))
	var ve *workunit.ValidationError
	if errors.As(err, &ve) {
		for _, s := range ve.Suggestions {
			fmt.Fprintln(os.Stderr, style.Dim("  → "+s))
		}
	}
}

// withDocument runs fn inside one locked load→mutate→persist cycle. The
// document is saved only when fn returns nil.
func withDocument(fn func(cfg *config.Config, doc *store.Document) error) error {
	cfg, s, doc, err := openDocument()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(cfg, doc); err != nil {
		return err
	}
	return s.Save(doc)
}

// withReadOnly runs fn under the lock without persisting afterwards.
func withReadOnly(fn func(cfg *config.Config, doc *store.Document) error) error {
	cfg, s, doc, err := openDocument()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(cfg, doc)
}

func openDocument() (*config.Config, *store.Store, *store.Document, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := store.Open(docPath(cfg))
	if err != nil {
		return nil, nil, nil, err
	}
	doc, err := s.Load()
	if err != nil {
		s.Close()
		return nil, nil, nil, err
	}
	return cfg, s, doc, nil
}

func docPath(cfg *config.Config) string {
	return joinRoot(cfg.SpecFile)
}

func joinRoot(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(rootDir, rel)
}
