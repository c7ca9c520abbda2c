// Package transition validates and executes work-unit lifecycle changes.
//
// The engine enforces the ACDD ordering: specification before tests, tests
// before implementation, full coverage before completion. Every guard runs
// against a deep copy of the unit; the live document is only touched once
// all guards and side effects have succeeded, so a failed transition leaves
// zero partial writes.
package transition

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fspec-dev/fspec/internal/checkpoint"
	"github.com/fspec-dev/fspec/internal/coverage"
	"github.com/fspec-dev/fspec/internal/store"
	"github.com/fspec-dev/fspec/internal/workunit"
)

// Engine orchestrates one status change against a loaded document.
type Engine struct {
	Doc         *store.Document
	Validator   *coverage.Validator
	Checkpoints checkpoint.Service
	Log         *slog.Logger
	Clock       func() time.Time
}

// Options carries the optional inputs of a transition.
type Options struct {
	// Reason is recorded in the state history entry.
	Reason string
	// BlockedReason is mandatory when the target is blocked.
	BlockedReason string
}

// Result is the outcome of a successful transition.
type Result struct {
	Success           bool
	NewStatus         workunit.Status
	Warnings          []string
	SystemReminder    string
	CheckpointCreated bool
	CheckpointName    string
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// Move transitions the work unit to the target status, running every guard
// before any mutation.
func (e *Engine) Move(id string, target workunit.Status, opts Options) (*Result, error) {
	unit, err := e.Doc.Get(id)
	if err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, workunit.Invalid(
			fmt.Sprintf("Unknown status %q", target),
			fmt.Sprintf("Valid statuses: %s", statusList()))
	}
	from := unit.Status
	if from == target {
		return nil, workunit.Invalid(
			fmt.Sprintf("Work unit %s is already in %q", id, target),
			"Pick a different target status")
	}

	if err := e.checkOrdering(id, from, target, opts); err != nil {
		return nil, err
	}

	res := &Result{Success: true, NewStatus: target}

	// All further checks and mutations happen on a copy; the document is
	// only touched at the commit point below.
	next := unit.Clone()

	if from == workunit.StatusSpecifying && target == workunit.StatusTesting && next.Estimate == nil {
		res.Warnings = append(res.Warnings, "No estimate assigned")
	}

	// Entry guards apply to forward progress and to blocked exits. Backward
	// moves are always permitted: the unit already passed those gates on the
	// way up, and backing out must never be obstructed.
	if !isBackward(from, target) {
		if err := e.runGuards(next, target); err != nil {
			return nil, err
		}
	}

	now := e.now()
	next.Status = target
	next.UpdatedAt = now
	switch {
	case target == workunit.StatusBlocked:
		next.BlockedReason = opts.BlockedReason
	case from == workunit.StatusBlocked:
		next.BlockedReason = ""
	}
	reason := opts.Reason
	if reason == "" && target == workunit.StatusBlocked {
		reason = opts.BlockedReason
	}
	next.StateHistory = append(next.StateHistory, workunit.StateHistoryEntry{
		State:     target,
		Timestamp: now,
		Reason:    reason,
	})

	// Best-effort checkpoint before persistence; failures are logged and
	// swallowed, never block the transition.
	e.autoCheckpoint(id, from, res)

	e.Doc.ReplaceUnit(next)
	if target == workunit.StatusDone {
		e.Doc.SortDoneByRecency()
		res.SystemReminder = fmt.Sprintf(
			"<system-reminder>%s is done — run a review for this unit before starting dependent work.</system-reminder>", id)
	}
	return res, nil
}

// isBackward reports whether the move goes down the forward chain.
func isBackward(from, target workunit.Status) bool {
	fi, ti := from.ForwardIndex(), target.ForwardIndex()
	return fi >= 0 && ti >= 0 && ti < fi
}

// checkOrdering enforces the transition table: strict forward progression,
// free backward moves, blocked reachable from anywhere, backlog
// unreachable.
func (e *Engine) checkOrdering(id string, from, target workunit.Status, opts Options) error {
	if target == workunit.StatusBacklog {
		return workunit.Invalid(
			"Cannot move work back to backlog — use 'blocked' instead",
			fmt.Sprintf("fspec update-status %s blocked --blocked-reason=\"...\"", id))
	}
	if target == workunit.StatusBlocked {
		if opts.BlockedReason == "" {
			return workunit.Invalid(
				"Blocked reason is required — use --blocked-reason=...",
				fmt.Sprintf("fspec update-status %s blocked --blocked-reason=\"waiting on X\"", id))
		}
		return nil
	}
	if from == workunit.StatusBlocked {
		// Exiting blocked goes wherever the caller says; the engine never
		// auto-restores a prior state from history. Target guards still
		// apply.
		return nil
	}

	fi, ti := from.ForwardIndex(), target.ForwardIndex()
	if ti < fi {
		// Backward moves among the working states, and from done, are
		// always permitted so mistakes can be fixed.
		return nil
	}
	if ti == fi+1 {
		return nil
	}
	required := workunit.ForwardOrder[fi+1]
	return workunit.Invalid(
		fmt.Sprintf("Must move to '%s' state first — ACDD requires %s", required, ordering(required)),
		fmt.Sprintf("fspec update-status %s %s", id, required))
}

// ordering names the ACDD rationale for a required intermediate state.
func ordering(required workunit.Status) string {
	switch required {
	case workunit.StatusSpecifying:
		return "specification before testing"
	case workunit.StatusTesting:
		return "tests before implementation"
	case workunit.StatusImplementing:
		return "implementation before validation"
	case workunit.StatusValidating:
		return "validation before completion"
	}
	return "each state in order"
}

// runGuards evaluates the entry conditions for the target status against
// the (still uncommitted) copy of the unit.
func (e *Engine) runGuards(next *workunit.WorkUnit, target workunit.Status) error {
	coverageExempt := next.Type == workunit.TypeTask

	switch target {
	case workunit.StatusTesting:
		if coverageExempt {
			return nil
		}
		return e.Validator.CheckTestingGate(next)

	case workunit.StatusImplementing:
		if coverageExempt {
			return nil
		}
		return e.Validator.CheckImplementingGate(next)

	case workunit.StatusDone:
		if err := e.checkChildrenDone(next); err != nil {
			return err
		}
		if coverageExempt {
			return nil
		}
		// Auto-compaction runs on the copy first, then the full-coverage
		// check. A validation failure discards the copy, so compaction and
		// the status change commit together or not at all.
		dropped := next.CompactAll()
		if dropped > 0 {
			e.log().Debug("auto-compacted collections", "unit", next.ID, "dropped", dropped)
		}
		return e.Validator.CheckDoneGate(next)
	}
	return nil
}

// checkChildrenDone fails unless every child is already done, enumerating
// each incomplete child and its current status.
func (e *Engine) checkChildrenDone(u *workunit.WorkUnit) error {
	var incomplete []string
	for _, childID := range u.Children {
		child, err := e.Doc.Get(childID)
		if err != nil {
			incomplete = append(incomplete, fmt.Sprintf("%s (missing)", childID))
			continue
		}
		if child.Status != workunit.StatusDone {
			incomplete = append(incomplete, fmt.Sprintf("%s (%s)", childID, child.Status))
		}
	}
	if len(incomplete) == 0 {
		return nil
	}
	return workunit.Invalid(
		fmt.Sprintf("Complete all children first: %s", strings.Join(incomplete, ", ")),
		"Move every child to 'done' before completing the parent")
}

// autoCheckpoint requests a tree snapshot when the originating status is
// not backlog and the working tree is dirty. Checkpoint failures never
// block the transition.
func (e *Engine) autoCheckpoint(id string, from workunit.Status, res *Result) {
	if e.Checkpoints == nil || from == workunit.StatusBacklog {
		return
	}
	dirty, err := e.Checkpoints.TreeDirty()
	if err != nil {
		e.log().Warn("checkpoint dirty-check failed", "unit", id, "error", err)
		return
	}
	if !dirty {
		return
	}
	name := fmt.Sprintf("%s-auto-%s", id, from)
	if err := e.Checkpoints.Create(id, name); err != nil {
		e.log().Warn("checkpoint creation failed", "unit", id, "checkpoint", name, "error", err)
		return
	}
	res.CheckpointCreated = true
	res.CheckpointName = name
}

func statusList() string {
	parts := make([]string, len(workunit.AllStatuses))
	for i, s := range workunit.AllStatuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
