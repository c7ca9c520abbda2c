package store

import (
	"fmt"

	"github.com/fspec-dev/fspec/internal/workunit"
)

// depthAbove counts ancestors of id (0 for a root unit).
func (d *Document) depthAbove(id string) int {
	depth := 0
	seen := map[string]bool{}
	for {
		u, ok := d.WorkUnits[id]
		if !ok || u.Parent == "" || seen[id] {
			return depth
		}
		seen[id] = true
		id = u.Parent
		depth++
	}
}

// depthBelow counts the deepest descendant chain under id (0 for a leaf).
func (d *Document) depthBelow(id string) int {
	u, ok := d.WorkUnits[id]
	if !ok {
		return 0
	}
	max := 0
	for _, child := range u.Children {
		if h := d.depthBelow(child) + 1; h > max {
			max = h
		}
	}
	return max
}

// isDescendant reports whether candidate sits anywhere under root.
func (d *Document) isDescendant(root, candidate string) bool {
	u, ok := d.WorkUnits[root]
	if !ok {
		return false
	}
	for _, child := range u.Children {
		if child == candidate || d.isDescendant(child, candidate) {
			return true
		}
	}
	return false
}

// SetParent links child under parent, keeping the back-references mutually
// consistent. A parent of "" detaches the child. Nesting beyond three
// levels and circular assignments are rejected before any mutation.
func (d *Document) SetParent(childID, parentID string) error {
	child, err := d.Get(childID)
	if err != nil {
		return err
	}

	if parentID == "" {
		if child.Parent != "" {
			if old, ok := d.WorkUnits[child.Parent]; ok {
				old.Children, _ = removeFromList(old.Children, childID)
			}
			child.Parent = ""
		}
		return nil
	}

	parent, err := d.Get(parentID)
	if err != nil {
		return err
	}
	if parentID == childID || d.isDescendant(childID, parentID) {
		return workunit.Invalid(
			fmt.Sprintf("Cannot make %s a child of %s: that would create a cycle", childID, parentID),
			"Pick a parent outside the unit's own subtree")
	}
	// The resulting chain is parent's ancestors + parent + child + child's
	// deepest descendant chain.
	levels := d.depthAbove(parentID) + 1 + 1 + d.depthBelow(childID)
	if levels > workunit.MaxNestingDepth {
		return workunit.Invalid(
			fmt.Sprintf("Cannot nest %s under %s: hierarchy is limited to %d levels", childID, parentID, workunit.MaxNestingDepth),
			"Flatten the hierarchy before re-parenting")
	}

	if child.Parent != "" {
		if old, ok := d.WorkUnits[child.Parent]; ok {
			old.Children, _ = removeFromList(old.Children, childID)
		}
	}
	child.Parent = parentID
	parent.Children = append(parent.Children, childID)
	return nil
}
