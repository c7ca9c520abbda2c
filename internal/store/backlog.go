package store

import (
	"fmt"

	"github.com/fspec-dev/fspec/internal/workunit"
)

// Placement names a backlog reorder target.
type Placement struct {
	Top      bool
	Bottom   bool
	Before   string // sibling id
	After    string // sibling id
	Position int    // absolute 1-based; 0 means unset
}

// Reorder moves id within the backlog status list. Units in any other
// status are rejected; a named sibling must itself be in the backlog.
func (d *Document) Reorder(id string, p Placement) error {
	u, err := d.Get(id)
	if err != nil {
		return err
	}
	if u.Status != workunit.StatusBacklog {
		return workunit.Invalid(
			fmt.Sprintf("Cannot reorder %s: it is in %q, not the backlog", id, u.Status),
			"Only backlog work units can be reordered")
	}

	list, _ := removeFromList(d.States[workunit.StatusBacklog], id)

	indexOf := func(sibling string) (int, error) {
		for i, v := range list {
			if v == sibling {
				return i, nil
			}
		}
		return 0, workunit.Invalid(
			fmt.Sprintf("Cannot reorder relative to %q: not found in the backlog", sibling),
			"Reference a work unit that is currently in the backlog")
	}

	var at int
	switch {
	case p.Top:
		at = 0
	case p.Bottom:
		at = len(list)
	case p.Before != "":
		i, err := indexOf(p.Before)
		if err != nil {
			return err
		}
		at = i
	case p.After != "":
		i, err := indexOf(p.After)
		if err != nil {
			return err
		}
		at = i + 1
	case p.Position > 0:
		at = p.Position - 1
		if at > len(list) {
			at = len(list)
		}
	default:
		return workunit.Invalid(
			"No placement given",
			"Pass --top, --bottom, --before=<id>, --after=<id>, or --position=<n>")
	}

	list = append(list, "")
	copy(list[at+1:], list[at:])
	list[at] = id
	d.States[workunit.StatusBacklog] = list
	return nil
}
