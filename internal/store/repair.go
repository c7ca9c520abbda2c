package store

import (
	"fmt"
	"sort"

	"github.com/fspec-dev/fspec/internal/workunit"
)

// IndexMove records one id relocated by the repair pass.
type IndexMove struct {
	ID   string
	From workunit.Status // "" when the id was missing from every list
	To   workunit.Status
}

func (m IndexMove) String() string {
	if m.From == "" {
		return fmt.Sprintf("%s: added to %q (was missing from every status list)", m.ID, m.To)
	}
	return fmt.Sprintf("%s: moved %q -> %q", m.ID, m.From, m.To)
}

// CheckConsistency reports every disagreement between a unit's own status
// field and its state-index membership, without mutating anything. The
// status field is authoritative.
func (d *Document) CheckConsistency() []IndexMove {
	// Where each id currently sits, first occurrence wins.
	located := map[string]workunit.Status{}
	for _, status := range workunit.AllStatuses {
		for _, id := range d.States[status] {
			if _, seen := located[id]; !seen {
				located[id] = status
			}
		}
	}

	var moves []IndexMove
	for id, u := range d.WorkUnits {
		at, present := located[id]
		if !present {
			moves = append(moves, IndexMove{ID: id, To: u.Status})
			continue
		}
		if at != u.Status {
			moves = append(moves, IndexMove{ID: id, From: at, To: u.Status})
		}
	}
	sort.Slice(moves, func(i, j int) bool { return moves[i].ID < moves[j].ID })
	return moves
}

// Repair fixes state-index inconsistencies: every id is moved into the list
// matching its unit's status field, duplicate memberships are collapsed,
// and ids pointing at no work unit are dropped. Returns the moves applied.
func (d *Document) Repair() []IndexMove {
	moves := d.CheckConsistency()

	placed := map[string]bool{}
	for _, status := range workunit.AllStatuses {
		var kept []string
		for _, id := range d.States[status] {
			u, ok := d.WorkUnits[id]
			if !ok || placed[id] || u.Status != status {
				continue
			}
			placed[id] = true
			kept = append(kept, id)
		}
		d.States[status] = kept
	}
	for _, m := range moves {
		if placed[m.ID] {
			continue // already listed correctly; only a duplicate was dropped
		}
		placed[m.ID] = true
		d.States[m.To] = append(d.States[m.To], m.ID)
	}
	return moves
}
