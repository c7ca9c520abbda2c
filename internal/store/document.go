// Package store holds the persisted work-unit document and its
// read-modify-write lifecycle.
//
// There is no process-wide current document: every caller threads an
// explicit *Document (and, at the file boundary, a *Store handle) from
// load through mutation to persist. Tests run against in-memory documents
// without touching the filesystem.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fspec-dev/fspec/internal/workunit"
)

// SchemaVersion is written into meta.version on every save.
const SchemaVersion = "2"

// Clock returns the current time. Tests swap it for deterministic output.
var Clock = time.Now

// Meta is the document header.
type Meta struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Document is the single shared JSON document: work units keyed by id plus
// the per-status id index.
type Document struct {
	Meta      Meta                          `json:"meta"`
	WorkUnits map[string]*workunit.WorkUnit `json:"workUnits"`
	States    map[workunit.Status][]string  `json:"states"`

	// extra preserves unknown top-level keys across load→persist.
	extra map[string]json.RawMessage
}

// NewDocument returns an empty document with all status lists present.
func NewDocument() *Document {
	states := make(map[workunit.Status][]string, len(workunit.AllStatuses))
	for _, s := range workunit.AllStatuses {
		states[s] = []string{}
	}
	return &Document{
		Meta:      Meta{Version: SchemaVersion},
		WorkUnits: map[string]*workunit.WorkUnit{},
		States:    states,
	}
}

var docKnownFields = map[string]bool{"meta": true, "workUnits": true, "states": true}

type docAlias Document

// UnmarshalJSON decodes the document and captures unknown top-level keys
// so they round-trip unchanged.
func (d *Document) UnmarshalJSON(data []byte) error {
	var alias docAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if docKnownFields[k] {
			delete(raw, k)
		}
	}
	if len(raw) > 0 {
		alias.extra = raw
	}
	*d = Document(alias)
	if d.WorkUnits == nil {
		d.WorkUnits = map[string]*workunit.WorkUnit{}
	}
	if d.States == nil {
		d.States = map[workunit.Status][]string{}
	}
	return nil
}

// MarshalJSON writes the document merged with preserved unknown keys.
func (d Document) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(docAlias(d))
	if err != nil {
		return nil, err
	}
	if len(d.extra) == 0 {
		return known, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range d.extra {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Get returns the work unit with the given id.
func (d *Document) Get(id string) (*workunit.WorkUnit, error) {
	u, ok := d.WorkUnits[id]
	if !ok {
		return nil, &workunit.NotFoundError{ID: id}
	}
	return u, nil
}

// Insert adds a new work unit and registers it in its status list.
func (d *Document) Insert(u *workunit.WorkUnit) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if _, exists := d.WorkUnits[u.ID]; exists {
		return fmt.Errorf("work unit %q already exists", u.ID)
	}
	d.WorkUnits[u.ID] = u
	d.States[u.Status] = append(d.States[u.Status], u.ID)
	return nil
}

// removeFromList drops id from list, returning the new list and whether the
// id was present.
func removeFromList(list []string, id string) ([]string, bool) {
	for i, v := range list {
		if v == id {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}

// MoveStatus relocates id from one status list to another. The unit's own
// status field is the caller's responsibility; ReplaceUnit commits both
// together.
func (d *Document) MoveStatus(id string, from, to workunit.Status) {
	d.States[from], _ = removeFromList(d.States[from], id)
	d.States[to] = append(d.States[to], id)
}

// ReplaceUnit swaps in the mutated copy of a unit and moves its state-index
// membership if the status changed. This is the single commit point of a
// transition: until it runs, the document is untouched.
func (d *Document) ReplaceUnit(u *workunit.WorkUnit) {
	prev, ok := d.WorkUnits[u.ID]
	if ok && prev.Status != u.Status {
		d.MoveStatus(u.ID, prev.Status, u.Status)
	}
	d.WorkUnits[u.ID] = u
}

// SortDoneByRecency re-sorts the entire done list descending by each
// member's last-updated timestamp (createdAt fallback). The whole list is
// re-sorted, not just the latest entry inserted at a computed position,
// because pre-existing entries may not already be in order.
func (d *Document) SortDoneByRecency() {
	done := d.States[workunit.StatusDone]
	sortByRecency(done, func(id string) time.Time {
		if u, ok := d.WorkUnits[id]; ok {
			return u.LastUpdated()
		}
		return time.Time{}
	})
}

// sortByRecency orders ids descending by the given timestamp accessor,
// stably so unknown ids keep their relative order at the tail.
func sortByRecency(ids []string, at func(string) time.Time) {
	// Insertion sort keeps this dependency-free and stable; done lists are
	// small.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && at(ids[j]).After(at(ids[j-1])); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

// Delete removes a work unit. Units with children or outbound blocks edges
// are refused unless cascade is set; cascade deletes the whole child
// subtree and severs blocks edges. Returns the ids actually deleted.
func (d *Document) Delete(id string, cascade bool) ([]string, error) {
	u, err := d.Get(id)
	if err != nil {
		return nil, err
	}
	if !cascade {
		if len(u.Children) > 0 {
			return nil, workunit.Invalid(
				fmt.Sprintf("Cannot delete %s: it has %d child work unit(s)", id, len(u.Children)),
				"Delete the children first, or pass --cascade to delete the whole subtree")
		}
		if len(u.Blocks) > 0 {
			return nil, workunit.Invalid(
				fmt.Sprintf("Cannot delete %s: it blocks %d other work unit(s)", id, len(u.Blocks)),
				"Remove the blocks relationships first, or pass --cascade")
		}
	}

	var deleted []string
	var drop func(uid string)
	drop = func(uid string) {
		unit, ok := d.WorkUnits[uid]
		if !ok {
			return
		}
		for _, child := range unit.Children {
			drop(child)
		}
		d.States[unit.Status], _ = removeFromList(d.States[unit.Status], uid)
		delete(d.WorkUnits, uid)
		deleted = append(deleted, uid)
	}
	drop(id)

	// Sever dangling references from surviving units.
	for _, unit := range d.WorkUnits {
		for _, gone := range deleted {
			unit.Children, _ = removeFromList(unit.Children, gone)
			unit.Blocks, _ = removeFromList(unit.Blocks, gone)
			if unit.Parent == gone {
				unit.Parent = ""
			}
		}
	}
	return deleted, nil
}

// Touch refreshes the document header before persisting.
func (d *Document) Touch() {
	d.Meta.Version = SchemaVersion
	d.Meta.LastUpdated = Clock()
}
