// Package workunit defines the core data structures for the fspec tracker.
package workunit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fspec-dev/fspec/internal/stable"
)

// Status is the lifecycle state of a work unit.
type Status string

const (
	StatusBacklog      Status = "backlog"
	StatusSpecifying   Status = "specifying"
	StatusTesting      Status = "testing"
	StatusImplementing Status = "implementing"
	StatusValidating   Status = "validating"
	StatusDone         Status = "done"
	StatusBlocked      Status = "blocked"
)

// ForwardOrder is the strict ACDD progression. blocked sits outside the
// chain and is reachable from anywhere.
var ForwardOrder = []Status{
	StatusBacklog,
	StatusSpecifying,
	StatusTesting,
	StatusImplementing,
	StatusValidating,
	StatusDone,
}

// AllStatuses lists every valid status, forward chain first.
var AllStatuses = append(append([]Status{}, ForwardOrder...), StatusBlocked)

// IsValid reports whether s is a recognized status.
func (s Status) IsValid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ForwardIndex returns s's position in the forward chain, or -1 for
// blocked/unknown.
func (s Status) ForwardIndex() int {
	for i, v := range ForwardOrder {
		if s == v {
			return i
		}
	}
	return -1
}

// UnitType classifies a work unit.
type UnitType string

const (
	TypeStory UnitType = "story"
	TypeBug   UnitType = "bug"
	TypeTask  UnitType = "task"
)

// IsValid reports whether t is a recognized unit type.
func (t UnitType) IsValid() bool {
	switch t {
	case TypeStory, TypeBug, TypeTask:
		return true
	}
	return false
}

// MaxNestingDepth is the deepest allowed parent chain (a unit, its parent,
// and its grandparent). A fourth level is rejected.
const MaxNestingDepth = 3

// StateHistoryEntry is one row of a unit's lifecycle log.
type StateHistoryEntry struct {
	State     Status    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

// WorkUnit is a trackable item moving through the ACDD lifecycle.
type WorkUnit struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Type        UnitType `json:"type"`
	Status      Status   `json:"status"`

	Parent   string   `json:"parent,omitempty"`
	Children []string `json:"children,omitempty"`
	Blocks   []string `json:"blocks,omitempty"`

	// BlockedReason is present iff Status == blocked.
	BlockedReason string `json:"blockedReason,omitempty"`

	// Estimate is in story points; nil means unestimated.
	Estimate *int `json:"estimate,omitempty"`

	// LinkedFeatures is the explicit specification-file list. Empty means
	// tag-based auto-discovery.
	LinkedFeatures []string `json:"linkedFeatures,omitempty"`

	StateHistory []StateHistoryEntry `json:"stateHistory,omitempty"`

	Rules             stable.Collection `json:"rules"`
	Examples          stable.Collection `json:"examples"`
	Questions         stable.Collection `json:"questions"`
	ArchitectureNotes stable.Collection `json:"architectureNotes"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// extra carries unrecognized fields through load→persist untouched.
	extra map[string]json.RawMessage
}

// CollectionKind names one of the four stable-index fields.
type CollectionKind string

const (
	KindRule             CollectionKind = "rule"
	KindExample          CollectionKind = "example"
	KindQuestion         CollectionKind = "question"
	KindArchitectureNote CollectionKind = "architecture note"
)

// AllCollectionKinds lists the four collection fields in display order.
var AllCollectionKinds = []CollectionKind{KindRule, KindExample, KindQuestion, KindArchitectureNote}

// Label returns the capitalized display name used in messages
// ("Rule with ID 3 not found").
func (k CollectionKind) Label() string {
	switch k {
	case KindRule:
		return "Rule"
	case KindExample:
		return "Example"
	case KindQuestion:
		return "Question"
	case KindArchitectureNote:
		return "Architecture note"
	}
	return string(k)
}

// Collection returns the stable collection for the given kind.
func (u *WorkUnit) Collection(kind CollectionKind) *stable.Collection {
	switch kind {
	case KindRule:
		return &u.Rules
	case KindExample:
		return &u.Examples
	case KindQuestion:
		return &u.Questions
	case KindArchitectureNote:
		return &u.ArchitectureNotes
	}
	return nil
}

// CompactAll compacts all four collections, returning the total number of
// items dropped.
func (u *WorkUnit) CompactAll() int {
	total := 0
	for _, k := range AllCollectionKinds {
		total += u.Collection(k).Compact()
	}
	return total
}

// LastUpdated returns UpdatedAt, falling back to CreatedAt when the unit
// has never been touched since creation.
func (u *WorkUnit) LastUpdated() time.Time {
	if !u.UpdatedAt.IsZero() {
		return u.UpdatedAt
	}
	return u.CreatedAt
}

// Validate checks field-level invariants.
func (u *WorkUnit) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("id is required")
	}
	if u.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !u.Type.IsValid() {
		return fmt.Errorf("invalid type: %q (want story, bug, or task)", u.Type)
	}
	if !u.Status.IsValid() {
		return fmt.Errorf("invalid status: %q", u.Status)
	}
	if u.Status == StatusBlocked && u.BlockedReason == "" {
		return fmt.Errorf("blocked units must carry a blockedReason")
	}
	if u.Status != StatusBlocked && u.BlockedReason != "" {
		return fmt.Errorf("non-blocked units cannot carry a blockedReason")
	}
	return nil
}

// Clone returns a deep copy. The transition engine mutates the copy and
// only writes it back once every guard and side effect has succeeded.
func (u *WorkUnit) Clone() *WorkUnit {
	cp := *u
	cp.Children = append([]string(nil), u.Children...)
	cp.Blocks = append([]string(nil), u.Blocks...)
	cp.LinkedFeatures = append([]string(nil), u.LinkedFeatures...)
	cp.StateHistory = append([]StateHistoryEntry(nil), u.StateHistory...)
	cp.Rules.Items = append([]stable.Item(nil), u.Rules.Items...)
	cp.Examples.Items = append([]stable.Item(nil), u.Examples.Items...)
	cp.Questions.Items = append([]stable.Item(nil), u.Questions.Items...)
	cp.ArchitectureNotes.Items = append([]stable.Item(nil), u.ArchitectureNotes.Items...)
	if u.Estimate != nil {
		v := *u.Estimate
		cp.Estimate = &v
	}
	if u.extra != nil {
		cp.extra = make(map[string]json.RawMessage, len(u.extra))
		for k, v := range u.extra {
			cp.extra[k] = v
		}
	}
	return &cp
}
