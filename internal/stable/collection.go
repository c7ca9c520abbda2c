// Package stable implements the stable-index collection used for every
// list-valued field of a work unit (rules, examples, questions,
// architecture notes).
//
// Items are addressed by an id assigned once at add time, never by array
// position. Removal is a soft delete: the entry stays in place so that ids
// recorded by earlier CLI invocations keep resolving. Only compaction is
// allowed to renumber survivors.
package stable

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Item is one entry in a collection.
type Item struct {
	ID        int        `json:"id"`
	Text      string     `json:"text"`
	Deleted   bool       `json:"deleted"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Collection is a homogeneous list of text items with soft-delete and a
// monotonically increasing id counter. The zero value is ready to use.
type Collection struct {
	NextID int    `json:"nextId"`
	Items  []Item `json:"items"`
}

// Clock returns the current time. Tests swap it for deterministic output.
var Clock = time.Now

// Add appends a new active item and returns its assigned id. Ids are never
// reused within a generation, even after deletes.
func (c *Collection) Add(text string) int {
	id := c.NextID
	c.NextID++
	c.Items = append(c.Items, Item{
		ID:        id,
		Text:      text,
		CreatedAt: Clock(),
	})
	return id
}

// find returns the index of the item with the given id, or -1.
func (c *Collection) find(id int) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the item with the given id, if present.
func (c *Collection) Get(id int) (*Item, bool) {
	i := c.find(id)
	if i < 0 {
		return nil, false
	}
	return &c.Items[i], true
}

// RemoveResult reports the outcome of a Remove call.
type RemoveResult struct {
	// AlreadyDeleted is true when the item was soft-deleted before this
	// call; the call succeeds without touching deletedAt.
	AlreadyDeleted bool
}

// Remove soft-deletes the item with the given id. Removing an already
// deleted item is an idempotent success. kind names the collection for the
// not-found message ("Rule", "Example", ...).
func (c *Collection) Remove(kind string, id int) (RemoveResult, error) {
	i := c.find(id)
	if i < 0 {
		return RemoveResult{}, &NotFoundError{Kind: kind, ID: id}
	}
	if c.Items[i].Deleted {
		return RemoveResult{AlreadyDeleted: true}, nil
	}
	now := Clock()
	c.Items[i].Deleted = true
	c.Items[i].DeletedAt = &now
	return RemoveResult{}, nil
}

// RestoreResult reports the outcome of a Restore call.
type RestoreResult struct {
	// RestoredCount is the number of items whose deleted flag was cleared.
	// Already-active ids count as restored for reporting purposes.
	RestoredCount int
	// AlreadyActive lists ids that were not deleted to begin with.
	AlreadyActive []int
}

// Restore clears the deleted flag on each of the given ids. Every id is
// validated before any mutation: one unknown id fails the whole call with
// no state change. Restoring an already-active id is a no-op success.
func (c *Collection) Restore(kind string, ids ...int) (RestoreResult, error) {
	for _, id := range ids {
		if c.find(id) < 0 {
			return RestoreResult{}, &NotFoundError{Kind: kind, ID: id}
		}
	}
	var res RestoreResult
	for _, id := range ids {
		i := c.find(id)
		if !c.Items[i].Deleted {
			res.AlreadyActive = append(res.AlreadyActive, id)
			res.RestoredCount++
			continue
		}
		c.Items[i].Deleted = false
		c.Items[i].DeletedAt = nil
		res.RestoredCount++
	}
	return res, nil
}

// ParseIDList parses a single id or a comma-separated id list, as accepted
// by the restore command.
func ParseIDList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid item ID %q: must be a non-negative integer", p)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid item ID %d: must be a non-negative integer", n)
		}
		ids = append(ids, n)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no item IDs given")
	}
	return ids, nil
}

// Active returns the non-deleted items in storage order.
func (c *Collection) Active() []Item {
	var out []Item
	for _, it := range c.Items {
		if !it.Deleted {
			out = append(out, it)
		}
	}
	return out
}

// DeletedCount returns the number of soft-deleted items.
func (c *Collection) DeletedCount() int {
	n := 0
	for _, it := range c.Items {
		if it.Deleted {
			n++
		}
	}
	return n
}

// Summary renders the "N active items (M deleted)" line attached to list
// output.
func (c *Collection) Summary() string {
	return fmt.Sprintf("%d active items (%d deleted)", len(c.Items)-c.DeletedCount(), c.DeletedCount())
}

// Compact permanently drops soft-deleted items, sorts survivors by
// createdAt ascending, and reassigns ids 0..n-1. NextID resets to n.
// Returns the number of items dropped.
//
// Compaction is the only operation allowed to renumber: every id a caller
// recorded before this call is invalidated, which is why the CLI demands
// --force outside the automatic done-transition path.
func (c *Collection) Compact() int {
	survivors := c.Active()
	dropped := len(c.Items) - len(survivors)
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].CreatedAt.Before(survivors[j].CreatedAt)
	})
	for i := range survivors {
		survivors[i].ID = i
	}
	c.Items = survivors
	c.NextID = len(survivors)
	return dropped
}

// legacyEntry is the tagged-variant read path for collection entries: a
// bare string (legacy format) or a full Item (current format). The legacy
// shape is normalized at the load boundary and never escapes it.
type legacyEntry struct {
	str  *string
	item *Item
}

func (e *legacyEntry) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		e.str = &s
		return nil
	}
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return err
	}
	e.item = &it
	return nil
}

// UnmarshalJSON accepts both persisted shapes: the canonical object
// {"nextId":n,"items":[...]} and the legacy bare array (strings, items, or
// a mix). Arrays are migrated item-by-item in encounter order: strings get
// sequential ids and a createdAt of migration time; items pass through with
// their id and createdAt preserved. NextID is then recomputed as one greater
// than the maximum id present.
func (c *Collection) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*c = Collection{}
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		type plain Collection
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*c = Collection(p)
		return nil
	}

	var entries []legacyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("unrecognized collection shape: %w", err)
	}
	*c = migrate(entries)
	return nil
}

// migrate normalizes a mixed legacy entry list into a current-format
// collection. String entries are assigned their encounter index as id.
func migrate(entries []legacyEntry) Collection {
	now := Clock()
	var c Collection
	maxID := -1
	for i, e := range entries {
		switch {
		case e.str != nil:
			c.Items = append(c.Items, Item{
				ID:        i,
				Text:      *e.str,
				CreatedAt: now,
			})
			if i > maxID {
				maxID = i
			}
		case e.item != nil:
			c.Items = append(c.Items, *e.item)
			if e.item.ID > maxID {
				maxID = e.item.ID
			}
		}
	}
	c.NextID = maxID + 1
	return c
}

// MarshalJSON always writes the canonical object shape.
func (c Collection) MarshalJSON() ([]byte, error) {
	type plain Collection
	p := plain(c)
	if p.Items == nil {
		p.Items = []Item{}
	}
	return json.Marshal(p)
}

// NotFoundError reports an item id that does not exist in a collection.
type NotFoundError struct {
	Kind string
	ID   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Kind, e.ID)
}
