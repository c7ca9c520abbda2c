package workunit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validUnit() *WorkUnit {
	return &WorkUnit{
		ID:        "AUTH-1",
		Title:     "Login flow",
		Type:      TypeStory,
		Status:    StatusBacklog,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestForwardIndex(t *testing.T) {
	assert.Equal(t, 0, StatusBacklog.ForwardIndex())
	assert.Equal(t, 5, StatusDone.ForwardIndex())
	assert.Equal(t, -1, StatusBlocked.ForwardIndex(), "blocked sits outside the chain")
	assert.Equal(t, -1, Status("bogus").ForwardIndex())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkUnit)
		wantErr string
	}{
		{"valid", func(u *WorkUnit) {}, ""},
		{"missing id", func(u *WorkUnit) { u.ID = "" }, "id is required"},
		{"missing title", func(u *WorkUnit) { u.Title = "" }, "title is required"},
		{"bad type", func(u *WorkUnit) { u.Type = "epic" }, "invalid type"},
		{"bad status", func(u *WorkUnit) { u.Status = "paused" }, "invalid status"},
		{"blocked without reason", func(u *WorkUnit) { u.Status = StatusBlocked }, "blockedReason"},
		{"stale reason", func(u *WorkUnit) { u.BlockedReason = "old" }, "cannot carry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := validUnit()
			tt.mutate(u)
			err := u.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	u := validUnit()
	u.Children = []string{"AUTH-2"}
	u.Rules.Add("original")
	est := 5
	u.Estimate = &est
	u.StateHistory = []StateHistoryEntry{{State: StatusBacklog}}

	cp := u.Clone()
	cp.Children[0] = "AUTH-9"
	cp.Rules.Add("added on copy")
	cp.Rules.Items[0].Text = "rewritten"
	*cp.Estimate = 13
	cp.StateHistory[0].State = StatusDone

	assert.Equal(t, []string{"AUTH-2"}, u.Children)
	require.Len(t, u.Rules.Items, 1)
	assert.Equal(t, "original", u.Rules.Items[0].Text)
	assert.Equal(t, 5, *u.Estimate)
	assert.Equal(t, StatusBacklog, u.StateHistory[0].State)
}

func TestLastUpdatedFallsBackToCreatedAt(t *testing.T) {
	u := validUnit()
	assert.Equal(t, u.CreatedAt, u.LastUpdated())

	u.UpdatedAt = u.CreatedAt.Add(time.Hour)
	assert.Equal(t, u.UpdatedAt, u.LastUpdated())
}

func TestCollectionByKind(t *testing.T) {
	u := validUnit()
	u.Collection(KindQuestion).Add("why?")
	assert.Len(t, u.Questions.Items, 1)
	assert.Nil(t, u.Collection("bogus"))
}

func TestCompactAllCountsDropped(t *testing.T) {
	u := validUnit()
	u.Rules.Add("keep")
	u.Rules.Add("drop")
	u.Examples.Add("drop too")
	_, err := u.Rules.Remove(KindRule.Label(), 1)
	require.NoError(t, err)
	_, err = u.Examples.Remove(KindExample.Label(), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, u.CompactAll())
	assert.Len(t, u.Rules.Items, 1)
	assert.Empty(t, u.Examples.Items)
}

func TestUnknownFieldsRoundTrip(t *testing.T) {
	raw := `{"id":"A-1","title":"t","type":"story","status":"backlog",
		"rules":[], "examples":[], "questions":[], "architectureNotes":[],
		"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z",
		"vendorExt":{"a":1},"futureFlag":true}`

	var u WorkUnit
	require.NoError(t, json.Unmarshal([]byte(raw), &u))

	// Mutate a known field; unknown keys must survive untouched.
	u.Title = "renamed"
	out, err := json.Marshal(&u)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &m))
	assert.JSONEq(t, `{"a":1}`, string(m["vendorExt"]))
	assert.JSONEq(t, `true`, string(m["futureFlag"]))
	assert.JSONEq(t, `"renamed"`, string(m["title"]))
}

func TestMarshalKnownFieldWinsOverStaleExtra(t *testing.T) {
	// A key that was unknown on load but is known to the writer must not
	// shadow the live value.
	var u WorkUnit
	require.NoError(t, json.Unmarshal([]byte(`{"id":"A-1","title":"t","type":"story","status":"backlog",
		"rules":[], "examples":[], "questions":[], "architectureNotes":[],
		"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z"}`), &u))
	u.extra = map[string]json.RawMessage{"status": json.RawMessage(`"done"`)}

	out, err := json.Marshal(&u)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &m))
	assert.JSONEq(t, `"backlog"`, string(m["status"]))
}
