package checkpoint

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner replays canned output per subcommand and records every call.
type fakeRunner struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   [][]string
}

func (f *fakeRunner) Output(dir, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	key := strings.Join(args[:2], " ")
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.outputs[key], nil
}

func TestTreeDirty(t *testing.T) {
	run := &fakeRunner{outputs: map[string][]byte{
		"status --porcelain": []byte(" M internal/store/file.go\n"),
	}}
	g := &GitService{Run: run}

	dirty, err := g.TreeDirty()
	require.NoError(t, err)
	assert.True(t, dirty)

	run.outputs["status --porcelain"] = []byte("\n")
	dirty, err = g.TreeDirty()
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestCreateStoresRefOverStashCommit(t *testing.T) {
	run := &fakeRunner{outputs: map[string][]byte{
		"stash create": []byte("deadbeef\n"),
	}}
	g := &GitService{Run: run}

	require.NoError(t, g.Create("AUTH-1", "AUTH-1-auto-testing"))
	require.Len(t, run.calls, 2)
	assert.Equal(t, []string{"git", "update-ref",
		"refs/fspec/checkpoints/AUTH-1-auto-testing", "deadbeef"}, run.calls[1])
}

func TestCreateCleanTreeIsNoOp(t *testing.T) {
	run := &fakeRunner{outputs: map[string][]byte{
		"stash create": []byte("\n"),
	}}
	g := &GitService{Run: run}

	require.NoError(t, g.Create("AUTH-1", "AUTH-1-auto-testing"))
	assert.Len(t, run.calls, 1, "no ref written when there is nothing to snapshot")
}

func TestCreatePropagatesStashError(t *testing.T) {
	run := &fakeRunner{errs: map[string]error{
		"stash create": errors.New("not a git repository"),
	}}
	g := &GitService{Run: run}
	assert.Error(t, g.Create("AUTH-1", "AUTH-1-auto-testing"))
}

func TestListParsesRefs(t *testing.T) {
	run := &fakeRunner{outputs: map[string][]byte{
		"for-each-ref --sort=-creatordate": []byte(
			"refs/fspec/checkpoints/AUTH-1-auto-validating\tcafe01\t2026-02-01T10:00:00+00:00\n" +
				"refs/fspec/checkpoints/AUTH-1-auto-testing\tcafe02\t2026-01-15T09:00:00+00:00\n"),
	}}
	g := &GitService{Run: run}

	cps, err := g.List("AUTH-1")
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, "AUTH-1-auto-validating", cps[0].Name)
	assert.Equal(t, "cafe01", cps[0].Commit)
	assert.Equal(t, 2026, cps[0].CreatedAt.Year())
	assert.Equal(t, "AUTH-1-auto-testing", cps[1].Name)
}

func TestListEmpty(t *testing.T) {
	run := &fakeRunner{outputs: map[string][]byte{}}
	g := &GitService{Run: run}
	cps, err := g.List("AUTH-1")
	require.NoError(t, err)
	assert.Empty(t, cps)
}
