package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fspec-dev/fspec/internal/workunit"
)

func TestLoadMissingFileYieldsEmptyDocument(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "units.json"))
	require.NoError(t, err)
	defer s.Close()

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.WorkUnits)
	assert.NotNil(t, doc.States[workunit.StatusBacklog])
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.json")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	doc := NewDocument()
	u := newUnit("A-1", workunit.StatusBacklog)
	u.Rules.Add("first rule")
	require.NoError(t, doc.Insert(u))
	require.NoError(t, s.Save(doc))

	back, err := s.Load()
	require.NoError(t, err)
	require.Contains(t, back.WorkUnits, "A-1")
	assert.Equal(t, "first rule", back.WorkUnits["A-1"].Rules.Items[0].Text)
	assert.Equal(t, SchemaVersion, back.Meta.Version)
	assert.False(t, back.Meta.LastUpdated.IsZero())
}

func TestSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "units.json")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(NewDocument()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "no temp files left behind")
	}
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load()
	assert.Error(t, err)
}
