package feature

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeature = `@AUTH-1 @epic
Feature: User login

  Background:
    Given a registered user

  @AUTH-2
  Scenario: Successful login
    Given a valid password
    When the user signs in
    Then the dashboard appears

  # retry limits are enforced server-side
  @AUTH-3 @wip
  Scenario Outline: Lockout after failures
    Given <n> failed attempts
    Then the account is locked

  Scenario: Untagged path
    When nothing special happens
`

func writeFeature(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFeatureParsesTagsAndLines(t *testing.T) {
	path := writeFeature(t, t.TempDir(), "login.feature", sampleFeature)

	f, err := DirReader{}.LoadFeature(path)
	require.NoError(t, err)

	assert.Equal(t, "User login", f.Name)
	assert.Equal(t, []string{"AUTH-1", "epic"}, f.Tags)
	require.Len(t, f.Scenarios, 3)

	assert.Equal(t, "Successful login", f.Scenarios[0].Name)
	assert.Equal(t, []string{"AUTH-2"}, f.Scenarios[0].Tags)
	assert.Equal(t, 8, f.Scenarios[0].Line)

	assert.Equal(t, "Lockout after failures", f.Scenarios[1].Name)
	assert.Equal(t, []string{"AUTH-3", "wip"}, f.Scenarios[1].Tags)
	assert.Equal(t, 15, f.Scenarios[1].Line)

	assert.Equal(t, "Untagged path", f.Scenarios[2].Name)
	assert.Empty(t, f.Scenarios[2].Tags)
}

func TestLoadFeaturesWalksRecursively(t *testing.T) {
	dir := t.TempDir()
	writeFeature(t, dir, "b.feature", "Feature: B\n")
	writeFeature(t, dir, filepath.Join("auth", "a.feature"), "Feature: A\n")
	writeFeature(t, dir, "notes.txt", "not a feature\n")
	writeFeature(t, dir, filepath.Join(".hidden", "c.feature"), "Feature: C\n")

	files, err := DirReader{}.LoadFeatures(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	// Sorted by path, dot-directories skipped.
	assert.Equal(t, "A", files[0].Name)
	assert.Equal(t, "B", files[1].Name)
}

func TestLoadFeaturesMissingDir(t *testing.T) {
	files, err := DirReader{}.LoadFeatures(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestHasTagAndScenariosTagged(t *testing.T) {
	path := writeFeature(t, t.TempDir(), "login.feature", sampleFeature)
	f, err := DirReader{}.LoadFeature(path)
	require.NoError(t, err)

	assert.True(t, f.HasTag("AUTH-1"), "feature-level tag")
	assert.True(t, f.HasTag("AUTH-3"), "scenario-level tag")
	assert.False(t, f.HasTag("AUTH-9"))

	// A feature-level tag covers every scenario in the file.
	assert.Len(t, f.ScenariosTagged("AUTH-1"), 3)
	tagged := f.ScenariosTagged("AUTH-3")
	require.Len(t, tagged, 1)
	assert.Equal(t, "Lockout after failures", tagged[0].Name)
	assert.Empty(t, f.ScenariosTagged("AUTH-9"))
}
